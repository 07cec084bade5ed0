// Package scheduler is the command scheduling and session-exclusivity
// engine of VibeLink Core.
//
// Three independent producers want to drive the actuator: the HTTP API
// (one-shot sends), continuous mode, and pattern playback. The
// scheduler guarantees that at most one of them owns the radio at any
// instant, and that starting a new session tears the previous one's
// radio activity down before the new one's first transmission.
//
// # Preemption model
//
// Every operation begins by atomically incrementing a generation
// counter under one mutex; that increment is the single linearization
// point. Long-running loops and in-flight holds carry the generation
// they were started with and poll for a mismatch at bounded intervals
// (Config.PollInterval). A mismatch means "superseded, go quiet now":
// the loop closes its broadcast and exits without emitting anything
// further. No goroutine is ever forcibly stopped.
//
// A second mutex serialises the physical transmissions themselves, so
// the superseding session's first broadcast cannot open until the
// superseded one's broadcast has closed.
//
// # Outcomes
//
// SendOnce distinguishes three outcomes: nil (the full window
// completed), ErrSuperseded (a newer session cut it short; the radio
// was still cleaned up), and ErrRadioUnavailable (the radio never
// confirmed the broadcast; local to that one transmission).
package scheduler
