package radio

import "encoding/hex"

// Intensity level bounds. Values outside this range are clamped, never
// rejected: a caller asking for "more than maximum" gets the maximum.
const (
	MinLevel = 0
	MaxLevel = 9
)

// CompanyID is the manufacturer identifier carried in the advertising
// packet. The device firmware matches on this together with the payload
// header below.
const CompanyID = 0xFF

// PayloadSize is the fixed length of the manufacturer-data frame:
// an 11-byte device header followed by a 3-byte command word.
const PayloadSize = 14

// header is the fixed device-identification prefix present in every
// frame. The firmware ignores advertisements without it.
var header = mustHex("0000006db643ce97fe427c")

// commands maps each intensity level to its 3-byte command word.
// These are opaque firmware constants, not an encoding; level 0 is the
// stop command.
var commands = [MaxLevel + 1][]byte{
	mustHex("f41d7c"), // 0: stop
	mustHex("f7864e"), // 1
	mustHex("f60f5f"), // 2
	mustHex("f1b02b"), // 3
	mustHex("f0393a"), // 4
	mustHex("f3a208"), // 5
	mustHex("f22b19"), // 6
	mustHex("fddce1"), // 7
	mustHex("fc55f0"), // 8
	mustHex("c5175c"), // 9
}

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic("radio: bad hex constant: " + s)
	}
	return b
}

// Clamp normalises an intensity level into the supported range.
//
// Out-of-range requests are a user-intent question, not an error: a
// request for level 200 means "as strong as possible", so it clamps to
// MaxLevel rather than failing.
func Clamp(level int) int {
	if level < MinLevel {
		return MinLevel
	}
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}

// Payload builds the full manufacturer-data frame for an intensity level.
//
// The level is clamped first, so Payload(-5) and Payload(0) produce
// identical frames. The returned slice is a fresh copy; callers may
// retain or modify it freely.
func Payload(level int) []byte {
	level = Clamp(level)
	p := make([]byte, 0, PayloadSize)
	p = append(p, header...)
	p = append(p, commands[level]...)
	return p
}

// StopPayload returns the frame for the stop command (level 0).
func StopPayload() []byte {
	return Payload(MinLevel)
}
