package pattern

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Logger defines the logging interface used by the Registry and Loader.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry provides pattern management with caching and thread safety.
// It wraps a Repository and adds an in-memory cache for fast lookups.
//
// The cache is populated on startup via RefreshCache() and kept in sync
// by cache-invalidating CRUD operations.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*Pattern // Cached patterns by ID
	cacheMu sync.RWMutex        // Protects cache
	logger  Logger
	notify  func(event string, p *Pattern)
}

// NewRegistry creates a new pattern registry.
// The repository is used for persistence; the registry adds caching.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Pattern),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetNotifier registers a callback invoked after a pattern is created,
// updated, or deleted, regardless of whether the change came through
// the API or the file loader. Set once during startup, before the
// registry is shared; the callback is invoked synchronously and must
// not block.
func (r *Registry) SetNotifier(fn func(event string, p *Pattern)) {
	r.notify = fn
}

// notifyChange reports a library change to the registered notifier.
// Events are "created", "updated", "deleted".
func (r *Registry) notifyChange(event string, p *Pattern) {
	if r.notify != nil {
		r.notify(event, p.DeepCopy())
	}
}

// RefreshCache reloads all patterns from the repository into the cache.
// This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	patterns, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading patterns: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	// Clear and rebuild cache with deep copies
	r.cache = make(map[string]*Pattern, len(patterns))
	for i := range patterns {
		p := patterns[i]
		r.cache[p.ID] = p.DeepCopy()
	}

	r.logger.Info("pattern cache refreshed", "count", len(patterns))
	return nil
}

// GetPattern retrieves a pattern by ID.
// Returns ErrPatternNotFound if the pattern does not exist.
// The returned pattern is a deep copy; callers can safely modify it.
func (r *Registry) GetPattern(ctx context.Context, id string) (*Pattern, error) {
	// Try cache first
	r.cacheMu.RLock()
	cached, ok := r.cache[id]
	r.cacheMu.RUnlock()

	if ok {
		return cached.DeepCopy(), nil
	}

	// Fall back to repository (might be a new pattern not yet cached)
	p, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Cache for future lookups (store a deep copy)
	r.cacheMu.Lock()
	r.cache[p.ID] = p.DeepCopy()
	r.cacheMu.Unlock()

	return p, nil
}

// GetPatternBySlug retrieves a pattern by its URL-safe slug.
// The returned pattern is a deep copy; callers can safely modify it.
func (r *Registry) GetPatternBySlug(ctx context.Context, slug string) (*Pattern, error) {
	r.cacheMu.RLock()
	for _, p := range r.cache {
		if p.Slug == slug {
			cp := p.DeepCopy()
			r.cacheMu.RUnlock()
			return cp, nil
		}
	}
	r.cacheMu.RUnlock()

	return r.repo.GetBySlug(ctx, slug)
}

// ListPatterns retrieves all patterns.
// The returned patterns are deep copies; callers can safely modify them.
func (r *Registry) ListPatterns(ctx context.Context) ([]Pattern, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	// Return from cache if populated
	if len(r.cache) > 0 {
		patterns := make([]Pattern, 0, len(r.cache))
		for _, p := range r.cache {
			patterns = append(patterns, *p.DeepCopy())
		}
		return patterns, nil
	}

	// Fall back to repository
	return r.repo.List(ctx)
}

// CreatePattern creates a new pattern.
// It generates ID and slug if needed, validates, and persists it.
func (r *Registry) CreatePattern(ctx context.Context, p *Pattern) error {
	if p.ID == "" {
		p.ID = GenerateID()
	}
	if p.Slug == "" {
		p.Slug = GenerateSlug(p.Name)
	}
	if p.Source == "" {
		p.Source = SourceAPI
	}

	if err := ValidatePattern(p); err != nil {
		return err
	}

	if err := r.repo.Create(ctx, p); err != nil {
		return err
	}

	// Update cache (store a deep copy to prevent external modification)
	r.cacheMu.Lock()
	r.cache[p.ID] = p.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("pattern created", "id", p.ID, "name", p.Name, "steps", len(p.Steps))
	r.notifyChange("created", p)
	return nil
}

// UpdatePattern updates an existing pattern.
// It validates the pattern and persists the changes.
func (r *Registry) UpdatePattern(ctx context.Context, p *Pattern) error {
	// Regenerate slug if name changed and slug wasn't explicitly set
	existing, err := r.GetPattern(ctx, p.ID)
	if err != nil {
		return err
	}
	if p.Name != existing.Name && p.Slug == existing.Slug {
		p.Slug = GenerateSlug(p.Name)
	}
	if p.Source == "" {
		p.Source = existing.Source
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = existing.CreatedAt
	}

	if err := ValidatePattern(p); err != nil {
		return err
	}

	if err := r.repo.Update(ctx, p); err != nil {
		return err
	}

	// Update cache (store a deep copy to prevent external modification)
	r.cacheMu.Lock()
	r.cache[p.ID] = p.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("pattern updated", "id", p.ID, "name", p.Name)
	r.notifyChange("updated", p)
	return nil
}

// DeletePattern removes a pattern.
func (r *Registry) DeletePattern(ctx context.Context, id string) error {
	// Snapshot before deleting so the notification can carry the name
	// and slug, not just the ID.
	r.cacheMu.RLock()
	deleted := r.cache[id]
	if deleted != nil {
		deleted = deleted.DeepCopy()
	}
	r.cacheMu.RUnlock()

	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	// Update cache
	r.cacheMu.Lock()
	delete(r.cache, id)
	r.cacheMu.Unlock()

	r.logger.Info("pattern deleted", "id", id)
	if deleted == nil {
		deleted = &Pattern{ID: id}
	}
	r.notifyChange("deleted", deleted)
	return nil
}

// UpsertBySlug creates the pattern, or updates the existing pattern
// with the same slug. Used by the file loader so that re-reading a
// .vibepattern file updates its stored copy instead of duplicating it.
func (r *Registry) UpsertBySlug(ctx context.Context, p *Pattern) error {
	existing, err := r.GetPatternBySlug(ctx, p.Slug)
	switch {
	case err == nil:
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
		return r.UpdatePattern(ctx, p)
	case errors.Is(err, ErrPatternNotFound):
		return r.CreatePattern(ctx, p)
	default:
		return err
	}
}

// PatternCount returns the number of cached patterns.
func (r *Registry) PatternCount() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}
