package pattern

import (
	"context"
	"errors"
	"testing"
)

func setupRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(NewSQLiteRepository(setupTestDB(t)))
}

func TestRegistry_CreateGeneratesIDAndSlug(t *testing.T) {
	reg := setupRegistry(t)
	ctx := context.Background()

	p := &Pattern{
		Name:  "My New Pattern",
		Steps: []Step{{Level: 3, DurationMS: 100}},
	}
	if err := reg.CreatePattern(ctx, p); err != nil {
		t.Fatalf("CreatePattern() error = %v", err)
	}

	if p.ID == "" {
		t.Error("CreatePattern() did not generate an ID")
	}
	if p.Slug != "my-new-pattern" {
		t.Errorf("Slug = %q, want my-new-pattern", p.Slug)
	}
	if p.Source != SourceAPI {
		t.Errorf("Source = %q, want api default", p.Source)
	}
}

func TestRegistry_GetFromCache(t *testing.T) {
	reg := setupRegistry(t)
	ctx := context.Background()

	p := testPattern("Cached")
	if err := reg.CreatePattern(ctx, p); err != nil {
		t.Fatalf("CreatePattern() error = %v", err)
	}

	got, err := reg.GetPattern(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPattern() error = %v", err)
	}

	// Mutating the returned copy must not poison the cache.
	got.Name = "Tampered"
	again, err := reg.GetPattern(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPattern() error = %v", err)
	}
	if again.Name != "Cached" {
		t.Error("registry cache was mutated through a returned copy")
	}
}

func TestRegistry_RefreshCache(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	// Seed the repository directly, bypassing the registry.
	if err := repo.Create(ctx, testPattern("Preexisting")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	reg := NewRegistry(repo)
	if reg.PatternCount() != 0 {
		t.Fatalf("PatternCount() = %d before refresh, want 0", reg.PatternCount())
	}

	if err := reg.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}
	if reg.PatternCount() != 1 {
		t.Errorf("PatternCount() = %d after refresh, want 1", reg.PatternCount())
	}
}

func TestRegistry_GetPatternBySlug(t *testing.T) {
	reg := setupRegistry(t)
	ctx := context.Background()

	p := testPattern("Find Me")
	if err := reg.CreatePattern(ctx, p); err != nil {
		t.Fatalf("CreatePattern() error = %v", err)
	}

	got, err := reg.GetPatternBySlug(ctx, "find-me")
	if err != nil {
		t.Fatalf("GetPatternBySlug() error = %v", err)
	}
	if got.ID != p.ID {
		t.Errorf("GetPatternBySlug() ID = %q, want %q", got.ID, p.ID)
	}
}

func TestRegistry_UpdateRegeneratesSlug(t *testing.T) {
	reg := setupRegistry(t)
	ctx := context.Background()

	p := testPattern("Old Name")
	if err := reg.CreatePattern(ctx, p); err != nil {
		t.Fatalf("CreatePattern() error = %v", err)
	}

	p.Name = "New Name"
	if err := reg.UpdatePattern(ctx, p); err != nil {
		t.Fatalf("UpdatePattern() error = %v", err)
	}
	if p.Slug != "new-name" {
		t.Errorf("Slug = %q, want new-name after rename", p.Slug)
	}
}

func TestRegistry_Delete(t *testing.T) {
	reg := setupRegistry(t)
	ctx := context.Background()

	p := testPattern("Doomed")
	if err := reg.CreatePattern(ctx, p); err != nil {
		t.Fatalf("CreatePattern() error = %v", err)
	}

	if err := reg.DeletePattern(ctx, p.ID); err != nil {
		t.Fatalf("DeletePattern() error = %v", err)
	}
	if _, err := reg.GetPattern(ctx, p.ID); !errors.Is(err, ErrPatternNotFound) {
		t.Errorf("GetPattern() after delete error = %v, want ErrPatternNotFound", err)
	}
	if reg.PatternCount() != 0 {
		t.Errorf("PatternCount() = %d after delete, want 0", reg.PatternCount())
	}
}

func TestRegistry_UpsertBySlug(t *testing.T) {
	reg := setupRegistry(t)
	ctx := context.Background()

	first := &Pattern{
		Name:   "Waves",
		Slug:   "waves",
		Source: SourceFile,
		Steps:  []Step{{Level: 2, DurationMS: 100}},
	}
	if err := reg.UpsertBySlug(ctx, first); err != nil {
		t.Fatalf("first UpsertBySlug() error = %v", err)
	}

	// Same slug, new steps: must update in place, not duplicate.
	second := &Pattern{
		Name:   "Waves",
		Slug:   "waves",
		Source: SourceFile,
		Steps:  []Step{{Level: 7, DurationMS: 300}},
	}
	if err := reg.UpsertBySlug(ctx, second); err != nil {
		t.Fatalf("second UpsertBySlug() error = %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("upsert created a new ID %q, want existing %q", second.ID, first.ID)
	}
	if reg.PatternCount() != 1 {
		t.Errorf("PatternCount() = %d, want 1 after upsert", reg.PatternCount())
	}

	got, err := reg.GetPatternBySlug(ctx, "waves")
	if err != nil {
		t.Fatalf("GetPatternBySlug() error = %v", err)
	}
	if len(got.Steps) != 1 || got.Steps[0].Level != 7 {
		t.Errorf("upsert did not replace steps: %+v", got.Steps)
	}
}

func TestRegistry_NotifierReceivesChanges(t *testing.T) {
	reg := setupRegistry(t)
	ctx := context.Background()

	type change struct {
		event string
		id    string
		name  string
	}
	var changes []change
	reg.SetNotifier(func(event string, p *Pattern) {
		changes = append(changes, change{event: event, id: p.ID, name: p.Name})
	})

	p := testPattern("Watched")
	if err := reg.CreatePattern(ctx, p); err != nil {
		t.Fatalf("CreatePattern() error = %v", err)
	}
	p.Name = "Watched Closely"
	if err := reg.UpdatePattern(ctx, p); err != nil {
		t.Fatalf("UpdatePattern() error = %v", err)
	}
	if err := reg.DeletePattern(ctx, p.ID); err != nil {
		t.Fatalf("DeletePattern() error = %v", err)
	}

	want := []string{"created", "updated", "deleted"}
	if len(changes) != len(want) {
		t.Fatalf("notifications = %d, want %d", len(changes), len(want))
	}
	for i, event := range want {
		if changes[i].event != event {
			t.Errorf("notification %d = %q, want %q", i, changes[i].event, event)
		}
		if changes[i].id != p.ID {
			t.Errorf("notification %d ID = %q, want %q", i, changes[i].id, p.ID)
		}
	}
	// The delete notification still carries the pattern's identity.
	if changes[2].name != "Watched Closely" {
		t.Errorf("delete notification name = %q, want the deleted pattern's name", changes[2].name)
	}
}

func TestRegistry_CreateInvalid(t *testing.T) {
	reg := setupRegistry(t)

	p := &Pattern{Name: "", Steps: nil}
	if err := reg.CreatePattern(context.Background(), p); !errors.Is(err, ErrInvalidName) {
		t.Errorf("CreatePattern() error = %v, want ErrInvalidName", err)
	}
}
