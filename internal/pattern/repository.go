package pattern

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for pattern persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByID retrieves a pattern by its unique identifier.
	// Returns ErrPatternNotFound if the pattern does not exist.
	GetByID(ctx context.Context, id string) (*Pattern, error)

	// GetBySlug retrieves a pattern by its URL-safe slug.
	// Returns ErrPatternNotFound if the pattern does not exist.
	GetBySlug(ctx context.Context, slug string) (*Pattern, error)

	// List retrieves all patterns ordered by name.
	List(ctx context.Context) ([]Pattern, error)

	// ListBySource retrieves all patterns from a specific source.
	ListBySource(ctx context.Context, source Source) ([]Pattern, error)

	// Create inserts a new pattern.
	// Returns ErrPatternExists if the ID or slug is already taken.
	Create(ctx context.Context, p *Pattern) error

	// Update modifies an existing pattern.
	// Returns ErrPatternNotFound if the pattern does not exist.
	Update(ctx context.Context, p *Pattern) error

	// Delete removes a pattern by ID.
	// Returns ErrPatternNotFound if the pattern does not exist.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const patternColumns = "id, name, author, slug, source, steps, created_at, updated_at"

// GetByID retrieves a pattern by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Pattern, error) {
	query := "SELECT " + patternColumns + " FROM patterns WHERE id = ?"

	row := r.db.QueryRowContext(ctx, query, id)
	p, err := scanPattern(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPatternNotFound
		}
		return nil, fmt.Errorf("querying pattern by id: %w", err)
	}
	return p, nil
}

// GetBySlug retrieves a pattern by its URL-safe slug.
func (r *SQLiteRepository) GetBySlug(ctx context.Context, slug string) (*Pattern, error) {
	query := "SELECT " + patternColumns + " FROM patterns WHERE slug = ?"

	row := r.db.QueryRowContext(ctx, query, slug)
	p, err := scanPattern(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPatternNotFound
		}
		return nil, fmt.Errorf("querying pattern by slug: %w", err)
	}
	return p, nil
}

// List retrieves all patterns ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Pattern, error) {
	query := "SELECT " + patternColumns + " FROM patterns ORDER BY name"
	return r.queryPatterns(ctx, query)
}

// ListBySource retrieves all patterns from a specific source.
func (r *SQLiteRepository) ListBySource(ctx context.Context, source Source) ([]Pattern, error) {
	query := "SELECT " + patternColumns + " FROM patterns WHERE source = ? ORDER BY name"
	return r.queryPatterns(ctx, query, string(source))
}

// Create inserts a new pattern.
func (r *SQLiteRepository) Create(ctx context.Context, p *Pattern) error {
	stepsJSON, err := json.Marshal(p.Steps)
	if err != nil {
		return fmt.Errorf("marshalling steps: %w", err)
	}

	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	query := `
		INSERT INTO patterns (id, name, author, slug, source, steps, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		p.ID,
		p.Name,
		p.Author,
		p.Slug,
		string(p.Source),
		string(stepsJSON),
		p.CreatedAt.Format(time.RFC3339),
		p.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrPatternExists
		}
		return fmt.Errorf("inserting pattern: %w", err)
	}

	return nil
}

// Update modifies an existing pattern.
func (r *SQLiteRepository) Update(ctx context.Context, p *Pattern) error {
	stepsJSON, err := json.Marshal(p.Steps)
	if err != nil {
		return fmt.Errorf("marshalling steps: %w", err)
	}

	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE patterns SET
			name = ?, author = ?, slug = ?, source = ?, steps = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		p.Name,
		p.Author,
		p.Slug,
		string(p.Source),
		string(stepsJSON),
		p.UpdatedAt.Format(time.RFC3339),
		p.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrPatternExists
		}
		return fmt.Errorf("updating pattern: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrPatternNotFound
	}

	return nil
}

// Delete removes a pattern by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM patterns WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting pattern: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrPatternNotFound
	}

	return nil
}

// queryPatterns executes a query and returns a slice of patterns.
func (r *SQLiteRepository) queryPatterns(ctx context.Context, query string, args ...any) ([]Pattern, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying patterns: %w", err)
	}
	defer rows.Close()

	var patterns []Pattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning pattern: %w", err)
		}
		patterns = append(patterns, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating patterns: %w", err)
	}

	return patterns, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanPattern scans a row or rows result into a Pattern.
func scanPattern(scanner rowScanner) (*Pattern, error) {
	var p Pattern
	var source, stepsJSON string
	var createdAt, updatedAt string

	err := scanner.Scan(
		&p.ID,
		&p.Name,
		&p.Author,
		&p.Slug,
		&source,
		&stepsJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Source = Source(source)

	if err := json.Unmarshal([]byte(stepsJSON), &p.Steps); err != nil {
		return nil, fmt.Errorf("unmarshalling steps: %w", err)
	}

	var parseErr error
	p.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	p.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	return &p, nil
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
