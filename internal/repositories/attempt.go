package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/twlogin/internal/models"
	"github.com/desertthunder/twlogin/internal/shared"
)

const attemptColumns = `id, sequence, mode, port, outcome, message, started_at, finished_at`

// ErrAttemptNotFound is returned when no attempt has the requested id.
var ErrAttemptNotFound = errors.New("attempt not found")

var _ models.Repository[*models.Attempt] = (*AttemptRepository)(nil)

// AttemptRepository implements [models.Repository] for [models.Attempt] persistence.
type AttemptRepository struct {
	db *sql.DB
}

// NewAttemptRepository creates a new [AttemptRepository] with the given database connection
func NewAttemptRepository(db *sql.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Create inserts a pending attempt. An empty ID is filled with a generated one.
func (r *AttemptRepository) Create(attempt *models.Attempt) error {
	if attempt.ID() == "" {
		attempt.SetID(shared.GenerateID())
	}
	if err := attempt.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "login_attempts")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	attempt.SetSequence(sequence)

	query := `
		INSERT INTO login_attempts (` + attemptColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(query,
		attempt.ID(), sequence, attempt.Mode(), attempt.Port(),
		attempt.Outcome(), attempt.Message(), attempt.StartedAt(), nullTime(attempt.FinishedAt()),
	)
	if err != nil {
		return fmt.Errorf("failed to insert attempt: %w", err)
	}

	return nil
}

// Get retrieves an attempt by ID
func (r *AttemptRepository) Get(id string) (*models.Attempt, error) {
	row := r.db.QueryRow(`SELECT `+attemptColumns+` FROM login_attempts WHERE id = ?`, id)

	attempt, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrAttemptNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query attempt: %w", err)
	}
	return attempt, nil
}

// Update stores the port, outcome, message and finish time of an existing attempt.
func (r *AttemptRepository) Update(attempt *models.Attempt) error {
	if err := attempt.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		UPDATE login_attempts
		SET port = ?, outcome = ?, message = ?, finished_at = ?
		WHERE id = ?
	`
	result, err := r.db.Exec(query,
		attempt.Port(), attempt.Outcome(), attempt.Message(), nullTime(attempt.FinishedAt()), attempt.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update attempt: %w", err)
	}
	return expectOne(result, attempt.ID())
}

// Delete removes an attempt by ID. History has no soft delete.
func (r *AttemptRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM login_attempts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete attempt: %w", err)
	}
	return expectOne(result, id)
}

// List returns attempts newest first.
//
// Supported criteria: "mode" (string), "outcome" (string) and "limit" (int, zero for all).
func (r *AttemptRepository) List(criteria map[string]any) ([]*models.Attempt, error) {
	var (
		where []string
		args  []any
	)
	if mode, ok := criteria["mode"].(string); ok && mode != "" {
		where = append(where, "mode = ?")
		args = append(args, mode)
	}
	if outcome, ok := criteria["outcome"].(string); ok && outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, outcome)
	}

	query := `SELECT ` + attemptColumns + ` FROM login_attempts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY sequence DESC"
	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*models.Attempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return attempts, nil
}

// Prune deletes finished attempts that started before cutoff and returns how many were removed.
func (r *AttemptRepository) Prune(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(
		`DELETE FROM login_attempts WHERE finished_at IS NOT NULL AND started_at < ?`, cutoff.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune attempts: %w", err)
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(s scanner) (*models.Attempt, error) {
	var (
		id, mode, outcome, message string
		sequence, port             int
		startedAt                  time.Time
		finishedAt                 sql.NullTime
	)
	if err := s.Scan(&id, &sequence, &mode, &port, &outcome, &message, &startedAt, &finishedAt); err != nil {
		return nil, err
	}

	attempt := models.NewAttempt(id, mode, port)
	attempt.SetSequence(sequence)
	attempt.SetResult(outcome, message)
	attempt.SetStartedAt(startedAt)
	if finishedAt.Valid {
		attempt.SetFinishedAt(&finishedAt.Time)
	}
	return attempt, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func expectOne(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrAttemptNotFound, id)
	}
	return nil
}
