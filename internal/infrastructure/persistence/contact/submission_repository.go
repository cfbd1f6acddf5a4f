// Package contact provides the contact submission repository
package contact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mkim/mystory/internal/domain/entities/contact"
	"github.com/mkim/mystory/internal/infrastructure/observability/logging"
	"github.com/mkim/mystory/internal/infrastructure/persistence/database"
)

// Fixed-width so lexical order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SubmissionRepository struct {
	db     *sql.DB
	logger *logging.ChanneledLogger
}

func NewSubmissionRepository(db *sql.DB, logger *logging.ChanneledLogger) *SubmissionRepository {
	return &SubmissionRepository{db: db, logger: logger}
}

func (r *SubmissionRepository) Store(ctx context.Context, s *contact.Submission) error {
	query := `INSERT INTO contact_submissions
		(id, name, email, subject, message, status, error, remote_addr, created_at, delivered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	start := time.Now()
	r.logger.Database().Debug("Executing submission insert", "id", s.ID)

	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.Name, s.Email, s.Subject, s.Message, string(s.Status), s.Error, s.RemoteAddr,
		s.CreatedAt.UTC().Format(timeLayout), formatTime(s.DeliveredAt),
	)
	if err != nil {
		r.logger.Database().Error("Submission insert failed", "error", err.Error(), "id", s.ID)
		return fmt.Errorf("failed to insert submission: %w", err)
	}

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return nil
}

func (r *SubmissionRepository) Update(ctx context.Context, s *contact.Submission) error {
	query := `UPDATE contact_submissions SET status = ?, error = ?, delivered_at = ? WHERE id = ?`

	start := time.Now()
	res, err := r.db.ExecContext(ctx, query, string(s.Status), s.Error, formatTime(s.DeliveredAt), s.ID)
	if err != nil {
		r.logger.Database().Error("Submission update failed", "error", err.Error(), "id", s.ID)
		return fmt.Errorf("failed to update submission: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update %s: %w", s.ID, contact.ErrNotFound)
	}

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return nil
}

func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*contact.Submission, error) {
	query := `SELECT id, name, email, subject, message, status, error, remote_addr, created_at, delivered_at
		FROM contact_submissions WHERE id = ?`

	s, err := scanSubmission(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find %s: %w", id, contact.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}
	return s, nil
}

// FindRecent returns up to limit submissions, newest first.
func (r *SubmissionRepository) FindRecent(ctx context.Context, limit int) ([]*contact.Submission, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, name, email, subject, message, status, error, remote_addr, created_at, delivered_at
		FROM contact_submissions ORDER BY created_at DESC, id DESC LIMIT ?`

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		r.logger.Database().Error("Submission query failed", "error", err.Error())
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var out []*contact.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate submissions: %w", err)
	}

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return out, nil
}

func (r *SubmissionRepository) CountByStatus(ctx context.Context) (map[contact.Status]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM contact_submissions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count submissions: %w", err)
	}
	defer rows.Close()

	counts := make(map[contact.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[contact.Status(status)] = n
	}
	return counts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row scanner) (*contact.Submission, error) {
	var (
		s           contact.Submission
		status      string
		createdAt   string
		deliveredAt sql.NullString
	)
	if err := row.Scan(&s.ID, &s.Name, &s.Email, &s.Subject, &s.Message,
		&status, &s.Error, &s.RemoteAddr, &createdAt, &deliveredAt); err != nil {
		return nil, err
	}
	s.Status = contact.Status(status)

	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	s.CreatedAt = t
	if deliveredAt.Valid && deliveredAt.String != "" {
		d, err := time.Parse(timeLayout, deliveredAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse delivered_at: %w", err)
		}
		s.DeliveredAt = &d
	}
	return &s, nil
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}
