package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"docseek/pkg"
)

// Repository implements Store on Postgres through database/sql. It works
// with both the lib/pq and the pgx drivers.
type Repository struct {
	DB *sql.DB
}

// NewRepository constructs a new Repository from an existing sql.DB.
// The caller is responsible for managing the DB connection lifecycle.
func NewRepository(db *sql.DB) *Repository { return &Repository{DB: db} }

// CreateThread starts a new conversation with the given message cap.
func (r *Repository) CreateThread(ctx context.Context, messageCap int) (*pkg.Thread, error) {
	t := pkg.Thread{ID: uuid.NewString(), MessageCap: messageCap}
	err := r.DB.QueryRowContext(ctx,
		`INSERT INTO threads (id, message_cap)
         VALUES ($1, $2)
         RETURNING created_at`,
		t.ID, messageCap,
	).Scan(&t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetThread loads a thread by id.
func (r *Repository) GetThread(ctx context.Context, id string) (*pkg.Thread, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var t pkg.Thread
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, title, message_cap, created_at
         FROM threads
         WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.Title, &t.MessageCap, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateThreadTitle sets the title shown in thread listings.
func (r *Repository) UpdateThreadTitle(ctx context.Context, id, title string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE threads SET title = $1 WHERE id = $2`, title, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendMessage stores a new message in a thread.
func (r *Repository) AppendMessage(ctx context.Context, threadID string, role pkg.MessageRole, content string) (*pkg.Message, error) {
	m := pkg.Message{ThreadID: threadID, Role: role, Content: content}
	err := r.DB.QueryRowContext(ctx,
		`INSERT INTO messages (thread_id, role, content)
         VALUES ($1, $2, $3)
         RETURNING id, created_at`,
		threadID, string(role), content,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CountPatientMessages counts patient messages of a thread for cap
// enforcement.
func (r *Repository) CountPatientMessages(ctx context.Context, threadID string) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*)
         FROM messages
         WHERE thread_id = $1
           AND role = 'patient'`,
		threadID,
	).Scan(&count)
	return count, err
}

// RecentMessages returns the latest messages of a thread, oldest first.
func (r *Repository) RecentMessages(ctx context.Context, threadID string, limit int) ([]pkg.Message, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.DB.QueryContext(ctx,
			`SELECT id, thread_id, role, content, created_at
             FROM (
                 SELECT id, thread_id, role, content, created_at
                 FROM messages
                 WHERE thread_id = $1
                 ORDER BY id DESC
                 LIMIT $2
             ) latest
             ORDER BY id ASC`,
			threadID, limit)
	} else {
		rows, err = r.DB.QueryContext(ctx,
			`SELECT id, thread_id, role, content, created_at
             FROM messages
             WHERE thread_id = $1
             ORDER BY id ASC`,
			threadID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var transcript []pkg.Message
	for rows.Next() {
		var m pkg.Message
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		transcript = append(transcript, m)
	}
	return transcript, rows.Err()
}

// SaveRecommendation stores rec and fills in its ID and CreatedAt.
func (r *Repository) SaveRecommendation(ctx context.Context, rec *pkg.RecommendationRecord) error {
	return r.DB.QueryRowContext(ctx,
		`INSERT INTO recommendations (thread_id, diagnosis, symptoms, severity, specialty, body)
         VALUES ($1, $2, $3, $4, $5, $6)
         RETURNING id, created_at`,
		rec.ThreadID, rec.Diagnosis, rec.Symptoms, rec.Severity, rec.Specialty, rec.Text,
	).Scan(&rec.ID, &rec.CreatedAt)
}

// ListRecommendations returns the recommendations of a thread, oldest first.
func (r *Repository) ListRecommendations(ctx context.Context, threadID string) ([]pkg.RecommendationRecord, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, thread_id, diagnosis, symptoms, severity, specialty, body, created_at
         FROM recommendations
         WHERE thread_id = $1
         ORDER BY id ASC`,
		threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []pkg.RecommendationRecord
	for rows.Next() {
		var rec pkg.RecommendationRecord
		if err := rows.Scan(&rec.ID, &rec.ThreadID, &rec.Diagnosis, &rec.Symptoms,
			&rec.Severity, &rec.Specialty, &rec.Text, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Ping checks connectivity.
func (r *Repository) Ping(ctx context.Context) error { return r.DB.PingContext(ctx) }

// Close closes the underlying pool.
func (r *Repository) Close() error { return r.DB.Close() }

var _ Store = (*Repository)(nil)
