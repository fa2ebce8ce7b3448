package db

import (
	"context"
	"errors"

	"docseek/pkg"
)

// ErrNotFound is returned when a thread does not exist.
var ErrNotFound = errors.New("not found")

// Store persists threads, their messages and the recommendations made in
// them. Repository (Postgres) and GormStore (sqlite, mysql) implement it.
type Store interface {
	CreateThread(ctx context.Context, messageCap int) (*pkg.Thread, error)
	GetThread(ctx context.Context, id string) (*pkg.Thread, error)
	UpdateThreadTitle(ctx context.Context, id, title string) error

	AppendMessage(ctx context.Context, threadID string, role pkg.MessageRole, content string) (*pkg.Message, error)
	CountPatientMessages(ctx context.Context, threadID string) (int, error)
	// RecentMessages returns at most limit of the latest messages of a
	// thread, oldest first. A limit <= 0 returns the whole transcript.
	RecentMessages(ctx context.Context, threadID string, limit int) ([]pkg.Message, error)

	SaveRecommendation(ctx context.Context, rec *pkg.RecommendationRecord) error
	ListRecommendations(ctx context.Context, threadID string) ([]pkg.RecommendationRecord, error)

	Ping(ctx context.Context) error
	Close() error
}
