package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"docseek/pkg"
)

type threadModel struct {
	ID         string `gorm:"primaryKey;size:36"`
	Title      string `gorm:"not null;default:''"`
	MessageCap int    `gorm:"not null"`
	CreatedAt  time.Time
}

func (threadModel) TableName() string { return "threads" }

type messageModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	ThreadID  string `gorm:"size:36;not null;index:idx_messages_thread"`
	Role      string `gorm:"size:16;not null"`
	Content   string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

func (messageModel) TableName() string { return "messages" }

type recommendationModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	ThreadID  string `gorm:"size:36;not null;index:idx_recommendations_thread"`
	Diagnosis string `gorm:"type:text;not null"`
	Symptoms  string `gorm:"type:text;not null"`
	Severity  string `gorm:"size:16;not null"`
	Specialty string `gorm:"size:128"`
	Body      string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

func (recommendationModel) TableName() string { return "recommendations" }

// memoryDSN is sqlite's private in-memory database. Every connection opening
// it gets a fresh, empty database.
const memoryDSN = ":memory:"

// InitGorm opens a sqlite or mysql database, applies the pool options and
// migrates the chat tables.
func InitGorm(driver, dsn string, opts Options) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported gorm driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	applyOptions(sqlDB, opts)
	if driver == "sqlite" && dsn == memoryDSN {
		// Pin the pool to one connection that is never recycled, so every
		// query sees the same database.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	}
	if err := db.AutoMigrate(&threadModel{}, &messageModel{}, &recommendationModel{}); err != nil {
		return nil, err
	}
	return db, nil
}

// GormStore implements Store with gorm for the sqlite and mysql drivers.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an opened and migrated gorm database.
func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{db: db} }

func (s *GormStore) CreateThread(ctx context.Context, messageCap int) (*pkg.Thread, error) {
	m := threadModel{ID: uuid.NewString(), MessageCap: messageCap}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, err
	}
	return m.toThread(), nil
}

func (s *GormStore) GetThread(ctx context.Context, id string) (*pkg.Thread, error) {
	var m threadModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m.toThread(), nil
}

func (s *GormStore) UpdateThreadTitle(ctx context.Context, id, title string) error {
	res := s.db.WithContext(ctx).Model(&threadModel{}).Where("id = ?", id).Update("title", title)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) AppendMessage(ctx context.Context, threadID string, role pkg.MessageRole, content string) (*pkg.Message, error) {
	m := messageModel{ThreadID: threadID, Role: string(role), Content: content}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, err
	}
	out := m.toMessage()
	return &out, nil
}

func (s *GormStore) CountPatientMessages(ctx context.Context, threadID string) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&messageModel{}).
		Where("thread_id = ? AND role = ?", threadID, string(pkg.RolePatient)).
		Count(&count).Error
	return int(count), err
}

func (s *GormStore) RecentMessages(ctx context.Context, threadID string, limit int) ([]pkg.Message, error) {
	var rows []messageModel
	q := s.db.WithContext(ctx).Where("thread_id = ?", threadID).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]pkg.Message, len(rows))
	for i, m := range rows {
		out[len(rows)-1-i] = m.toMessage()
	}
	return out, nil
}

func (s *GormStore) SaveRecommendation(ctx context.Context, rec *pkg.RecommendationRecord) error {
	m := recommendationModel{
		ThreadID:  rec.ThreadID,
		Diagnosis: rec.Diagnosis,
		Symptoms:  rec.Symptoms,
		Severity:  rec.Severity,
		Specialty: rec.Specialty,
		Body:      rec.Text,
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	rec.ID = m.ID
	rec.CreatedAt = m.CreatedAt
	return nil
}

func (s *GormStore) ListRecommendations(ctx context.Context, threadID string) ([]pkg.RecommendationRecord, error) {
	var rows []recommendationModel
	if err := s.db.WithContext(ctx).Where("thread_id = ?", threadID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]pkg.RecommendationRecord, len(rows))
	for i, m := range rows {
		out[i] = pkg.RecommendationRecord{
			ID:        m.ID,
			ThreadID:  m.ThreadID,
			Diagnosis: m.Diagnosis,
			Symptoms:  m.Symptoms,
			Severity:  m.Severity,
			Specialty: m.Specialty,
			Text:      m.Body,
			CreatedAt: m.CreatedAt,
		}
	}
	return out, nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (m threadModel) toThread() *pkg.Thread {
	return &pkg.Thread{ID: m.ID, Title: m.Title, CreatedAt: m.CreatedAt, MessageCap: m.MessageCap}
}

func (m messageModel) toMessage() pkg.Message {
	return pkg.Message{
		ID:        m.ID,
		ThreadID:  m.ThreadID,
		Role:      pkg.MessageRole(m.Role),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

var _ Store = (*GormStore)(nil)
