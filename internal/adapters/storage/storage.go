// Package storage persists debate sessions, users and chat messages in
// SQLite via gorm. It backs three narrow core contracts: RoomLookup,
// MessageStore and the authenticator's UserSource.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dkeye/debatehub/internal/domain"
)

type User struct {
	ID       int64  `gorm:"primaryKey"`
	Username string `gorm:"uniqueIndex;size:150"`
}

type DebateSession struct {
	ID      int64 `gorm:"primaryKey"`
	Topic   string
	EndedAt *time.Time
}

type Message struct {
	ID         string `gorm:"primaryKey;size:36"`
	SessionID  int64  `gorm:"index"`
	AuthorID   int64
	AuthorName string
	Content    string
	CreatedAt  time.Time `gorm:"index"`
}

type Store struct {
	db *gorm.DB
}

// Open connects to the SQLite database and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.AutoMigrate(&User{}, &DebateSession{}, &Message{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info().Str("module", "adapters.storage").Str("dsn", dsn).Msg("storage ready")
	return &Store{db: db}, nil
}

// RoomExists reports whether the debate session exists and has not
// ended. An ended session no longer accepts connections.
func (s *Store) RoomExists(ctx context.Context, id domain.RoomID) (bool, error) {
	var sess DebateSession
	err := s.db.WithContext(ctx).First(&sess, int64(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup session %d: %w", id, err)
	}
	return sess.EndedAt == nil, nil
}

// Append durably stores one chat message.
func (s *Store) Append(ctx context.Context, roomID domain.RoomID, author domain.Principal, messageID, text string, at time.Time) error {
	msg := Message{
		ID:         messageID,
		SessionID:  int64(roomID),
		AuthorID:   int64(author.ID),
		AuthorName: author.Username,
		Content:    text,
		CreatedAt:  at,
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// UserByID resolves a principal for the authenticator.
func (s *Store) UserByID(ctx context.Context, id domain.UserID) (domain.Principal, error) {
	var u User
	err := s.db.WithContext(ctx).First(&u, int64(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Principal{}, domain.ErrPrincipalNotFound
	}
	if err != nil {
		return domain.Principal{}, fmt.Errorf("lookup user %d: %w", id, err)
	}
	return domain.Principal{ID: domain.UserID(u.ID), Username: u.Username}, nil
}

// SeedUser and SeedSession exist for dev bootstrap and tests.
func (s *Store) SeedUser(ctx context.Context, id int64, username string) error {
	return s.db.WithContext(ctx).Create(&User{ID: id, Username: username}).Error
}

func (s *Store) SeedSession(ctx context.Context, id int64, topic string) error {
	return s.db.WithContext(ctx).Create(&DebateSession{ID: id, Topic: topic}).Error
}

// MessagesBySession returns the stored messages of a room in timestamp
// order. Presence and broadcast never read it; it exists so operators
// and tests can verify durability.
func (s *Store) MessagesBySession(ctx context.Context, roomID domain.RoomID) ([]Message, error) {
	var out []Message
	err := s.db.WithContext(ctx).
		Where("session_id = ?", int64(roomID)).
		Order("created_at").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return out, nil
}
