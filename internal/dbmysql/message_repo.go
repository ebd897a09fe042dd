package dbmysql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var ErrCursorNotFound = errors.New("cursor message not found")

// MessageRepository persists course messages and serves them newest first.
type MessageRepository interface {
	Save(ctx context.Context, msg *Message) error
	// ListBefore returns up to limit messages of a course, newest first.
	// A non-empty beforeID anchors the page strictly before that message;
	// an empty beforeID returns the most recent page.
	ListBefore(ctx context.Context, courseID string, limit int, beforeID string) ([]*Message, error)
}

type messageRepo struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepo{db: db}
}

func (r *messageRepo) Save(ctx context.Context, msg *Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *messageRepo) ListBefore(ctx context.Context, courseID string, limit int, beforeID string) ([]*Message, error) {
	query := r.db.WithContext(ctx).Where("course_id = ?", courseID)

	if beforeID != "" {
		var anchor Message
		err := r.db.WithContext(ctx).
			Where("message_id = ? AND course_id = ?", beforeID, courseID).
			Take(&anchor).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCursorNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("resolve cursor %s: %w", beforeID, err)
		}
		// Keyset on (created_at, id) so equal timestamps page correctly.
		query = query.Where("created_at < ? OR (created_at = ? AND id < ?)",
			anchor.CreatedAt, anchor.CreatedAt, anchor.ID)
	}

	var messages []*Message
	err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("list messages for %s: %w", courseID, err)
	}
	return messages, nil
}
