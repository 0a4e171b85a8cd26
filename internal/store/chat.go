package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Lingges1210/tutorlink-sub001/internal/model"
)

// OpenChannel creates the session's channel unless one already exists.
func (s *gormStore) OpenChannel(ctx context.Context, ch *model.ChatChannel) error {
	if ch.ID == "" {
		ch.ID = uuid.NewString()
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "session_id"}}, DoNothing: true}).
		Create(ch).Error
	if err != nil {
		return fmt.Errorf("failed to open chat channel for session %s: %w", ch.SessionID, err)
	}
	return nil
}

// ScheduleChannelClose upserts the session's channel with ch.CloseAt.
func (s *gormStore) ScheduleChannelClose(ctx context.Context, ch *model.ChatChannel) error {
	if ch.ID == "" {
		ch.ID = uuid.NewString()
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"close_at", "updated_at"}),
		}).
		Create(ch).Error
	if err != nil {
		return fmt.Errorf("failed to schedule chat close for session %s: %w", ch.SessionID, err)
	}
	return nil
}

// CloseChannel force-closes the session's channel at the given instant. It
// reports false when there is no channel or it was already closed.
func (s *gormStore) CloseChannel(ctx context.Context, sessionID string, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.ChatChannel{}).
		Where("session_id = ?", sessionID).
		Where("(close_at IS NULL OR close_at > ?)", at).
		Update("close_at", at)
	if res.Error != nil {
		return false, fmt.Errorf("failed to close chat channel for session %s: %w", sessionID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *gormStore) GetChannel(ctx context.Context, id string) (*model.ChatChannel, error) {
	var ch model.ChatChannel
	if err := s.db.WithContext(ctx).First(&ch, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &ch, nil
}

func (s *gormStore) ListChannels(ctx context.Context, userID string) ([]model.ChatChannel, error) {
	var channels []model.ChatChannel
	err := s.db.WithContext(ctx).
		Where("student_id = ? OR tutor_id = ?", userID, userID).
		Order("updated_at DESC").
		Find(&channels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list chat channels: %w", err)
	}
	return channels, nil
}

func (s *gormStore) AddMessage(ctx context.Context, msg *model.ChatMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("failed to store message: %w", err)
		}
		return tx.Model(&model.ChatChannel{}).
			Where("id = ?", msg.ChannelID).
			Update("last_message_at", msg.CreatedAt).Error
	})
}

func (s *gormStore) ListMessages(ctx context.Context, channelID string, p Page) ([]model.ChatMessage, error) {
	q := s.db.WithContext(ctx).Where("channel_id = ?", channelID)
	if p.Before != nil {
		q = q.Where("created_at < ?", *p.Before)
	}
	var msgs []model.ChatMessage
	if err := q.Order("created_at DESC").Limit(p.limit(50, 100)).Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}

// MarkChannelRead records the read receipt for whichever party userID is.
func (s *gormStore) MarkChannelRead(ctx context.Context, ch *model.ChatChannel, userID string, at time.Time) error {
	column := "student_read_at"
	if ch.TutorID == userID {
		column = "tutor_read_at"
	}
	if err := s.db.WithContext(ctx).Model(&model.ChatChannel{}).
		Where("id = ?", ch.ID).
		UpdateColumn(column, at).Error; err != nil {
		return fmt.Errorf("failed to mark channel read: %w", err)
	}
	return nil
}
