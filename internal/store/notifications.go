package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/Lingges1210/tutorlink-sub001/internal/model"
)

func (s *gormStore) CreateNotification(ctx context.Context, n *model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}
	return nil
}

func (s *gormStore) ListNotifications(ctx context.Context, userID string, p Page) ([]model.Notification, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if p.Before != nil {
		q = q.Where("created_at < ?", *p.Before)
	}
	var feed []model.Notification
	if err := q.Order("created_at DESC").Limit(p.limit(20, 50)).Find(&feed).Error; err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return feed, nil
}

func (s *gormStore) CountUnread(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return n, nil
}

func (s *gormStore) MarkNotificationRead(ctx context.Context, userID, id string, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", id, userID).
		Update("read_at", at)
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *gormStore) MarkAllNotificationsRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", at)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// SaveSubscription creates or replaces a browser push subscription.
func (s *gormStore) SaveSubscription(ctx context.Context, sub *model.PushSubscription) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth"}),
	}).Create(sub).Error
	if err != nil {
		return fmt.Errorf("failed to save push subscription: %w", err)
	}
	return nil
}

func (s *gormStore) ListSubscriptions(ctx context.Context, userID string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list push subscriptions: %w", err)
	}
	return subs, nil
}

// DeleteSubscription removes an endpoint regardless of owner, e.g. after the
// push service reports it gone.
func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error; err != nil {
		return fmt.Errorf("failed to delete push subscription: %w", err)
	}
	return nil
}

func (s *gormStore) DeleteUserSubscription(ctx context.Context, userID, endpoint string) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("endpoint = ? AND user_id = ?", endpoint, userID).
		Delete(&model.PushSubscription{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete push subscription: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
