package booking

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Lingges1210/tutorlink-sub001/internal/model"
	"github.com/Lingges1210/tutorlink-sub001/internal/notification"
	"github.com/Lingges1210/tutorlink-sub001/internal/store"
)

// ChannelView is a channel as seen by one of its parties.
type ChannelView struct {
	model.ChatChannel
	Closed bool `json:"closed"`
	Unread bool `json:"unread"`
}

// Channels lists the user's chat channels, newest activity first.
func (s *Service) Channels(ctx context.Context, userID string) ([]ChannelView, error) {
	channels, err := s.store.ListChannels(ctx, userID)
	if err != nil {
		return nil, s.fail("list_channels", err)
	}
	now := s.clock()
	views := make([]ChannelView, 0, len(channels))
	for _, ch := range channels {
		closed := ch.ClosedAt(now)
		views = append(views, ChannelView{
			ChatChannel: ch,
			Closed:      closed,
			// Closed channels never badge.
			Unread: !closed && unread(&ch, userID),
		})
	}
	return views, nil
}

func unread(ch *model.ChatChannel, userID string) bool {
	if ch.LastMessageAt == nil {
		return false
	}
	readAt := ch.StudentReadAt
	if ch.TutorID == userID {
		readAt = ch.TutorReadAt
	}
	return readAt == nil || readAt.Before(*ch.LastMessageAt)
}

// Messages pages through a channel the user belongs to.
func (s *Service) Messages(ctx context.Context, userID, channelID string, before *time.Time, limit int) ([]model.ChatMessage, error) {
	if _, err := s.channel(ctx, userID, channelID); err != nil {
		return nil, err
	}
	msgs, err := s.store.ListMessages(ctx, channelID, store.Page{Before: before, Limit: limit})
	if err != nil {
		return nil, s.fail("list_messages", err)
	}
	return msgs, nil
}

// PostMessage adds a message to an open channel and notifies the other party.
func (s *Service) PostMessage(ctx context.Context, userID, channelID, body string) (*model.ChatMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, Validationf("Message cannot be empty.")
	}
	if utf8.RuneCountInString(body) > 2000 {
		return nil, Validationf("Message must be at most 2000 characters.")
	}
	ch, err := s.channel(ctx, userID, channelID)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	if ch.ClosedAt(now) {
		return nil, Conflictf("This chat is closed.")
	}

	msg := &model.ChatMessage{ChannelID: ch.ID, SenderID: userID, Body: body, CreatedAt: now}
	if err := s.store.AddMessage(ctx, msg); err != nil {
		return nil, s.fail("post_message", err)
	}
	if err := s.store.MarkChannelRead(ctx, ch, userID, now); err != nil {
		return nil, s.fail("post_message", err)
	}

	other := ch.StudentID
	if other == userID {
		other = ch.TutorID
	}
	s.notify.Notify(notification.Notice{
		UserID:    other,
		Kind:      "chat.message",
		Title:     "New message",
		Body:      preview(body),
		SessionID: ch.SessionID,
	})
	return msg, nil
}

// MarkRead records that the user has seen the channel up to now.
func (s *Service) MarkRead(ctx context.Context, userID, channelID string) error {
	ch, err := s.channel(ctx, userID, channelID)
	if err != nil {
		return err
	}
	if err := s.store.MarkChannelRead(ctx, ch, userID, s.clock()); err != nil {
		return s.fail("mark_read", err)
	}
	return nil
}

func (s *Service) channel(ctx context.Context, userID, channelID string) (*model.ChatChannel, error) {
	ch, err := s.store.GetChannel(ctx, channelID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, NotFoundf("Chat not found.")
	}
	if err != nil {
		return nil, s.fail("channel", err)
	}
	if !ch.Member(userID) {
		return nil, NotFoundf("Chat not found.")
	}
	return ch, nil
}

func preview(body string) string {
	const max = 120
	if utf8.RuneCountInString(body) <= max {
		return body
	}
	r := []rune(body)
	return string(r[:max]) + "…"
}
