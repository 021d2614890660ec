package notifications

import (
	"context"
	"log/slog"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type Service struct {
	store  StoreAPI
	Mailer Mailer
	From   string
}

func New(store StoreAPI, mailer Mailer, from string) *Service {
	if from == "" {
		from = "no-reply@perftrack.local"
	}
	return &Service{store: store, Mailer: mailer, From: from}
}

// Notify records an in-app notification and, when a mailer is configured,
// mirrors it to the user's email. Email failures are logged and swallowed so
// the triggering operation never rolls back over a delivery problem.
func (s *Service) Notify(ctx context.Context, userID, ntype, title, body string) error {
	if userID == "" {
		return nil
	}
	if err := s.store.CreateNotification(ctx, userID, ntype, title, body); err != nil {
		return err
	}

	if s.Mailer == nil {
		return nil
	}
	email, err := s.store.UserEmail(ctx, userID)
	if err != nil {
		slog.Warn("notification email lookup failed", "err", err)
		return nil
	}
	if email == "" {
		return nil
	}
	if err := s.Mailer.Send(ctx, s.From, email, title, body); err != nil {
		slog.Warn("notification email send failed", "err", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListNotifications(ctx, userID, unreadOnly, limit, offset)
}

func (s *Service) CountUnread(ctx context.Context, userID string) (int, error) {
	return s.store.CountUnread(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID, notificationID string) error {
	return s.store.MarkRead(ctx, userID, notificationID)
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) error {
	return s.store.MarkAllRead(ctx, userID)
}
