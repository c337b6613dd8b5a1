package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/schoolrun/pkg/common"
	"github.com/richxcame/schoolrun/pkg/i18n"
	"github.com/richxcame/schoolrun/pkg/logger"
	"github.com/richxcame/schoolrun/pkg/resilience"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// Service records notifications in the user's inbox and publishes them to
// the broker. Delivery is best-effort: failures are logged and counted,
// never returned to the caller.
type Service struct {
	repo      RepositoryInterface
	publisher Publisher
	breaker   *resilience.Breaker
	retry     resilience.RetryConfig
	langs     LanguageResolver
	now       func() time.Time
	inflight  sync.WaitGroup
}

// NewService creates a new notifications service
func NewService(repo RepositoryInterface, publisher Publisher, breaker *resilience.Breaker) *Service {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	return &Service{
		repo:      repo,
		publisher: publisher,
		breaker:   breaker,
		retry:     resilience.DefaultRetryConfig(),
		now:       time.Now,
	}
}

// SetLanguageResolver enables localised notification text
func (s *Service) SetLanguageResolver(r LanguageResolver) {
	s.langs = r
}

// SetRetryConfig overrides the publish retry policy
func (s *Service) SetRetryConfig(cfg resilience.RetryConfig) {
	s.retry = cfg
}

// Notify stores the notification and publishes it in the background
func (s *Service) Notify(ctx context.Context, m Message) {
	lang := i18n.DefaultLang
	if s.langs != nil {
		lang = s.langs.Language(ctx, m.UserID)
	}

	n := &Notification{
		ID:        uuid.New(),
		UserID:    m.UserID,
		Type:      m.Type,
		Title:     i18n.Translate("notification."+string(m.Type)+".title", lang),
		Body:      i18n.Translate("notification."+string(m.Type)+".body", lang, m.Args...),
		RideID:    m.RideID,
		CreatedAt: s.now(),
	}

	if err := s.repo.CreateNotification(ctx, n); err != nil {
		deliveriesTotal.WithLabelValues(string(n.Type), "inbox", "failed").Inc()
		logger.WithContext(ctx).Error("failed to store notification",
			zap.String("user_id", n.UserID.String()),
			zap.String("type", string(n.Type)),
			zap.Error(err),
		)
	} else {
		deliveriesTotal.WithLabelValues(string(n.Type), "inbox", "ok").Inc()
	}

	event := &Event{
		ID:         n.ID,
		Type:       n.Type,
		UserID:     n.UserID,
		RideID:     n.RideID,
		Title:      n.Title,
		Body:       n.Body,
		OccurredAt: n.CreatedAt,
	}

	s.inflight.Add(1)
	go func(ctx context.Context) {
		defer s.inflight.Done()
		s.publish(ctx, event)
	}(context.WithoutCancel(ctx))
}

func (s *Service) publish(ctx context.Context, e *Event) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := resilience.Retry(ctx, s.retry, func(ctx context.Context) error {
		if s.breaker == nil {
			return s.publisher.Publish(ctx, e)
		}
		return s.breaker.Execute(ctx, func(ctx context.Context) error {
			return s.publisher.Publish(ctx, e)
		})
	})
	if err != nil {
		deliveriesTotal.WithLabelValues(string(e.Type), "publish", "failed").Inc()
		logger.WithContext(ctx).Warn("failed to publish notification",
			zap.String("event_id", e.ID.String()),
			zap.String("type", string(e.Type)),
			zap.Error(err),
		)
		return
	}
	deliveriesTotal.WithLabelValues(string(e.Type), "publish", "ok").Inc()
}

// Wait blocks until background publishes finish
func (s *Service) Wait() {
	s.inflight.Wait()
}

// Close waits for in-flight publishes and closes the broker connection
func (s *Service) Close() error {
	s.Wait()
	return s.publisher.Close()
}

// ListNotifications returns a page of the user's inbox
func (s *Service) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Notification, int64, error) {
	out, total, err := s.repo.ListNotifications(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, common.NewInternalError("failed to list notifications", err)
	}
	return out, total, nil
}

// MarkRead flags a notification as read
func (s *Service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	ok, err := s.repo.MarkRead(ctx, userID, id)
	if err != nil {
		return common.NewInternalError("failed to mark notification read", err)
	}
	if !ok {
		return common.NewNotFoundError("notification not found", nil)
	}
	return nil
}
