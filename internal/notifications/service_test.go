package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/schoolrun/pkg/config"
	"github.com/richxcame/schoolrun/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ========================================
// INTERNAL MOCKS
// ========================================

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) CreateNotification(ctx context.Context, n *Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *mockRepo) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Notification, int64, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]Notification), args.Get(1).(int64), args.Error(2)
}

func (m *mockRepo) MarkRead(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, id)
	return args.Bool(0), args.Error(1)
}

type recordingPublisher struct {
	mu       sync.Mutex
	events   []*Event
	attempts int
	failures int
}

func (p *recordingPublisher) Publish(_ context.Context, e *Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts++
	if p.failures > 0 {
		p.failures--
		return errors.New("broker unavailable")
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type staticLanguage string

func (l staticLanguage) Language(context.Context, uuid.UUID) string { return string(l) }

// ========================================
// TEST HELPERS
// ========================================

var (
	parentID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	rideID   = uuid.MustParse("33333333-3333-3333-3333-333333333333")
)

func newTestService(repo RepositoryInterface, pub Publisher) *Service {
	svc := NewService(repo, pub, nil)
	svc.SetRetryConfig(resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond})
	return svc
}

// ========================================
// NOTIFY TESTS
// ========================================

func TestNotify_StoresAndPublishes(t *testing.T) {
	repo := new(mockRepo)
	repo.On("CreateNotification", mock.Anything, mock.MatchedBy(func(n *Notification) bool {
		return n.UserID == parentID && n.Type == TypeRideCompleted && n.Title == "Rit voltooi"
	})).Return(nil)
	pub := &recordingPublisher{}

	svc := newTestService(repo, pub)
	svc.SetLanguageResolver(staticLanguage("af"))
	svc.Notify(context.Background(), Message{UserID: parentID, Type: TypeRideCompleted, RideID: &rideID, Args: []interface{}{"R45.00"}})
	svc.Wait()

	require.Len(t, pub.events, 1)
	assert.Equal(t, TypeRideCompleted, pub.events[0].Type)
	assert.Contains(t, pub.events[0].Body, "R45.00")
	assert.Equal(t, rideID, *pub.events[0].RideID)
	repo.AssertExpectations(t)
}

func TestNotify_InboxFailureStillPublishes(t *testing.T) {
	repo := new(mockRepo)
	repo.On("CreateNotification", mock.Anything, mock.Anything).Return(errors.New("db down"))
	pub := &recordingPublisher{}

	svc := newTestService(repo, pub)
	svc.Notify(context.Background(), Message{UserID: parentID, Type: TypeRideStarted})
	svc.Wait()

	assert.Len(t, pub.events, 1)
}

func TestNotify_RetriesThenGivesUp(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		published int
		attempts  int
	}{
		{"recovers on third attempt", 2, 1, 3},
		{"gives up after three attempts", 5, 0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockRepo)
			repo.On("CreateNotification", mock.Anything, mock.Anything).Return(nil)
			pub := &recordingPublisher{failures: tt.failures}

			svc := newTestService(repo, pub)
			svc.Notify(context.Background(), Message{UserID: parentID, Type: TypeRideAccepted, Args: []interface{}{"07:30"}})
			svc.Wait()

			assert.Len(t, pub.events, tt.published)
			assert.Equal(t, tt.attempts, pub.attempts)
		})
	}
}

func TestNotify_OpenBreakerSkipsPublisher(t *testing.T) {
	repo := new(mockRepo)
	repo.On("CreateNotification", mock.Anything, mock.Anything).Return(nil)
	pub := &recordingPublisher{failures: 100}
	breaker := resilience.NewBreaker(resilience.Settings{
		Name:             "notifications-test",
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 1,
		SuccessThreshold: 1,
	})

	svc := NewService(repo, pub, breaker)
	svc.SetRetryConfig(resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond})
	svc.Notify(context.Background(), Message{UserID: parentID, Type: TypeRideStarted})
	svc.Wait()

	assert.Equal(t, 1, pub.attempts, "an open circuit is not retried")
}

func TestNotify_CancelledCallerContext(t *testing.T) {
	repo := new(mockRepo)
	repo.On("CreateNotification", mock.Anything, mock.Anything).Return(nil)
	pub := &recordingPublisher{}

	ctx, cancel := context.WithCancel(context.Background())
	svc := newTestService(repo, pub)
	svc.Notify(ctx, Message{UserID: parentID, Type: TypeRideStarted})
	cancel()
	svc.Wait()

	assert.Len(t, pub.events, 1)
}

// ========================================
// INBOX TESTS
// ========================================

func TestMarkRead(t *testing.T) {
	id := uuid.New()

	repo := new(mockRepo)
	repo.On("MarkRead", mock.Anything, parentID, id).Return(false, nil).Once()
	repo.On("MarkRead", mock.Anything, parentID, id).Return(true, nil).Once()
	svc := newTestService(repo, &recordingPublisher{})

	err := svc.MarkRead(context.Background(), parentID, id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notification not found")

	assert.NoError(t, svc.MarkRead(context.Background(), parentID, id))
}

func TestListNotifications(t *testing.T) {
	repo := new(mockRepo)
	repo.On("ListNotifications", mock.Anything, parentID, 20, 0).Return([]Notification{{ID: uuid.New()}}, int64(1), nil)

	out, total, err := newTestService(repo, &recordingPublisher{}).ListNotifications(context.Background(), parentID, 20, 0)

	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, int64(1), total)
}

// ========================================
// PUBLISHER SELECTION TESTS
// ========================================

func TestNewPublisher(t *testing.T) {
	p, err := NewPublisher(config.EventsConfig{Driver: "none"})
	require.NoError(t, err)
	assert.IsType(t, NoopPublisher{}, p)

	p, err = NewPublisher(config.EventsConfig{Driver: "kafka", KafkaBrokers: []string{"localhost:9092"}, Topic: "schoolrun.notifications"})
	require.NoError(t, err)
	assert.IsType(t, &kafkaPublisher{}, p)
	assert.NoError(t, p.Close())

	_, err = NewPublisher(config.EventsConfig{Driver: "pigeon"})
	assert.Error(t, err)
}
