package relay

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/course-token-wallet/internal/config"
	"github.com/course-token-wallet/internal/domain/ledger"
	"github.com/course-token-wallet/internal/domain/outbox"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status outbox.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetByEntryID(ctx context.Context, entryID uuid.UUID) (*outbox.Message, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	m.Called(tx)
	return m
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockEventPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockAuditArchiver struct {
	mock.Mock
}

func (m *MockAuditArchiver) Archive(ctx context.Context, entry *ledger.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

type pollerFixture struct {
	poller     *Poller
	outboxRepo *MockOutboxRepo
	publisher  *MockEventPublisher
	archiver   *MockAuditArchiver
}

func newPollerFixture(t *testing.T, maxRetryAttempts int) *pollerFixture {
	t.Helper()

	outboxRepo := new(MockOutboxRepo)
	publisher := new(MockEventPublisher)
	archiver := new(MockAuditArchiver)

	cfg := &config.OutboxConfig{
		PollingInterval:  time.Second,
		BatchSize:        10,
		MaxRetryAttempts: maxRetryAttempts,
	}
	poller, err := NewPoller(cfg, 2, outboxRepo, publisher, archiver, newTestLogger())
	require.NoError(t, err)
	t.Cleanup(poller.Shutdown)

	return &pollerFixture{
		poller:     poller,
		outboxRepo: outboxRepo,
		publisher:  publisher,
		archiver:   archiver,
	}
}

func pendingMessage(t *testing.T, id int64, attempts int) (*outbox.Message, *ledger.Entry) {
	t.Helper()

	entry := ledger.NewEntry(uuid.New(), -100, ledger.KindPurchase, "purchase: intro to Go")
	msg, err := outbox.NewMessage(entry)
	require.NoError(t, err)
	msg.ID = id
	msg.Attempts = attempts
	return msg, entry
}

func TestPoller_RelaysPendingMessage(t *testing.T) {
	f := newPollerFixture(t, 5)
	msg, entry := pendingMessage(t, 1, 0)

	f.outboxRepo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{msg}, nil)
	f.publisher.On("Publish", mock.Anything, entry.AccountID.String(), mock.MatchedBy(func(v interface{}) bool {
		published, ok := v.(*ledger.Entry)
		return ok && published.ID == entry.ID
	})).Return(nil)
	f.archiver.On("Archive", mock.Anything, mock.MatchedBy(func(e *ledger.Entry) bool {
		return e.ID == entry.ID
	})).Return(nil)
	f.outboxRepo.On("UpdateStatus", mock.Anything, int64(1), outbox.StatusPublished).Return(nil)

	err := f.poller.processPendingMessages(context.Background())
	require.NoError(t, err)

	f.publisher.AssertExpectations(t)
	f.archiver.AssertExpectations(t)
	f.outboxRepo.AssertExpectations(t)
}

func TestPoller_EmptyBatchIsNoOp(t *testing.T) {
	f := newPollerFixture(t, 5)

	f.outboxRepo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{}, nil)

	err := f.poller.processPendingMessages(context.Background())
	require.NoError(t, err)

	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestPoller_PublishFailureIncrementsAttempts(t *testing.T) {
	f := newPollerFixture(t, 5)
	msg, entry := pendingMessage(t, 7, 0)

	f.outboxRepo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{msg}, nil)
	f.publisher.On("Publish", mock.Anything, entry.AccountID.String(), mock.Anything).
		Return(errors.New("broker unavailable"))
	f.outboxRepo.On("IncrementAttempts", mock.Anything, int64(7)).Return(nil)

	err := f.poller.processPendingMessages(context.Background())
	require.NoError(t, err)

	// Not yet at the retry ceiling, so the message stays PENDING
	f.outboxRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, int64(7), outbox.StatusFailedToPublish)
	f.archiver.AssertNotCalled(t, "Archive", mock.Anything, mock.Anything)
}

func TestPoller_MaxAttemptsParksMessage(t *testing.T) {
	f := newPollerFixture(t, 3)
	msg, entry := pendingMessage(t, 9, 2)

	f.outboxRepo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{msg}, nil)
	f.publisher.On("Publish", mock.Anything, entry.AccountID.String(), mock.Anything).
		Return(errors.New("broker unavailable"))
	f.outboxRepo.On("IncrementAttempts", mock.Anything, int64(9)).Return(nil)
	f.outboxRepo.On("UpdateStatus", mock.Anything, int64(9), outbox.StatusFailedToPublish).Return(nil)

	err := f.poller.processPendingMessages(context.Background())
	require.NoError(t, err)

	f.outboxRepo.AssertExpectations(t)
}

func TestPoller_UndecodablePayloadParkedImmediately(t *testing.T) {
	f := newPollerFixture(t, 5)
	msg := &outbox.Message{ID: 3, AccountID: uuid.New(), Payload: []byte("not json"), Status: outbox.StatusPending}

	f.outboxRepo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{msg}, nil)
	f.outboxRepo.On("UpdateStatus", mock.Anything, int64(3), outbox.StatusFailedToPublish).Return(nil)

	err := f.poller.processPendingMessages(context.Background())
	require.NoError(t, err)

	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	f.outboxRepo.AssertNotCalled(t, "IncrementAttempts", mock.Anything, mock.Anything)
	f.outboxRepo.AssertExpectations(t)
}

func TestPoller_ArchiveFailureRetries(t *testing.T) {
	f := newPollerFixture(t, 5)
	msg, entry := pendingMessage(t, 11, 0)

	f.outboxRepo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{msg}, nil)
	f.publisher.On("Publish", mock.Anything, entry.AccountID.String(), mock.Anything).Return(nil)
	f.archiver.On("Archive", mock.Anything, mock.Anything).Return(errors.New("mongo timeout"))
	f.outboxRepo.On("IncrementAttempts", mock.Anything, int64(11)).Return(nil)

	err := f.poller.processPendingMessages(context.Background())
	require.NoError(t, err)

	// Publish succeeded but the archive write did not, so the message is retried
	// as a whole; both sinks tolerate the replay.
	f.outboxRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, int64(11), outbox.StatusPublished)
	assert.Equal(t, 0, msg.Attempts)
}
