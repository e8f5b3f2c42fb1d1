package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/course-token-wallet/internal/config"
	"github.com/course-token-wallet/internal/domain/ledger"
	"github.com/course-token-wallet/internal/domain/outbox"
	"github.com/panjf2000/ants/v2"
)

// AuditArchiver mirrors published events into the long-term audit archive
type AuditArchiver interface {
	Archive(ctx context.Context, entry *ledger.Entry) error
}

// Poller drains pending outbox messages to Kafka and the audit archive. Each
// batch is fanned out over a worker pool; a message is marked PUBLISHED only
// after both the Kafka write and the archive write succeed, so a crash between
// the two replays the message. Both sinks are idempotent per entry ID.
type Poller struct {
	outboxRepo       outbox.Repository
	publisher        EventPublisher
	archiver         AuditArchiver
	pool             *ants.Pool
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

// NewPoller creates a new outbox poller backed by a worker pool
func NewPoller(
	cfg *config.OutboxConfig,
	poolSize int,
	outboxRepo outbox.Repository,
	publisher EventPublisher,
	archiver AuditArchiver,
	logger *slog.Logger,
) (*Poller, error) {
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create relay worker pool: %w", err)
	}

	return &Poller{
		outboxRepo:       outboxRepo,
		publisher:        publisher,
		archiver:         archiver,
		pool:             pool,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}, nil
}

// Start begins polling until the context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting outbox relay",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
		"workers", p.pool.Cap(),
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox relay stopping due to context cancellation")
			return
		case <-ticker.C:
			if err := p.processPendingMessages(ctx); err != nil {
				p.logger.Error("Error during batch processing of pending outbox messages", "error", err)
			}
		}
	}
}

// Shutdown releases the worker pool
func (p *Poller) Shutdown() {
	p.logger.Info("Shutting down relay worker pool", "running_workers", p.pool.Running())
	p.pool.Release()
}

func (p *Poller) processPendingMessages(ctx context.Context) error {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending outbox messages: %w", err)
	}

	if len(messages) == 0 {
		p.logger.Debug("No pending outbox messages found")
		return nil
	}

	p.logger.Info("Fetched pending outbox messages", "count", len(messages))

	var wg sync.WaitGroup
	for _, msg := range messages {
		msg := msg
		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			p.relayMessage(ctx, msg)
		})
		if submitErr != nil {
			wg.Done()
			p.logger.Error("Failed to submit outbox message to worker pool", "outbox_id", msg.ID, "error", submitErr)
		}
	}
	wg.Wait()

	return nil
}

// relayMessage pushes one outbox message to Kafka and the audit archive
func (p *Poller) relayMessage(ctx context.Context, msg *outbox.Message) {
	entry, err := msg.GetLedgerEntry()
	if err != nil {
		// A payload that cannot be decoded will never succeed; park it for
		// manual inspection instead of retrying forever.
		p.logger.Error("Failed to decode outbox payload, marking FAILED_TO_PUBLISH",
			"outbox_id", msg.ID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, msg.ID, outbox.StatusFailedToPublish); updateErr != nil {
			p.logger.Error("Failed to update outbox status after decode error", "outbox_id", msg.ID, "error", updateErr)
		}
		return
	}

	err = p.publisher.Publish(ctx, entry.AccountID.String(), entry)
	if err == nil {
		err = p.archiver.Archive(ctx, entry)
	}
	if err != nil {
		p.handlePublishFailure(ctx, msg, err)
		return
	}

	if err := p.outboxRepo.UpdateStatus(ctx, msg.ID, outbox.StatusPublished); err != nil {
		p.logger.Error("Relayed outbox message but failed to mark it PUBLISHED",
			"outbox_id", msg.ID, "entry_id", entry.ID.String(), "error", err,
		)
		return
	}

	p.logger.Info("Relayed outbox message",
		"outbox_id", msg.ID,
		"entry_id", entry.ID.String(),
		"account_id", entry.AccountID.String(),
	)
}

func (p *Poller) handlePublishFailure(ctx context.Context, msg *outbox.Message, pubErr error) {
	p.logger.Error("Failed to relay outbox message",
		"outbox_id", msg.ID, "current_attempts", msg.Attempts, "error", pubErr,
	)

	if err := p.outboxRepo.IncrementAttempts(ctx, msg.ID); err != nil {
		p.logger.Error("Failed to increment attempts for outbox message", "outbox_id", msg.ID, "error", err)
		return
	}

	if msg.Attempts+1 >= p.maxRetryAttempts {
		p.logger.Warn("Max retry attempts reached for outbox message, marking FAILED_TO_PUBLISH",
			"outbox_id", msg.ID, "attempts_made", msg.Attempts+1,
		)
		if err := p.outboxRepo.UpdateStatus(ctx, msg.ID, outbox.StatusFailedToPublish); err != nil {
			p.logger.Error("Failed to update outbox status after max retries", "outbox_id", msg.ID, "error", err)
		}
	}
}
