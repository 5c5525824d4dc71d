package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/BigBr41n/Dz-Stores-Finder/internal/domain/user"
	"github.com/BigBr41n/Dz-Stores-Finder/internal/metrics"
	"github.com/BigBr41n/Dz-Stores-Finder/internal/retry"
)

var ErrQueueFull = errors.New("mail queue is full")

const (
	kindActivation      = "activation"
	kindReset           = "reset"
	kindPasswordChanged = "password_changed"
)

type mailJob struct {
	kind  string
	email string
	name  string
	token string
}

// MailQueue delivers notifications off the request path. It satisfies
// user.Notifier; enqueueing never blocks.
type MailQueue struct {
	jobs      chan mailJob
	next      user.Notifier
	log       *zap.Logger
	attempts  int
	baseDelay time.Duration
}

func NewMailQueue(next user.Notifier, size int, log *zap.Logger) *MailQueue {
	if size <= 0 {
		size = 100
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &MailQueue{
		jobs:      make(chan mailJob, size),
		next:      next,
		log:       log.Named("mail_queue"),
		attempts:  3,
		baseDelay: 500 * time.Millisecond,
	}
}

func (q *MailQueue) SendActivation(_ context.Context, email, name, token string) error {
	return q.enqueue(mailJob{kind: kindActivation, email: email, name: name, token: token})
}

func (q *MailQueue) SendResetToken(_ context.Context, email, name, token string) error {
	return q.enqueue(mailJob{kind: kindReset, email: email, name: name, token: token})
}

func (q *MailQueue) NotifyPasswordChanged(_ context.Context, email, name string) error {
	return q.enqueue(mailJob{kind: kindPasswordChanged, email: email, name: name})
}

func (q *MailQueue) enqueue(job mailJob) error {
	select {
	case q.jobs <- job:
		metrics.SetMailQueueDepth(len(q.jobs))
		return nil
	default:
		return ErrQueueFull
	}
}

// Run drains the queue until ctx is cancelled.
func (q *MailQueue) Run(ctx context.Context) {
	q.log.Info("mail queue started")
	for {
		select {
		case <-ctx.Done():
			q.log.Info("mail queue stopped", zap.Int("pending", len(q.jobs)))
			return
		case job := <-q.jobs:
			metrics.SetMailQueueDepth(len(q.jobs))
			q.deliver(ctx, job)
		}
	}
}

func (q *MailQueue) deliver(ctx context.Context, job mailJob) {
	err := retry.DoWithRetry(ctx, q.attempts, q.baseDelay, func() error {
		return q.send(ctx, job)
	})
	metrics.IncMailDelivery(job.kind, err)
	if err != nil {
		q.log.Error("mail delivery failed",
			zap.String("kind", job.kind),
			zap.String("email", job.email),
			zap.Error(err),
		)
		return
	}
	q.log.Debug("mail delivered", zap.String("kind", job.kind), zap.String("email", job.email))
}

func (q *MailQueue) send(ctx context.Context, job mailJob) error {
	switch job.kind {
	case kindActivation:
		return q.next.SendActivation(ctx, job.email, job.name, job.token)
	case kindReset:
		return q.next.SendResetToken(ctx, job.email, job.name, job.token)
	default:
		return q.next.NotifyPasswordChanged(ctx, job.email, job.name)
	}
}
