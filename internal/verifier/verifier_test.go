package verifier_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qazcapital/kyc-onboarding-go/internal/domain"
	"github.com/qazcapital/kyc-onboarding-go/internal/infra/cache"
	"github.com/qazcapital/kyc-onboarding-go/internal/infra/govregistry"
	"github.com/qazcapital/kyc-onboarding-go/internal/infra/memstore"
	"github.com/qazcapital/kyc-onboarding-go/internal/infra/observability"
	"github.com/qazcapital/kyc-onboarding-go/internal/port"
	"github.com/qazcapital/kyc-onboarding-go/internal/service"
	"github.com/qazcapital/kyc-onboarding-go/internal/verifier"
)

// countingPipeline records which profiles it saw.
type countingPipeline struct {
	mu   sync.Mutex
	seen []string
}

func (p *countingPipeline) Verify(_ context.Context, task port.VerificationTask) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, task.ProfileID)
	return nil
}

func pendingInvestor(t *testing.T, store *memstore.Store, id string, createdAt time.Time) {
	t.Helper()
	err := store.CreateInvestorProfile(context.Background(), &domain.InvestorProfile{
		ID:                 id,
		AccountID:          "acct-" + id,
		FirstName:          "Aigerim",
		LastName:           "Bekova",
		DateOfBirth:        time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		PhoneNumber:        "+77011234567",
		IDDocumentType:     "id_card",
		IDDocumentNumber:   "900101300123",
		VerificationStatus: domain.StatusPending,
		CreatedAt:          createdAt,
	})
	require.NoError(t, err)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestQueue_EnqueueFull(t *testing.T) {
	q := verifier.NewQueue(1, observability.NewMetrics())

	err := q.Enqueue(context.Background(), port.VerificationTask{Kind: port.KindInvestor, ProfileID: "a"})
	require.NoError(t, err)

	err = q.Enqueue(context.Background(), port.VerificationTask{Kind: port.KindInvestor, ProfileID: "b"})
	require.ErrorIs(t, err, verifier.ErrQueueFull)
}

func TestRunner_ProcessesEnqueuedTask(t *testing.T) {
	store := memstore.New()
	pendingInvestor(t, store, "inv-1", time.Now().UTC())

	metrics := observability.NewMetrics()
	queue := verifier.NewQueue(8, metrics)
	pipeline := service.NewVerificationService(
		store,
		&govregistry.Stub{},
		&govregistry.Stub{},
		cache.New[any](time.Minute),
		metrics,
		zap.NewNop(),
	)
	runner := verifier.NewRunner(queue, pipeline, store, verifier.Config{
		Workers:       2,
		TaskTimeout:   time.Second,
		SweepInterval: time.Hour,
		SweepDeadline: time.Hour,
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	require.NoError(t, queue.Enqueue(ctx, port.VerificationTask{Kind: port.KindInvestor, ProfileID: "inv-1"}))

	waitFor(t, 2*time.Second, func() bool {
		p, err := store.GetInvestorByID(context.Background(), "inv-1")
		return err == nil && p.VerificationStatus == domain.StatusApproved
	})

	cancel()
	require.NoError(t, <-done)
}

// The sweep is the recovery path for profiles whose enqueue was lost: it
// finds pending profiles older than the deadline and feeds them back in.
func TestRunner_SweepRecoversStalePending(t *testing.T) {
	store := memstore.New()
	pendingInvestor(t, store, "stale-1", time.Now().UTC().Add(-time.Hour))

	metrics := observability.NewMetrics()
	queue := verifier.NewQueue(8, metrics)
	pipeline := &countingPipeline{}
	runner := verifier.NewRunner(queue, pipeline, store, verifier.Config{
		Workers:       1,
		TaskTimeout:   time.Second,
		SweepInterval: 10 * time.Millisecond,
		SweepDeadline: time.Minute,
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	waitFor(t, 2*time.Second, func() bool {
		pipeline.mu.Lock()
		defer pipeline.mu.Unlock()
		return len(pipeline.seen) > 0
	})

	pipeline.mu.Lock()
	require.Contains(t, pipeline.seen, "stale-1")
	pipeline.mu.Unlock()

	cancel()
	require.NoError(t, <-done)
}

// A profile created just now is not stale and must not be swept.
func TestRunner_SweepIgnoresFreshPending(t *testing.T) {
	store := memstore.New()
	pendingInvestor(t, store, "fresh-1", time.Now().UTC())

	metrics := observability.NewMetrics()
	queue := verifier.NewQueue(8, metrics)
	pipeline := &countingPipeline{}
	runner := verifier.NewRunner(queue, pipeline, store, verifier.Config{
		Workers:       1,
		TaskTimeout:   time.Second,
		SweepInterval: 10 * time.Millisecond,
		SweepDeadline: time.Minute,
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)

	pipeline.mu.Lock()
	require.Empty(t, pipeline.seen)
	pipeline.mu.Unlock()

	cancel()
	require.NoError(t, <-done)
}
