package commands

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/allisson/orderflow/internal/outbox/domain"
	outboxUseCase "github.com/allisson/orderflow/internal/outbox/usecase"
)

type mockRelayUseCase struct {
	mock.Mock
}

func (m *mockRelayUseCase) RunOnce(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockRelayUseCase) ReapStuck(ctx context.Context, olderThan time.Duration, limit int) (int64, error) {
	args := m.Called(ctx, olderThan, limit)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRelayUseCase) ResetFailed(ctx context.Context, limit int) (int64, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRelayUseCase) Stats(ctx context.Context) (map[domain.OutboxEventStatus]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.OutboxEventStatus]int64), args.Error(1)
}

var _ outboxUseCase.RelayUseCase = (*mockRelayUseCase)(nil)

// fakeService blocks in Start until Shutdown is called, like an HTTP server.
type fakeService struct {
	startErr error

	mu        sync.Mutex
	started   bool
	shutdowns int
	stopped   chan struct{}
	once      sync.Once
}

func newFakeService(startErr error) *fakeService {
	return &fakeService{startErr: startErr, stopped: make(chan struct{})}
}

func (f *fakeService) Start(ctx context.Context) error {
	f.mu.Lock()
	f.started = true
	f.mu.Unlock()

	if f.startErr != nil {
		return f.startErr
	}
	<-f.stopped
	return nil
}

func (f *fakeService) Shutdown(ctx context.Context) error {
	f.mu.Lock()
	f.shutdowns++
	f.mu.Unlock()
	f.once.Do(func() { close(f.stopped) })
	return nil
}

func (f *fakeService) shutdownCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shutdowns
}
