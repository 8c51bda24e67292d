package commands

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	relayStarted  chan struct{}
	reaperStarted chan struct{}
}

func (f *fakeRunner) Start(ctx context.Context) error {
	close(f.relayStarted)
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeRunner) StartReaper(ctx context.Context) error {
	close(f.reaperStarted)
	<-ctx.Done()
	return ctx.Err()
}

func TestRunRelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &fakeRunner{relayStarted: make(chan struct{}), reaperStarted: make(chan struct{})}
	metrics := newFakeService(nil)

	done := make(chan error, 1)
	go func() {
		done <- RunRelay(ctx, testLogger(), time.Second, runner, metrics)
	}()

	<-runner.relayStarted
	<-runner.reaperStarted
	cancel()

	require.NoError(t, <-done)
	assert.Equal(t, 1, metrics.shutdownCount())
}
