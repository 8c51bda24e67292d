package circuitbreaker

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sony/gobreaker"
)

// Manager owns the breakers of a process, keyed by dependency name.
type Manager struct {
	breakers  map[string]*gobreaker.CircuitBreaker
	listeners []StateChangeListener
	mu        sync.RWMutex
	logger    *slog.Logger
}

// NewManager creates an empty Manager.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		logger:   logger,
	}
}

// Register creates the breaker for name unless it already exists. The first registration
// wins; later calls with a different config are ignored.
func (m *Manager) Register(name string, cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.breakers[name]; exists {
		return
	}

	cfg = cfg.withDefaults()
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			m.handleStateChange(name, convertState(from), convertState(to))
		},
	}
	if cfg.IsFailure != nil {
		isFailure := cfg.IsFailure
		settings.IsSuccessful = func(err error) bool {
			return err == nil || !isFailure(err)
		}
	}

	m.breakers[name] = gobreaker.NewCircuitBreaker(settings)
	m.logger.Debug("circuit breaker registered",
		slog.String("breaker", name),
		slog.Int("consecutive_failures", int(cfg.ConsecutiveFailures)),
		slog.Duration("cooldown", cfg.Cooldown),
	)
}

// Execute runs fn through the named breaker. When the breaker rejects the call, fn is not
// run and the returned error wraps ErrOpen.
func (m *Manager) Execute(name string, fn func() (any, error)) (any, error) {
	m.mu.RLock()
	breaker, exists := m.breakers[name]
	m.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("circuit breaker %q is not registered", name)
	}

	result, err := breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s: %w", name, ErrOpen)
	}
	return result, err
}

// State returns the current state of the named breaker.
func (m *Manager) State(name string) State {
	m.mu.RLock()
	breaker, exists := m.breakers[name]
	m.mu.RUnlock()

	if !exists {
		return StateUnknown
	}
	return convertState(breaker.State())
}

// Counts returns the statistics of the named breaker.
func (m *Manager) Counts(name string) Counts {
	m.mu.RLock()
	breaker, exists := m.breakers[name]
	m.mu.RUnlock()

	if !exists {
		return Counts{}
	}
	return convertCounts(breaker.Counts())
}

// RegisterStateChangeListener adds a listener for every breaker of the manager.
func (m *Manager) RegisterStateChangeListener(listener StateChangeListener) {
	if listener == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, listener)
}

func (m *Manager) handleStateChange(name string, from, to State) {
	attrs := []any{
		slog.String("breaker", name),
		slog.String("from", string(from)),
		slog.String("to", string(to)),
	}
	if to == StateOpen {
		m.logger.Warn("circuit breaker opened", attrs...)
	} else {
		m.logger.Info("circuit breaker state changed", attrs...)
	}

	m.mu.RLock()
	listeners := make([]StateChangeListener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.RUnlock()

	for _, listener := range listeners {
		m.notify(listener, name, from, to)
	}
}

func (m *Manager) notify(listener StateChangeListener, name string, from, to State) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("circuit breaker listener panicked",
				slog.String("breaker", name),
				slog.Any("panic", r),
			)
		}
	}()
	listener.OnStateChange(name, from, to)
}
