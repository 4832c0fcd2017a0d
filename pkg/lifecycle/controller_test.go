package lifecycle

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/addrspace"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/engine"
)

// fakeEngine implements engine.Engine and records every call.
type fakeEngine struct {
	startErr error

	starts    atomic.Int32
	shutdowns atomic.Int32

	mu     sync.Mutex
	grace  time.Duration
	reason addrspace.LocalizedText

	// release closes the shutdown completion channel
	release chan struct{}
	errs    chan error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		release: make(chan struct{}),
		errs:    make(chan error, 1),
	}
}

func (f *fakeEngine) Start(ctx context.Context) error {
	f.starts.Add(1)
	return f.startErr
}

func (f *fakeEngine) Shutdown(grace time.Duration) <-chan struct{} {
	f.shutdowns.Add(1)
	f.mu.Lock()
	f.grace = grace
	f.mu.Unlock()
	return f.release
}

func (f *fakeEngine) Status() engine.ServerStatus {
	return engine.ServerStatus{State: engine.StateShutdown, SecondsTillShutdown: 7}
}

func (f *fakeEngine) SetShutdownReason(reason addrspace.LocalizedText) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reason = reason
}

func (f *fakeEngine) Endpoints() []string   { return []string{"opc.http://localhost:4840/UA"} }
func (f *fakeEngine) Errors() <-chan error { return f.errs }

// recordingMetrics captures the published states.
type recordingMetrics struct {
	mu        sync.Mutex
	states    []string
	bootstrap []error
	signals   []string
}

func (m *recordingMetrics) SetState(name string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, name)
}

func (m *recordingMetrics) RecordBootstrap(_ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bootstrap = append(m.bootstrap, err)
}

func (m *recordingMetrics) RecordSignal(signal string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signals = append(m.signals, signal)
}

type exitRecorder struct {
	codes []int
}

func (e *exitRecorder) exit(code int) { e.codes = append(e.codes, code) }

func runAsync(c *Controller, ctx context.Context, signals <-chan os.Signal) <-chan int {
	result := make(chan int, 1)
	go func() { result <- c.Run(ctx, signals) }()
	return result
}

func waitCode(t *testing.T, result <-chan int) int {
	t.Helper()
	select {
	case code := <-result:
		return code
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
		return -1
	}
}

func TestController_CleanShutdown(t *testing.T) {
	eng := newFakeEngine()
	m := &recordingMetrics{}
	exits := &exitRecorder{}
	c := New(Config{}, Options{Engine: eng, Metrics: m, Exit: exits.exit})

	signals := make(chan os.Signal, 1)
	result := runAsync(c, context.Background(), signals)

	require.Eventually(t, func() bool { return c.State() == StateRunning }, time.Second, time.Millisecond)

	signals <- syscall.SIGINT
	require.Eventually(t, func() bool { return c.State() == StateShutdownInProgress }, time.Second, time.Millisecond)
	close(eng.release)

	assert.Equal(t, ExitOK, waitCode(t, result))
	assert.Equal(t, []int{ExitOK}, exits.codes)
	assert.Equal(t, StateStopped, c.State())
	assert.Equal(t, int32(1), eng.shutdowns.Load())

	eng.mu.Lock()
	assert.Equal(t, DefaultGracePeriod, eng.grace)
	assert.Equal(t, addrspace.NewLocalizedText(DefaultReason), eng.reason)
	eng.mu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Equal(t, []string{
		"Initializing", "Running", "ShutdownRequested", "ShutdownInProgress", "Stopped",
	}, m.states)
	assert.Equal(t, []string{"interrupt"}, m.signals)
}

func TestController_RepeatedSignalsShutdownOnce(t *testing.T) {
	eng := newFakeEngine()
	exits := &exitRecorder{}
	c := New(Config{GracePeriod: time.Second}, Options{Engine: eng, Exit: exits.exit})

	signals := make(chan os.Signal, 2)
	result := runAsync(c, context.Background(), signals)
	require.Eventually(t, func() bool { return c.State() == StateRunning }, time.Second, time.Millisecond)

	signals <- syscall.SIGINT
	signals <- syscall.SIGTERM
	require.Eventually(t, func() bool { return len(signals) == 0 }, time.Second, time.Millisecond)

	assert.Equal(t, int32(1), eng.shutdowns.Load())
	close(eng.release)

	assert.Equal(t, ExitOK, waitCode(t, result))
	assert.Equal(t, int32(1), eng.shutdowns.Load())
}

func TestController_ConcurrentRequests(t *testing.T) {
	eng := newFakeEngine()
	c := New(Config{}, Options{Engine: eng, Exit: func(int) {}})

	var started atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.RequestShutdown("test") {
				started.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), started.Load())
	assert.Equal(t, int32(1), eng.shutdowns.Load())
}

func TestController_StartFailure(t *testing.T) {
	eng := newFakeEngine()
	eng.startErr = errors.New("bind: address already in use")
	exits := &exitRecorder{}
	c := New(Config{}, Options{Engine: eng, Exit: exits.exit})

	code := c.Run(context.Background(), nil)

	assert.Equal(t, ExitFailure, code)
	assert.Equal(t, []int{ExitFailure}, exits.codes)
	assert.Equal(t, StateFailed, c.State())
	assert.Equal(t, int32(0), eng.shutdowns.Load())
}

func TestController_PrepareFailureSkipsStart(t *testing.T) {
	eng := newFakeEngine()
	m := &recordingMetrics{}
	exits := &exitRecorder{}
	prepareErr := addrspace.NotFoundError(addrspace.MustParseNodeID("ns=5;i=5003"))
	c := New(Config{}, Options{
		Engine:  eng,
		Metrics: m,
		Exit:    exits.exit,
		Prepare: func(context.Context) error { return prepareErr },
	})

	code := c.Run(context.Background(), nil)

	assert.Equal(t, ExitFailure, code)
	assert.Equal(t, int32(0), eng.starts.Load(), "engine must not start after a failed bootstrap")
	assert.Equal(t, StateFailed, c.State())
	assert.Equal(t, []error{prepareErr}, m.bootstrap)
}

func TestController_ContextCancel(t *testing.T) {
	eng := newFakeEngine()
	close(eng.release)
	c := New(Config{}, Options{Engine: eng, Exit: func(int) {}})

	ctx, cancel := context.WithCancel(context.Background())
	result := runAsync(c, ctx, nil)
	require.Eventually(t, func() bool { return c.State() == StateRunning }, time.Second, time.Millisecond)

	cancel()
	assert.Equal(t, ExitOK, waitCode(t, result))
	assert.Equal(t, StateStopped, c.State())
}

func TestController_EngineFailure(t *testing.T) {
	eng := newFakeEngine()
	close(eng.release)
	c := New(Config{}, Options{Engine: eng, Exit: func(int) {}})

	result := runAsync(c, context.Background(), nil)
	require.Eventually(t, func() bool { return c.State() == StateRunning }, time.Second, time.Millisecond)

	eng.errs <- errors.New("listener closed")
	assert.Equal(t, ExitFailure, waitCode(t, result))
	assert.Equal(t, StateFailed, c.State())
	assert.Equal(t, int32(1), eng.shutdowns.Load())
}

func TestController_StatesNeverMoveBackwards(t *testing.T) {
	c := New(Config{}, Options{Engine: newFakeEngine(), Exit: func(int) {}})

	assert.True(t, c.advance(StateRunning))
	assert.True(t, c.advance(StateShutdownRequested))
	assert.False(t, c.advance(StateRunning))
	assert.True(t, c.advance(StateStopped))
	assert.False(t, c.advance(StateFailed), "Stopped is terminal")
	assert.Equal(t, StateStopped, c.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "ShutdownInProgress", StateShutdownInProgress.String())
	assert.Equal(t, "State(42)", State(42).String())
}
