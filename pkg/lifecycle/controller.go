// Package lifecycle drives the server process from startup to exit: it runs
// the bootstrap, starts the engine, waits for a termination signal and
// performs one graceful shutdown no matter how many signals arrive.
package lifecycle

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/xenonforlife/Sample-Server-node-opcua/internal/logger"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/addrspace"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/engine"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/metrics"
)

// State is the process lifecycle state. States only move forward.
type State int32

const (
	StateInitializing State = iota
	StateRunning
	StateShutdownRequested
	StateShutdownInProgress
	StateStopped
	StateFailed
)

var stateNames = [...]string{
	"Initializing", "Running", "ShutdownRequested", "ShutdownInProgress", "Stopped", "Failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// terminal reports whether no further transition is possible.
func (s State) terminal() bool {
	return s == StateStopped || s == StateFailed
}

// Exit codes returned by Run.
const (
	ExitOK      = 0
	ExitFailure = 1
)

// Config holds the shutdown settings.
type Config struct {
	// GracePeriod is how long the engine keeps serving after a shutdown
	// request. Default: 10s
	GracePeriod time.Duration `mapstructure:"grace_period" validate:"gte=0"`

	// Reason is published as the server's shutdown reason
	Reason string `mapstructure:"reason"`
}

const (
	DefaultGracePeriod = 10 * time.Second
	DefaultReason      = "Shutdown by administrator"
)

// Options are the collaborators of a Controller.
type Options struct {
	Engine engine.Engine

	// Prepare runs before the engine starts, typically the address space
	// bootstrap. A failure aborts startup; the engine is never started.
	Prepare func(ctx context.Context) error

	// Metrics records state transitions. Nil disables metrics.
	Metrics metrics.LifecycleMetrics

	// Exit terminates the process with the final code. Default: os.Exit
	Exit func(code int)
}

// Controller owns the lifecycle state, the shutdown latch and the process
// exit call.
type Controller struct {
	cfg     Config
	engine  engine.Engine
	prepare func(ctx context.Context) error
	metrics metrics.LifecycleMetrics
	exit    func(int)

	state atomic.Int32

	// requested is the shutdown latch; only the caller that flips it
	// issues the engine shutdown.
	requested atomic.Bool

	// shutdownStarted is closed once done is set.
	shutdownStarted chan struct{}
	done            <-chan struct{}
}

// New creates a Controller in StateInitializing. Panics if opts.Engine is nil.
func New(cfg Config, opts Options) *Controller {
	if opts.Engine == nil {
		panic("engine cannot be nil")
	}
	if cfg.GracePeriod == 0 {
		cfg.GracePeriod = DefaultGracePeriod
	}
	if cfg.Reason == "" {
		cfg.Reason = DefaultReason
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNoopLifecycleMetrics()
	}
	if opts.Exit == nil {
		opts.Exit = os.Exit
	}

	c := &Controller{
		cfg:             cfg,
		engine:          opts.Engine,
		prepare:         opts.Prepare,
		metrics:         opts.Metrics,
		exit:            opts.Exit,
		shutdownStarted: make(chan struct{}),
	}
	c.metrics.SetState(StateInitializing.String(), int(StateInitializing))
	return c
}

// State returns the current lifecycle state. Safe for concurrent use.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// advance moves to next if that is a forward transition from a non-terminal
// state. It reports whether the transition happened.
func (c *Controller) advance(next State) bool {
	for {
		cur := State(c.state.Load())
		if cur.terminal() || next <= cur {
			return false
		}
		if c.state.CompareAndSwap(int32(cur), int32(next)) {
			logger.Debug("Lifecycle: %s -> %s", cur, next)
			c.metrics.SetState(next.String(), int(next))
			return true
		}
	}
}

// Run executes the whole lifecycle and terminates the process through the
// Exit function with the returned code. signals may be nil; cancelling ctx
// counts as a termination signal.
func (c *Controller) Run(ctx context.Context, signals <-chan os.Signal) int {
	code := c.run(ctx, signals)
	logger.Info("Exiting with code %d", code)
	c.exit(code)
	return code
}

func (c *Controller) run(ctx context.Context, signals <-chan os.Signal) int {
	if c.prepare != nil {
		start := time.Now()
		err := c.prepare(ctx)
		c.metrics.RecordBootstrap(time.Since(start), err)
		if err != nil {
			logger.Error("Startup aborted: %v", err)
			c.advance(StateFailed)
			return ExitFailure
		}
	}

	if c.requested.Load() {
		logger.Info("Shutdown requested during startup, engine not started")
		<-c.shutdownStarted
		<-c.done
		c.advance(StateStopped)
		return ExitOK
	}

	if err := c.engine.Start(ctx); err != nil {
		logger.Error("Failed to start server: %v", err)
		c.advance(StateFailed)
		return ExitFailure
	}
	c.advance(StateRunning)

	logger.Info("Server is now listening (press CTRL+C to stop)")
	for _, ep := range c.engine.Endpoints() {
		logger.Info("Endpoint: %s", ep)
	}

	code := ExitOK
	select {
	case sig, ok := <-signals:
		if ok {
			c.metrics.RecordSignal(sig.String())
			c.RequestShutdown(sig.String())
		} else {
			c.RequestShutdown("signal channel closed")
		}
	case <-ctx.Done():
		c.RequestShutdown(ctx.Err().Error())
	case err := <-c.engine.Errors():
		logger.Error("Server failure: %v", err)
		code = ExitFailure
		c.RequestShutdown("engine failure")
	case <-c.shutdownStarted:
	}

	<-c.shutdownStarted
	for {
		select {
		case <-c.done:
			final := StateStopped
			if code != ExitOK {
				final = StateFailed
			}
			c.advance(final)
			logger.Info("Server shutdown completed")
			return code
		case sig, ok := <-signals:
			if !ok {
				signals = nil
				continue
			}
			c.metrics.RecordSignal(sig.String())
			c.RequestShutdown(sig.String())
		}
	}
}

// RequestShutdown starts the shutdown sequence once. Later calls only log the
// remaining countdown. It reports whether this call started the shutdown.
func (c *Controller) RequestShutdown(source string) bool {
	if !c.requested.CompareAndSwap(false, true) {
		logger.Warn("Shutdown already requested, server will stop in %d second(s)",
			c.engine.Status().SecondsTillShutdown)
		return false
	}

	c.advance(StateShutdownRequested)
	logger.Info("Shutdown requested (%s), stopping in %s", source, c.cfg.GracePeriod)

	c.engine.SetShutdownReason(addrspace.NewLocalizedText(c.cfg.Reason))
	c.advance(StateShutdownInProgress)

	c.done = c.engine.Shutdown(c.cfg.GracePeriod)
	close(c.shutdownStarted)
	return true
}
