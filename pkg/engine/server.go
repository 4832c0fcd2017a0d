package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/xenonforlife/Sample-Server-node-opcua/internal/logger"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/adapter"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/addrspace"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/nodeset"
)

// Engine is the protocol engine driven by the lifecycle controller.
type Engine interface {
	// Start binds every endpoint and begins serving. Bind failures are
	// returned synchronously and leave the engine in StateFailed.
	Start(ctx context.Context) error

	// Shutdown announces the shutdown, waits for the grace period while
	// counting SecondsTillShutdown down, then stops every endpoint. The
	// returned channel is closed when the engine has fully stopped.
	// Repeated calls return the same channel.
	Shutdown(grace time.Duration) <-chan struct{}

	// Status returns a snapshot of the server status.
	Status() ServerStatus

	// SetShutdownReason records the reason exposed during shutdown.
	SetShutdownReason(reason addrspace.LocalizedText)

	// Endpoints returns the URLs of the registered endpoints.
	Endpoints() []string

	// Errors delivers endpoint failures that happen after a successful Start.
	Errors() <-chan error
}

// Config holds the engine settings.
type Config struct {
	// ApplicationURI identifies this server instance
	ApplicationURI string `mapstructure:"application_uri" validate:"required"`

	// ApplicationName is the human readable server name
	ApplicationName string `mapstructure:"application_name"`

	BuildInfo BuildInfo `mapstructure:"build_info"`

	// StopTimeout bounds how long endpoints get to drain in-flight requests
	StopTimeout time.Duration `mapstructure:"stop_timeout" validate:"gte=0"`

	// TickInterval is the status clock period. Zero means one second.
	TickInterval time.Duration `mapstructure:"tick_interval" validate:"gte=0"`
}

const (
	defaultStopTimeout  = 30 * time.Second
	defaultTickInterval = time.Second

	// errBuffer bounds queued runtime failures; later ones are dropped
	errBuffer = 8
)

// Server is the Engine implementation. It manages the lifecycle of the
// endpoint adapters that share one address space.
//
// Lifecycle:
//  1. Creation: New() with the address space
//  2. Registration: AddAdapter() for each endpoint
//  3. Startup: Start() binds all adapters and serves them concurrently
//  4. Shutdown: Shutdown() counts down the grace period, then stops all
//     adapters in reverse registration order
//
// Every status change is mirrored into the Server object variables of
// namespace 0 when those nodes exist.
type Server struct {
	as  *addrspace.AddressSpace
	cfg Config

	// mu protects adapters, started and status
	mu       sync.RWMutex
	adapters []adapter.Adapter
	started  bool
	status   ServerStatus

	errs chan error

	serveCtx    context.Context
	serveCancel context.CancelFunc
	wg          sync.WaitGroup

	shutdownOnce sync.Once
	done         chan struct{}
}

var _ Engine = (*Server)(nil)

// New creates a Server. Panics if as is nil.
func New(as *addrspace.AddressSpace, cfg Config) *Server {
	if as == nil {
		panic("address space cannot be nil")
	}
	if cfg.StopTimeout == 0 {
		cfg.StopTimeout = defaultStopTimeout
	}
	if cfg.TickInterval == 0 {
		cfg.TickInterval = defaultTickInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		as:       as,
		cfg:      cfg,
		adapters: make([]adapter.Adapter, 0, 2),
		status: ServerStatus{
			State:     StateUnknown,
			BuildInfo: cfg.BuildInfo,
		},
		errs:        make(chan error, errBuffer),
		serveCtx:    ctx,
		serveCancel: cancel,
		done:        make(chan struct{}),
	}
}

// AddAdapter registers an endpoint adapter. Duplicate protocols and port
// conflicts are rejected. Panics if called after Start.
func (s *Server) AddAdapter(a adapter.Adapter) error {
	if a == nil {
		panic("adapter cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		panic("cannot add adapter after Start() has been called")
	}

	protocol := a.Protocol()
	port := a.Port()

	for _, existing := range s.adapters {
		if existing.Protocol() == protocol {
			return fmt.Errorf("adapter for protocol %s already registered", protocol)
		}
	}

	for _, existing := range s.adapters {
		if existing.Port() == port {
			return fmt.Errorf("port %d already in use by %s adapter",
				port, existing.Protocol())
		}
	}

	a.SetAddressSpace(s.as)
	s.adapters = append(s.adapters, a)

	logger.Info("Registered %s adapter on port %d", protocol, port)
	return nil
}

// Adapters returns a snapshot of the registered adapters.
func (s *Server) Adapters() []adapter.Adapter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	return adapters
}

// Start binds every adapter, publishes the Running state and starts serving.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("engine already started")
	}
	s.started = true
	if len(s.adapters) == 0 {
		s.status.State = StateNoConfiguration
		s.mu.Unlock()
		s.mirror()
		return errors.New("no adapters registered; call AddAdapter() before Start()")
	}
	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	s.mu.Unlock()

	logger.Info("Starting engine with %d adapter(s)", len(adapters))

	for i, a := range adapters {
		if err := a.Listen(ctx); err != nil {
			logger.Error("%s adapter failed to bind port %d: %v", a.Protocol(), a.Port(), err)
			s.stopAdapters(adapters[:i])
			s.serveCancel()

			s.mu.Lock()
			s.status.State = StateFailed
			s.mu.Unlock()
			s.mirror()
			return fmt.Errorf("%s adapter: %w", a.Protocol(), err)
		}
	}

	now := time.Now().UTC()
	s.mu.Lock()
	s.status.StartTime = now
	s.status.CurrentTime = now
	s.status.State = StateRunning
	s.mu.Unlock()
	s.mirror()

	for _, a := range adapters {
		s.wg.Add(1)
		go s.serve(a)
	}

	s.wg.Add(1)
	go s.clock()

	for _, a := range adapters {
		logger.Info("Listening on %s", a.Endpoint())
	}
	return nil
}

func (s *Server) serve(a adapter.Adapter) {
	defer s.wg.Done()

	protocol := a.Protocol()
	logger.Debug("Serving %s adapter on port %d", protocol, a.Port())

	err := a.Serve(s.serveCtx)
	switch {
	case err == nil:
		logger.Info("%s adapter stopped", protocol)
	case errors.Is(err, context.Canceled) || s.serveCtx.Err() != nil:
		logger.Debug("%s adapter stopped gracefully", protocol)
	default:
		logger.Error("%s adapter failed: %v", protocol, err)
		select {
		case s.errs <- fmt.Errorf("%s adapter error: %w", protocol, err):
		default:
		}
	}
}

// clock refreshes CurrentTime until serving ends.
func (s *Server) clock() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.serveCtx.Done():
			return
		case t := <-ticker.C:
			s.mu.Lock()
			s.status.CurrentTime = t.UTC()
			s.mu.Unlock()
			s.mirrorValue(nodeset.CurrentTime, addrspace.NewDateTime(t))
		}
	}
}

// Shutdown starts the shutdown sequence once and returns its completion channel.
func (s *Server) Shutdown(grace time.Duration) <-chan struct{} {
	s.shutdownOnce.Do(func() {
		go s.shutdown(grace)
	})
	return s.done
}

func (s *Server) shutdown(grace time.Duration) {
	defer close(s.done)

	deadline := time.Now().Add(grace)

	s.mu.Lock()
	s.status.State = StateShutdown
	s.status.SecondsTillShutdown = secondsUntil(deadline)
	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	started := s.started
	s.mu.Unlock()
	s.mirror()

	logger.Info("Shutting down in %s", grace)

	if grace > 0 {
		ticker := time.NewTicker(s.cfg.TickInterval)
		timer := time.NewTimer(grace)
		for counting := true; counting; {
			select {
			case <-ticker.C:
				s.countdown(deadline)
			case <-timer.C:
				counting = false
			}
		}
		ticker.Stop()
	}

	if started {
		s.stopAdapters(adapters)
	}
	s.serveCancel()

	logger.Debug("Waiting for all adapters to complete shutdown")
	s.wg.Wait()

	s.mu.Lock()
	s.status.SecondsTillShutdown = 0
	s.status.CurrentTime = time.Now().UTC()
	s.mu.Unlock()
	s.mirror()

	logger.Info("Engine stopped")
}

func (s *Server) countdown(deadline time.Time) {
	secs := secondsUntil(deadline)

	s.mu.Lock()
	changed := s.status.SecondsTillShutdown != secs
	s.status.SecondsTillShutdown = secs
	s.mu.Unlock()

	if changed {
		logger.Debug("Shutdown in %d second(s)", secs)
		s.mirrorValue(nodeset.SecondsTillShutdown, addrspace.NewUInt32(secs))
	}
}

func secondsUntil(deadline time.Time) uint32 {
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return 0
	}
	return uint32(math.Ceil(remaining.Seconds()))
}

// stopAdapters stops adapters in reverse registration order, each bounded by
// the stop timeout. Errors are logged and do not interrupt the sequence.
func (s *Server) stopAdapters(adapters []adapter.Adapter) {
	if len(adapters) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.StopTimeout)
	defer cancel()

	logger.Info("Initiating graceful shutdown of %d adapter(s)", len(adapters))

	for i := len(adapters) - 1; i >= 0; i-- {
		a := adapters[i]
		protocol := a.Protocol()

		logger.Debug("Stopping %s adapter (port %d)", protocol, a.Port())
		if err := a.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Error stopping %s adapter: %v", protocol, err)
		} else {
			logger.Debug("%s adapter stopped", protocol)
		}
	}
}

// Status returns a copy of the current status.
func (s *Server) Status() ServerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// SetShutdownReason records reason and publishes it.
func (s *Server) SetShutdownReason(reason addrspace.LocalizedText) {
	s.mu.Lock()
	s.status.ShutdownReason = reason
	s.mu.Unlock()
	s.mirrorValue(nodeset.ShutdownReason, addrspace.NewLocalizedTextVariant(reason))
}

// Endpoints returns the endpoint URL of every registered adapter.
func (s *Server) Endpoints() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	endpoints := make([]string, 0, len(s.adapters))
	for _, a := range s.adapters {
		endpoints = append(endpoints, a.Endpoint())
	}
	return endpoints
}

// Errors returns the runtime failure channel.
func (s *Server) Errors() <-chan error {
	return s.errs
}

// ============================================================================
// Status Mirror
// ============================================================================

type mirrored struct {
	id    addrspace.NodeID
	value addrspace.Variant
}

// mirror writes the whole status into the address space in one transaction.
func (s *Server) mirror() {
	st := s.Status()

	values := []mirrored{
		{nodeset.State, addrspace.NewInt32(int32(st.State))},
		{nodeset.SecondsTillShutdown, addrspace.NewUInt32(st.SecondsTillShutdown)},
		{nodeset.ShutdownReason, addrspace.NewLocalizedTextVariant(st.ShutdownReason)},
		{nodeset.ProductName, addrspace.NewString(st.BuildInfo.ProductName)},
		{nodeset.ProductURI, addrspace.NewString(st.BuildInfo.ProductURI)},
		{nodeset.ManufacturerName, addrspace.NewString(st.BuildInfo.ManufacturerName)},
		{nodeset.SoftwareVersion, addrspace.NewString(st.BuildInfo.SoftwareVersion)},
		{nodeset.BuildNumber, addrspace.NewString(st.BuildInfo.BuildNumber)},
	}
	if !st.BuildInfo.BuildDate.IsZero() {
		values = append(values, mirrored{nodeset.BuildDate, addrspace.NewDateTime(st.BuildInfo.BuildDate)})
	}
	if !st.StartTime.IsZero() {
		values = append(values,
			mirrored{nodeset.StartTime, addrspace.NewDateTime(st.StartTime)},
			mirrored{nodeset.CurrentTime, addrspace.NewDateTime(st.CurrentTime)},
		)
	}
	s.write(values)
}

func (s *Server) mirrorValue(id addrspace.NodeID, v addrspace.Variant) {
	s.write([]mirrored{{id, v}})
}

// write applies values, skipping nodes that are not part of the loaded model.
func (s *Server) write(values []mirrored) {
	err := s.as.Update(context.Background(), func(tx *addrspace.Tx) error {
		for _, m := range values {
			if err := tx.SetValue(m.id, m.value); err != nil && !addrspace.IsNotFound(err) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Warn("Failed to publish server status: %v", err)
	}
}
