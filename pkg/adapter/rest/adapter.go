// Package rest exposes the address space over HTTP with JSON bodies.
//
// The adapter serves the read, browse, write and translate services of an
// OPC UA server plus status and namespace introspection under a single
// resource path, by default "/UA":
//
//	GET  /UA/status
//	GET  /UA/namespaces
//	GET  /UA/nodes/{nodeId}
//	POST /UA/read
//	POST /UA/browse
//	POST /UA/write
//	POST /UA/translate
package rest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xenonforlife/Sample-Server-node-opcua/internal/logger"
	"github.com/xenonforlife/Sample-Server-node-opcua/internal/ratelimiter"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/adapter"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/addrspace"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/metrics"
)

// Protocol is the endpoint scheme served by this adapter.
const Protocol = "opc.http"

// RESTAdapter serves the address space over HTTP.
//
// Architecture:
// RESTAdapter binds its listener in Listen() so the engine can report bind
// failures synchronously, then accepts requests in Serve() until Stop() or
// context cancellation. Connections beyond MaxConnections wait in the accept
// loop until a slot frees up.
type RESTAdapter struct {
	config RESTConfig

	// as is the shared address space, injected by the engine
	as *addrspace.AddressSpace

	server   *http.Server
	listener net.Listener

	limiter *ratelimiter.RateLimiter
	metrics metrics.ServiceMetrics

	// connCount tracks open connections for metrics
	connCount atomic.Int32

	mu           sync.Mutex
	shutdownOnce sync.Once
}

var _ adapter.Adapter = (*RESTAdapter)(nil)

// RESTConfig configures the REST endpoint.
type RESTConfig struct {
	// Hostname is the bind address. Empty or 0.0.0.0 binds all interfaces.
	Hostname string `mapstructure:"hostname"`

	// Port is the TCP listen port. Default: 4840
	Port int `mapstructure:"port" validate:"min=0,max=65535"`

	// ResourcePath prefixes every route. Default: /UA
	ResourcePath string `mapstructure:"resource_path"`

	// MaxConnections bounds concurrent connections. 0 means unlimited.
	MaxConnections int `mapstructure:"max_connections_per_endpoint" validate:"min=0"`

	OperationLimits OperationLimits `mapstructure:"operation_limits"`

	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	ReadTimeout  time.Duration `mapstructure:"read_timeout" validate:"min=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"min=0"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" validate:"min=0"`
}

// OperationLimits bounds how many operations a single request may carry.
type OperationLimits struct {
	MaxNodesPerRead                          int `mapstructure:"max_nodes_per_read" validate:"min=0"`
	MaxNodesPerBrowse                        int `mapstructure:"max_nodes_per_browse" validate:"min=0"`
	MaxNodesPerWrite                         int `mapstructure:"max_nodes_per_write" validate:"min=0"`
	MaxNodesPerTranslateBrowsePathsToNodeIDs int `mapstructure:"max_nodes_per_translate_browse_paths_to_node_ids" validate:"min=0"`
}

// RateLimitConfig configures the token bucket. Zero RequestsPerSecond disables it.
type RateLimitConfig struct {
	RequestsPerSecond uint `mapstructure:"requests_per_second"`
	Burst             uint `mapstructure:"burst"`
}

const (
	DefaultPort           = 4840
	DefaultResourcePath   = "/UA"
	DefaultMaxConnections = 100
	DefaultOperationLimit = 1000
)

func (c *RESTConfig) applyDefaults() {
	if c.Port <= 0 {
		c.Port = DefaultPort
	}
	if c.ResourcePath == "" {
		c.ResourcePath = DefaultResourcePath
	}
	if c.ResourcePath[0] != '/' {
		c.ResourcePath = "/" + c.ResourcePath
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 2 * time.Minute
	}
	limits := []*int{
		&c.OperationLimits.MaxNodesPerRead,
		&c.OperationLimits.MaxNodesPerBrowse,
		&c.OperationLimits.MaxNodesPerWrite,
		&c.OperationLimits.MaxNodesPerTranslateBrowsePathsToNodeIDs,
	}
	for _, l := range limits {
		if *l == 0 {
			*l = DefaultOperationLimit
		}
	}
}

func (c *RESTConfig) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 0-65535", c.Port)
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("invalid MaxConnections %d: must be >= 0", c.MaxConnections)
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.IdleTimeout < 0 {
		return errors.New("timeouts must be >= 0")
	}
	return nil
}

// New creates a RESTAdapter. A nil serviceMetrics disables metrics.
//
// Panics if the configuration is invalid (programmer error; configuration
// files are validated before this point).
func New(config RESTConfig, serviceMetrics metrics.ServiceMetrics) *RESTAdapter {
	config.applyDefaults()

	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid REST config: %v", err))
	}

	if serviceMetrics == nil {
		serviceMetrics = metrics.NewNoopServiceMetrics()
	}

	if config.MaxConnections > 0 {
		logger.Debug("REST connection limit: %d", config.MaxConnections)
	} else {
		logger.Debug("REST connection limit: unlimited")
	}

	a := &RESTAdapter{
		config:  config,
		limiter: ratelimiter.New(config.RateLimit.RequestsPerSecond, config.RateLimit.Burst),
		metrics: serviceMetrics,
	}
	a.server = &http.Server{
		Handler:      a.Handler(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
		ConnState:    a.trackConn,
	}
	return a
}

// SetAddressSpace injects the address space served by the adapter.
func (a *RESTAdapter) SetAddressSpace(as *addrspace.AddressSpace) {
	a.as = as
	logger.Debug("REST address space configured")
}

// Listen binds the TCP listener.
func (a *RESTAdapter) Listen(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.listener != nil {
		return nil
	}

	addr := net.JoinHostPort(a.config.Hostname, strconv.Itoa(a.config.Port))
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create REST listener on %s: %w", addr, err)
	}

	if a.config.MaxConnections > 0 {
		ln = newLimitListener(ln, a.config.MaxConnections, a.metrics)
	}
	a.listener = ln

	logger.Info("REST endpoint listening on %s", ln.Addr())
	logger.Debug("REST config: resource_path=%s max_connections=%d read_timeout=%v write_timeout=%v",
		a.config.ResourcePath, a.config.MaxConnections, a.config.ReadTimeout, a.config.WriteTimeout)
	return nil
}

// Serve accepts requests until ctx is cancelled or Stop is called.
func (a *RESTAdapter) Serve(ctx context.Context) error {
	a.mu.Lock()
	ln := a.listener
	a.mu.Unlock()

	if ln == nil {
		return errors.New("REST adapter: Serve called before Listen")
	}

	go func() {
		<-ctx.Done()
		logger.Debug("REST shutdown signal received: %v", ctx.Err())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.WriteTimeout)
		defer cancel()
		_ = a.Stop(shutdownCtx)
	}()

	if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests within ctx and closes the listener.
func (a *RESTAdapter) Stop(ctx context.Context) error {
	var err error
	a.shutdownOnce.Do(func() {
		logger.Debug("REST graceful shutdown initiated")
		if err = a.server.Shutdown(ctx); err != nil {
			logger.Warn("REST shutdown did not complete cleanly: %v", err)
			_ = a.server.Close()
		} else {
			logger.Info("REST endpoint stopped")
		}
	})
	return err
}

// Protocol returns "opc.http".
func (a *RESTAdapter) Protocol() string {
	return Protocol
}

// Port returns the configured listen port.
func (a *RESTAdapter) Port() int {
	return a.config.Port
}

// Endpoint returns the URL clients connect to, e.g. opc.http://host:4840/UA.
func (a *RESTAdapter) Endpoint() string {
	host := a.config.Hostname
	if host == "" || host == "0.0.0.0" || host == "::" {
		if name, err := os.Hostname(); err == nil {
			host = name
		} else {
			host = "localhost"
		}
	}
	return fmt.Sprintf("%s://%s%s", Protocol,
		net.JoinHostPort(host, strconv.Itoa(a.config.Port)), a.config.ResourcePath)
}

// Addr returns the bound listener address, or nil before Listen.
func (a *RESTAdapter) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

func (a *RESTAdapter) trackConn(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		a.metrics.SetActiveConnections(a.connCount.Add(1))
	case http.StateClosed, http.StateHijacked:
		a.metrics.SetActiveConnections(a.connCount.Add(-1))
	}
}

// ============================================================================
// Connection Limit
// ============================================================================

// limitListener holds a semaphore slot for every accepted connection until
// the connection is closed.
type limitListener struct {
	net.Listener
	sem     chan struct{}
	done    chan struct{}
	once    sync.Once
	metrics metrics.ServiceMetrics
}

func newLimitListener(ln net.Listener, n int, m metrics.ServiceMetrics) *limitListener {
	return &limitListener{
		Listener: ln,
		sem:      make(chan struct{}, n),
		done:     make(chan struct{}),
		metrics:  m,
	}
}

func (l *limitListener) Accept() (net.Conn, error) {
	select {
	case l.sem <- struct{}{}:
	default:
		l.metrics.RecordConnectionQueued()
		logger.Debug("REST connection limit reached, waiting for a free slot")
		select {
		case l.sem <- struct{}{}:
		case <-l.done:
			return nil, net.ErrClosed
		}
	}

	conn, err := l.Listener.Accept()
	if err != nil {
		<-l.sem
		return nil, err
	}
	return &limitConn{Conn: conn, release: func() { <-l.sem }}, nil
}

func (l *limitListener) Close() error {
	l.once.Do(func() { close(l.done) })
	return l.Listener.Close()
}

type limitConn struct {
	net.Conn
	once    sync.Once
	release func()
}

func (c *limitConn) Close() error {
	err := c.Conn.Close()
	c.once.Do(c.release)
	return err
}
