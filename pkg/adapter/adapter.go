package adapter

import (
	"context"

	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/addrspace"
)

// Adapter is an endpoint that exposes the address space to clients over one
// transport. The engine owns its lifecycle.
//
// Lifecycle:
//  1. Creation: adapter is created with transport-specific configuration
//  2. Injection: SetAddressSpace() provides the shared node graph
//  3. Binding: Listen() acquires the listener; bind errors surface here so
//     the engine can fail its Start synchronously
//  4. Serving: Serve() blocks until the context is cancelled
//  5. Shutdown: Stop() drains in-flight requests within the context deadline
//
// Thread safety:
// SetAddressSpace() and Listen() are called once before Serve(). Stop() may
// be called concurrently with Serve() and more than once.
type Adapter interface {
	// SetAddressSpace injects the address space served by the adapter.
	SetAddressSpace(as *addrspace.AddressSpace)

	// Listen binds the adapter's listener without accepting requests yet.
	Listen(ctx context.Context) error

	// Serve accepts requests until ctx is cancelled or Stop is called.
	//
	// Returns nil on graceful shutdown and an error if serving failed.
	Serve(ctx context.Context) error

	// Stop initiates graceful shutdown and waits for it within ctx.
	// Must be idempotent.
	Stop(ctx context.Context) error

	// Protocol returns the endpoint scheme for logging and metrics, e.g. "opc.http".
	Protocol() string

	// Port returns the configured listen port.
	Port() int

	// Endpoint returns the URL clients use to reach the adapter.
	Endpoint() string
}
