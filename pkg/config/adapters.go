package config

import (
	"fmt"

	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/adapter"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/adapter/rest"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/metrics"
)

// CreateAdapters creates the endpoint adapters from the configuration.
//
// Parameters:
//   - cfg: The complete server configuration
//   - serviceMetrics: Optional service metrics collector (nil = no metrics)
//
// Returns:
//   - []adapter.Adapter: Adapters ready to be added to the engine
//   - error: Any error during adapter creation
func CreateAdapters(cfg *Config, serviceMetrics metrics.ServiceMetrics) ([]adapter.Adapter, error) {
	if err := validate.Struct(cfg.Engine.RESTConfig); err != nil {
		return nil, fmt.Errorf("engine endpoint: %w", formatValidationError(err))
	}

	return []adapter.Adapter{
		rest.New(cfg.Engine.RESTConfig, serviceMetrics),
	}, nil
}
