// Package handler selects a data-handler implementation by name at
// startup through a small interface over {Init, Run, Finalize}. Only
// one variant, "modbus_with_postgres", is implemented; see
// modbus_postgres.go.
package handler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sensorbridge/sensorbridge/internal/config"
)

// Handler is one data-handler's lifecycle. Init prepares resources
// (connections, schema discovery, pipes); Run blocks until the handler
// is asked to stop; Finalize releases resources acquired by Init.
type Handler interface {
	Init(ctx context.Context) error
	Run(ctx context.Context) error
	Finalize(ctx context.Context) error
}

// Factory builds a Handler from a data-handler's configuration.
// Registered variants are looked up by name in New.
type Factory func(cfg config.DataHandlerConfig, log *zap.SugaredLogger) (Handler, error)

var registry = map[string]Factory{}

// Register adds a variant factory under name. Called from init()
// functions of the packages implementing each variant.
func Register(variant string, f Factory) {
	registry[variant] = f
}

// New builds the Handler for cfg.Variant, looking it up in the registry
// populated by Register.
func New(variant string, cfg config.DataHandlerConfig, log *zap.SugaredLogger) (Handler, error) {
	f, ok := registry[variant]
	if !ok {
		return nil, fmt.Errorf("handler: unknown variant %q", variant)
	}
	return f(cfg, log)
}
