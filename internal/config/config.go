// Package config loads the top-level JSON configuration document and
// the per-sensor schema file. The wire format here is JSON rather than
// YAML, keeping the configuration self-describing without pulling in a
// separate YAML dependency for a single small document.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config is the top-level configuration document.
type Config struct {
	DataHandlers []DataHandlerConfig `json:"data_handlers"`
}

// DataHandlerConfig configures one producer/consumer pairing.
type DataHandlerConfig struct {
	Enabled bool   `json:"enabled"`
	Name    string `json:"name"`

	// Variant selects the concrete handler implementation; currently
	// only "modbus_with_postgres" is registered.
	Variant string `json:"variant"`

	Modbus   ModbusConfig   `json:"modbus"`
	Postgres PostgresConfig `json:"postgres"`
	Pipe     PipeConfig     `json:"pipe"`
	Testing  TestingConfig  `json:"testing"`

	// SchemaPath points at the sensor-schema JSON file (see SchemaFile)
	// for this handler.
	SchemaPath string `json:"schema_path"`

	// Address is the sensor device's TCP endpoint the producer connects
	// to.
	Address string `json:"address"`
}

// ModbusConfig sizes the producer's arena and scratch pool.
type ModbusConfig struct {
	Mem         ByteSize `json:"mem"`
	ScratchSize ByteSize `json:"scratch_size"`
}

// PostgresConfig sizes the consumer's arena and scratch pool, and
// carries the DB connection string.
type PostgresConfig struct {
	Mem         ByteSize `json:"mem"`
	ScratchSize ByteSize `json:"scratch_size"`
	DSN         string   `json:"dsn"`

	// TimestampUnit selects which incoming timestamp representation the
	// encoder assumes: "seconds" (default), "microseconds", or
	// "nanoseconds". Exactly one must be declared per deployment.
	TimestampUnit string `json:"timestamp_unit"`
}

// PipeConfig sizes the bounded multi-buffer pipe between producer and
// consumer.
type PipeConfig struct {
	BufCount int      `json:"buf_count"`
	BufSize  ByteSize `json:"buf_size"`
}

// TestingConfig toggles the standalone test-server pairing, named only
// by contract (out of scope: "standalone test-server
// binaries").
type TestingConfig struct {
	Enabled bool `json:"enabled"`
}

// Load reads and parses the top-level configuration document at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	for i, h := range c.DataHandlers {
		if !h.Enabled {
			continue
		}
		if h.Name == "" {
			return fmt.Errorf("config: data_handlers[%d]: name is required", i)
		}
		if h.Variant == "" {
			return fmt.Errorf("config: data_handlers[%d] (%s): variant is required", i, h.Name)
		}
		if h.Pipe.BufCount < 2 {
			return fmt.Errorf("config: data_handlers[%d] (%s): pipe.buf_count must be >= 2", i, h.Name)
		}
		if h.Pipe.BufSize.Bytes() == 0 {
			return fmt.Errorf("config: data_handlers[%d] (%s): pipe.buf_size must be > 0", i, h.Name)
		}
	}
	return nil
}
