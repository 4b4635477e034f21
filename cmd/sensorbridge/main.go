package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/sensorbridge/sensorbridge/internal/config"
	_ "github.com/sensorbridge/sensorbridge/internal/handler" // registers "modbus_with_postgres"
	"github.com/sensorbridge/sensorbridge/internal/logging"
	"github.com/sensorbridge/sensorbridge/internal/signals"
	"github.com/sensorbridge/sensorbridge/internal/supervisor"
)

var rootCmd = &cobra.Command{
	Use:   "sensorbridge <config-path>",
	Short: "Ingest framed sensor data into PostgreSQL",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return run(args[0])
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	log, _, err := logging.Init(logging.Config{Level: zapcore.InfoLevel})
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := context.Background()

	sup, err := supervisor.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize supervisor: %w", err)
	}

	stopWatch := signals.WatchFatal(signals.Context{
		Pipe:    sup.DumpPipe,
		DumpDir: "dumps",
		Log:     log,
	})
	defer stopWatch()

	wg, gctx := errgroup.WithContext(ctx)
	wg.Go(func() error {
		return sup.Run()
	})
	wg.Go(func() error {
		err := signals.WaitInterrupted(gctx)
		log.Infow("caught signal, shutting down", "error", err)
		sup.RequestShutdown()
		return err
	})

	if err := wg.Wait(); err != nil {
		var interrupted signals.Interrupted
		if errors.As(err, &interrupted) {
			return nil
		}
		return err
	}
	return nil
}
