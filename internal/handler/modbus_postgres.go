package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sensorbridge/sensorbridge/internal/config"
	"github.com/sensorbridge/sensorbridge/internal/copyenc"
	"github.com/sensorbridge/sensorbridge/internal/loader"
	"github.com/sensorbridge/sensorbridge/internal/pipe"
	"github.com/sensorbridge/sensorbridge/internal/producer"
	"github.com/sensorbridge/sensorbridge/internal/schema"
	"github.com/sensorbridge/sensorbridge/internal/xthread"
)

const variantModbusWithPostgres = "modbus_with_postgres"

func init() {
	Register(variantModbusWithPostgres, newModbusWithPostgres)
}

// modbusWithPostgres pairs a Modbus-framed TCP producer with a
// PostgreSQL binary-COPY consumer, one pipe per sensor keyed by unit
// id.
type modbusWithPostgres struct {
	cfg config.DataHandlerConfig
	log *zap.SugaredLogger

	conn   *pgx.Conn
	pipes  map[uint16]*pipe.Pipe
	tables map[uint16]*schema.TableInfo

	producerControl *xthread.Control
	loaderControls  []*xthread.Control
	barrier         *xthread.Barrier

	unit copyenc.TimestampUnit

	// dumpPipe is the pipe a fatal-signal handler should snapshot for
	// this handler, the first one allocated during Init.
	dumpPipe *pipe.Pipe
}

func newModbusWithPostgres(cfg config.DataHandlerConfig, log *zap.SugaredLogger) (Handler, error) {
	unit, err := parseTimestampUnit(cfg.Postgres.TimestampUnit)
	if err != nil {
		return nil, err
	}
	return &modbusWithPostgres{
		cfg:    cfg,
		log:    log.With("handler", cfg.Name),
		pipes:  map[uint16]*pipe.Pipe{},
		tables: map[uint16]*schema.TableInfo{},
		unit:   unit,
	}, nil
}

func parseTimestampUnit(s string) (copyenc.TimestampUnit, error) {
	switch strings.ToLower(s) {
	case "", "seconds":
		return copyenc.UnitSeconds, nil
	case "microseconds":
		return copyenc.UnitMicroseconds, nil
	case "nanoseconds":
		return copyenc.UnitNanoseconds, nil
	default:
		return 0, fmt.Errorf("handler: unknown timestamp_unit %q", s)
	}
}

// Init connects to the database, loads the sensor schema file, and for
// each sensor creates its table if absent, discovers its column
// metadata, and allocates its pipe.
func (h *modbusWithPostgres) Init(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, h.cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("handler %s: connect to postgres: %w", h.cfg.Name, err)
	}
	h.conn = conn

	sensors, err := config.LoadSensorSchemaFile(h.cfg.SchemaPath)
	if err != nil {
		return fmt.Errorf("handler %s: load sensor schema: %w", h.cfg.Name, err)
	}

	for _, s := range sensors.Sensors {
		if err := h.createTable(ctx, s); err != nil {
			return err
		}

		ti, err := schema.Discover(ctx, h.conn, s.Name)
		if err != nil {
			return fmt.Errorf("handler %s: discover schema for %s: %w", h.cfg.Name, s.Name, err)
		}
		h.tables[s.UnitID] = ti

		p, err := pipe.New(uint32(h.cfg.Pipe.BufCount), h.cfg.Pipe.BufSize.Bytes())
		if err != nil {
			return fmt.Errorf("handler %s: create pipe for %s: %w", h.cfg.Name, s.Name, err)
		}
		p.SetPacketSize(ti.Schema.RowSize)
		h.pipes[s.UnitID] = p
		if h.dumpPipe == nil {
			h.dumpPipe = p
		}
	}

	h.producerControl = xthread.NewControl()
	h.loaderControls = make([]*xthread.Control, 0, len(h.pipes))
	for range h.pipes {
		h.loaderControls = append(h.loaderControls, xthread.NewControl())
	}
	h.barrier = xthread.NewBarrier(1 + len(h.pipes))

	return nil
}

// createTable issues CREATE TABLE IF NOT EXISTS using the sensor
// schema entry's declared columns, with an auto-increment "id" primary
// key first.
func (h *modbusWithPostgres) createTable(ctx context.Context, s config.SensorSchemaEntry) error {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\nid SERIAL PRIMARY KEY,\n", s.Name)
	for i, col := range s.OrderedColumns {
		if i > 0 {
			b.WriteString(",\n")
		}
		fmt.Fprintf(&b, "%s %s", col, s.Data[col])
	}
	b.WriteString("\n)")

	if _, err := h.conn.Exec(ctx, b.String()); err != nil {
		return fmt.Errorf("handler %s: create table %s: %w", h.cfg.Name, s.Name, err)
	}
	return nil
}

// Run starts the producer and one loader per sensor, all rendezvousing
// at a barrier of width 1+len(pipes) before entering their main loops.
func (h *modbusWithPostgres) Run(ctx context.Context) error {
	router := pipeRouter(h.pipes)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		h.barrier.Wait()
		r := &producer.Reader{Address: h.cfg.Address, Router: router, Control: h.producerControl, Log: h.log}
		return r.Run(gctx)
	})

	i := 0
	for unitID, p := range h.pipes {
		unitID, p := unitID, p
		ctl := h.loaderControls[i]
		i++
		g.Go(func() error {
			h.barrier.Wait()
			l := &loader.Loader{
				Pipe:          p,
				Conn:          h.conn,
				Table:         h.tables[unitID],
				Unit:          h.unit,
				Control:       ctl,
				Log:           h.log,
				DeadLetterDir: "dumps",
			}
			return l.Run(gctx)
		})
	}

	return g.Wait()
}

// RequestStop asks the producer and every loader to exit their main
// loops. It does not block; Run still returns only once they actually
// have. Satisfies an optional interface the supervisor calls on a
// cooperative shutdown request, separate from Finalize's post-Run
// resource release.
func (h *modbusWithPostgres) RequestStop() {
	h.producerControl.RequestStop()
	for _, ctl := range h.loaderControls {
		ctl.RequestStop()
	}
}

// Finalize closes the database connection and pipes once Run has
// returned.
func (h *modbusWithPostgres) Finalize(ctx context.Context) error {
	for _, p := range h.pipes {
		p.Close()
	}
	if h.conn != nil {
		return h.conn.Close(ctx)
	}
	return nil
}

// DumpPipe returns the pipe a fatal-signal handler should snapshot, or
// nil before Init has run. It satisfies an optional interface consulted
// by the supervisor, not the Handler interface itself.
func (h *modbusWithPostgres) DumpPipe() *pipe.Pipe {
	return h.dumpPipe
}

// pipeRouter implements producer.Router over the handler's unit-id to
// pipe map, routing each sensor's frames to its own pipe and table.
type pipeRouter map[uint16]*pipe.Pipe

func (r pipeRouter) Lookup(unitID uint16) (*pipe.Pipe, bool) {
	p, ok := r[unitID]
	return p, ok
}
