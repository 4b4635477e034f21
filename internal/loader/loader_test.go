package loader

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sensorbridge/sensorbridge/internal/arena"
	"github.com/sensorbridge/sensorbridge/internal/copyenc"
	"github.com/sensorbridge/sensorbridge/internal/schema"
)

func buildLoaderTestSchema(t *testing.T) *schema.TableInfo {
	t.Helper()
	s, err := schema.Build("sensor_1", []schema.Column{
		{Name: "id", Type: schema.TypeInt4, IsAutoIncrement: true},
		{Name: "value", Type: schema.TypeInt4},
	})
	require.NoError(t, err)
	return &schema.TableInfo{Schema: s, CopyCommand: "COPY sensor_1 (value) FROM STDIN BINARY"}
}

func TestInsertBufferRejectsSizeNotMultipleOfRowSize(t *testing.T) {
	ti := buildLoaderTestSchema(t)
	l := &Loader{Table: ti, Unit: copyenc.UnitSeconds, Log: zap.NewNop().Sugar()}

	buf := arena.New(make([]byte, 64))
	buf.PushCopy(make([]byte, ti.Schema.RowSize+1))

	err := l.insertBuffer(context.Background(), buf)
	require.Error(t, err)
}

func TestInsertBufferNoOpOnEmptyBuffer(t *testing.T) {
	ti := buildLoaderTestSchema(t)
	l := &Loader{Table: ti, Unit: copyenc.UnitSeconds, Log: zap.NewNop().Sugar()}

	buf := arena.New(make([]byte, 64))

	err := l.insertBuffer(context.Background(), buf)
	require.NoError(t, err)
}
