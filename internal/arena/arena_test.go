package arena

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPushAdvancesCursor(t *testing.T) {
	a := New(make([]byte, 16))
	require.Equal(t, uint64(16), a.Remaining())

	b := a.Push(4)
	require.NotNil(t, b)
	require.Len(t, b, 4)
	require.Equal(t, uint64(4), a.Pos())
	require.Equal(t, uint64(12), a.Remaining())
}

func TestPushExhaustionReturnsNil(t *testing.T) {
	a := New(make([]byte, 4))
	require.NotNil(t, a.Push(4))
	require.Nil(t, a.Push(1))
}

func TestPushCopyCopiesBytes(t *testing.T) {
	a := New(make([]byte, 8))
	src := []byte{1, 2, 3}
	dst := a.PushCopy(src)
	require.Equal(t, src, dst)

	src[0] = 0xff
	require.Equal(t, byte(1), dst[0], "PushCopy must copy, not alias")
}

func TestSeekRestoresCursor(t *testing.T) {
	a := New(make([]byte, 16))
	a.Push(10)
	mark := a.Pos()

	a.Push(4)
	a.Seek(mark)
	require.Equal(t, mark, a.Pos())
	require.Equal(t, uint64(6), a.Remaining())
}

func TestSeekOutOfRangePanics(t *testing.T) {
	a := New(make([]byte, 4))
	require.Panics(t, func() { a.Seek(5) })
}

func TestClearResetsCursor(t *testing.T) {
	a := New(make([]byte, 8))
	a.Push(8)
	require.Equal(t, uint64(0), a.Remaining())

	a.Clear()
	require.Equal(t, uint64(8), a.Remaining())
	require.Equal(t, uint64(0), a.Pos())
}

func TestBytesReflectsWrittenPrefix(t *testing.T) {
	a := New(make([]byte, 8))
	a.PushCopy([]byte{1, 2, 3})
	require.Equal(t, []byte{1, 2, 3}, a.Bytes())
}

func TestBootstrapCarvesChildFromParent(t *testing.T) {
	parent := New(make([]byte, 32))
	child := Bootstrap(parent, nil, 8)
	require.NotNil(t, child)
	require.Equal(t, uint64(8), child.Cap())
	require.Equal(t, uint64(8), parent.Pos())

	require.NotNil(t, child.PushCopy([]byte{9, 9}))
	require.Equal(t, []byte{9, 9}, child.Bytes())
}

func TestBootstrapExhaustedParentReturnsNil(t *testing.T) {
	parent := New(make([]byte, 4))
	require.Nil(t, Bootstrap(parent, nil, 8))
}

func TestPoolGetAvoidsConflicts(t *testing.T) {
	a1 := New(make([]byte, 8))
	a2 := New(make([]byte, 8))
	pool := NewPool(a1, a2)

	s := pool.Get(a1)
	require.Same(t, a2, s.Arena())
}

func TestPoolGetExhaustedPanics(t *testing.T) {
	a1 := New(make([]byte, 8))
	a2 := New(make([]byte, 8))
	pool := NewPool(a1, a2)

	require.Panics(t, func() { pool.Get(a1, a2) })
}

func TestScratchReleaseRestoresCursor(t *testing.T) {
	a1 := New(make([]byte, 8))
	a2 := New(make([]byte, 16))
	pool := NewPool(a1, a2)

	a2.Push(4)
	s := pool.Get(a1)
	require.Same(t, a2, s.Arena())

	s.Arena().Push(8)
	require.Equal(t, uint64(12), a2.Pos())

	Release(s)
	require.Equal(t, uint64(4), a2.Pos())
}
