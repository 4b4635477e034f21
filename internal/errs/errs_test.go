package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewCategorizedErrorMessageIncludesCategory(t *testing.T) {
	err := New(ProtocolInvalid, "bad frame length %d", 12)
	require.EqualError(t, err, "protocol_invalid: bad frame length 12")
}

func TestWrapReturnsNilForNilError(t *testing.T) {
	require.NoError(t, Wrap(IOFatal, nil))
}

func TestIsMatchesDirectCategory(t *testing.T) {
	err := Wrap(DBCopyFailed, errors.New("copy aborted"))
	require.True(t, Is(err, DBCopyFailed))
	require.False(t, Is(err, DBCommandFailed))
}

func TestIsFollowsStandardUnwrapChain(t *testing.T) {
	base := New(EncodingError, "column overflow")
	wrapped := fmt.Errorf("batch 3: %w", base)
	require.True(t, Is(wrapped, EncodingError))
}

func TestIsFalseForUncategorizedError(t *testing.T) {
	require.False(t, Is(errors.New("plain"), ResourceExhausted))
}

func TestCategoryStringUnknownValue(t *testing.T) {
	require.Equal(t, "unknown", Category(999).String())
}
