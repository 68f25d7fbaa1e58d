package ports

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEnumeratorListsConfiguredThenDiscovered(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"ttyUSB1", "ttyUSB0", "ttyACM0", "console"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}

	e := NewEnumerator(
		[]string{"COM3", filepath.Join(dir, "ttyUSB1"), "COM3"},
		[]string{filepath.Join(dir, "ttyUSB*"), filepath.Join(dir, "ttyACM*")},
		zap.NewNop(),
	)

	ports, err := e.List(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{
		"COM3",
		filepath.Join(dir, "ttyUSB1"),
		filepath.Join(dir, "ttyACM0"),
		filepath.Join(dir, "ttyUSB0"),
	}, ports)
}

func TestEnumeratorWithoutMatches(t *testing.T) {
	e := NewEnumerator(nil, []string{filepath.Join(t.TempDir(), "tty*")}, zap.NewNop())

	ports, err := e.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, ports)
}

func TestEnumeratorBadPattern(t *testing.T) {
	e := NewEnumerator(nil, []string{"/dev/tty["}, zap.NewNop())

	_, err := e.List(context.Background())
	require.Error(t, err)
}

func TestEnumeratorCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewEnumerator([]string{"COM1"}, DefaultPatterns, zap.NewNop())
	_, err := e.List(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
