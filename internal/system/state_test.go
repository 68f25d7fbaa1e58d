package system

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateTransition(t *testing.T) {
	valid := [][2]SystemState{
		{StateInitializing, StateRunning},
		{StateRunning, StateStopping},
		{StateStopping, StateStopped},
		{StateRunning, StateError},
		{StateError, StateStopping},
		{StateStopped, StateInitializing},
	}
	for _, tr := range valid {
		require.NoError(t, ValidateTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}

	invalid := [][2]SystemState{
		{StateInitializing, StateStopped},
		{StateRunning, StateInitializing},
		{StateStopped, StateRunning},
		{SystemState(42), StateRunning},
	}
	for _, tr := range invalid {
		require.Error(t, ValidateTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}
}

func TestSystemStateString(t *testing.T) {
	require.Equal(t, "RUNNING", StateRunning.String())
	require.Equal(t, "UNKNOWN", SystemState(42).String())
}
