package gwatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLaunchStateString(t *testing.T) {
	assert.Equal(t, "Fresh", stateFresh.String())
	assert.Equal(t, "Launched", stateLaunched.String())
	assert.Equal(t, "Running", stateRunning.String())
	assert.Equal(t, "Terminated", stateTerminated.String())
	assert.Equal(t, "Unknown", launchState(99).String())
}

func TestExitCodeOrDefault(t *testing.T) {
	assert.Equal(t, uint32(0), exitCodeOrDefault(nil))
	code := uint32(123)
	assert.Equal(t, uint32(123), exitCodeOrDefault(&code))
}

func TestCreationFlags(t *testing.T) {
	cfg := LaunchConfig{DebugChildren: true, NewConsole: true, Suspended: false}
	debugFlag, newConsole, suspended := creationFlags(cfg)
	assert.True(t, debugFlag)
	assert.True(t, newConsole)
	assert.False(t, suspended)
}
