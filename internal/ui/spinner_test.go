package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpinner_UpdateAndStopTwice(t *testing.T) {
	sp := NewConnectionSpinner("Opening a direct channel...")
	sp.Start()
	sp.UpdateMessage("Waiting for your partner to answer...")

	sp.mu.Lock()
	msg := sp.message
	sp.mu.Unlock()
	assert.Equal(t, "Waiting for your partner to answer...", msg)

	sp.Stop()
	sp.Stop()
}

func TestRunWaitingSpinner_StopIsIdempotent(t *testing.T) {
	stop := RunWaitingSpinner("Waiting for a stranger...")
	stop()
	stop()
}
