package wsconn

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestStateString(t *testing.T) {
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "reconnecting", StateReconnecting.String())
	assert.Equal(t, "closed", StateClosed.String())
}

func TestNewClientStartsDisconnected(t *testing.T) {
	c := NewClient(DefaultConfig("wss://example.invalid/socket"), Handlers{}, zerolog.Nop())
	assert.Equal(t, StateDisconnected, c.State())
}

func TestSendJSONFailsWhenNotConnected(t *testing.T) {
	c := NewClient(DefaultConfig("wss://example.invalid/socket"), Handlers{}, zerolog.Nop())
	err := c.SendJSON(map[string]string{"a": "b"})
	assert.Error(t, err)
}
