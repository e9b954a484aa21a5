package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kandev/xferterm/internal/common/logger"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(logger.LoggingConfig{
		Level:      "error",
		Format:     "json",
		OutputPath: "stderr",
	})
	require.NoError(t, err)
	return log
}

func TestLineTerminator(t *testing.T) {
	tests := []struct {
		proto Protocol
		want  string
	}{
		{Serial, "\r"},
		{SSH, "\n"},
		{Telnet, "\r\n"},
		{RLogin, "\r\n"},
	}
	for _, tt := range tests {
		t.Run(string(tt.proto), func(t *testing.T) {
			assert.Equal(t, tt.want, LineTerminator(tt.proto))
		})
	}
}

func TestLineTerminatorPanicsOnUnknown(t *testing.T) {
	assert.Panics(t, func() { LineTerminator(Raw) })
	assert.Panics(t, func() { LineTerminator(Protocol("x25")) })
	assert.Panics(t, func() { LineTerminator("") })
}
