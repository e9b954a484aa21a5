//go:build unix

package backend

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kandev/xferterm/internal/common/config"
)

func TestPTYBackend(t *testing.T) {
	c, err := Dial(context.Background(), config.ConnectionConfig{
		Kind:    "pty",
		Command: "stty raw -echo; head -c 4",
		Term:    "xterm",
	}, newTestLogger(t))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	assert.Equal(t, Raw, c.Protocol(), "local commands never get a remote command")
	resizer, ok := c.(Resizer)
	require.True(t, ok)
	require.NoError(t, resizer.Resize(100, 30))

	// Give stty a moment before typing.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, c.Send([]byte("ping")))

	var out bytes.Buffer
	_, err = io.Copy(&out, c)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "ping")
}
