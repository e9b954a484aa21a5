package backend

import (
	"bufio"
	"context"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kandev/xferterm/internal/common/config"
)

// listen starts a one-shot TCP server running handle on the first connection.
func listen(t *testing.T, handle func(net.Conn)) config.ConnectionConfig {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		nc, err := ln.Accept()
		if err != nil {
			return
		}
		defer func() { _ = nc.Close() }()
		handle(nc)
	}()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return config.ConnectionConfig{Host: host, Port: port, Term: "xterm", Timeout: 5 * time.Second}
}

func TestDialRaw(t *testing.T) {
	cfg := listen(t, func(nc net.Conn) {
		line, _ := bufio.NewReader(nc).ReadString('\n')
		_, _ = nc.Write([]byte("echo:" + line))
	})
	cfg.Kind = "raw"

	c, err := Dial(context.Background(), cfg, newTestLogger(t))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	assert.Equal(t, Raw, c.Protocol())
	require.NoError(t, c.Send([]byte("hi\n")))

	got, err := io.ReadAll(c)
	require.NoError(t, err)
	assert.Equal(t, "echo:hi\n", string(got))
}

func TestDialRLoginHandshake(t *testing.T) {
	handshake := make(chan []byte, 1)
	cfg := listen(t, func(nc net.Conn) {
		buf := make([]byte, 256)
		n, _ := nc.Read(buf)
		handshake <- buf[:n]
		_, _ = nc.Write([]byte{0})
		_, _ = nc.Write([]byte("Last login: never\r\n"))
	})
	cfg.Kind = "rlogin"
	cfg.User = "alice"

	c, err := Dial(context.Background(), cfg, newTestLogger(t))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	want := rloginHandshake(localUserName(), "alice", "xterm", rloginSpeed)
	assert.Equal(t, want, <-handshake)
	assert.Equal(t, RLogin, c.Protocol())

	got, err := io.ReadAll(c)
	require.NoError(t, err)
	assert.Equal(t, "Last login: never\r\n", string(got), "the acknowledgement byte is consumed")
}

func TestDialRLoginRefused(t *testing.T) {
	cfg := listen(t, func(nc net.Conn) {
		_, _ = nc.Read(make([]byte, 256))
		_, _ = nc.Write([]byte("\x01Permission denied.\n"))
	})
	cfg.Kind = "rlogin"

	_, err := Dial(context.Background(), cfg, newTestLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
}

func TestRLoginHandshakeFormat(t *testing.T) {
	assert.Equal(t, []byte("\x00bob\x00root\x00vt100/9600\x00"), rloginHandshake("bob", "root", "vt100", 9600))
}

func TestDialTelnet(t *testing.T) {
	cfg := listen(t, func(nc net.Conn) {
		_, _ = io.ReadFull(nc, make([]byte, 9))
		_, _ = nc.Write([]byte("login: "))
	})
	cfg.Kind = "telnet"

	c, err := Dial(context.Background(), cfg, newTestLogger(t))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	assert.Equal(t, Telnet, c.Protocol())
	got, err := io.ReadAll(c)
	require.NoError(t, err)
	assert.Equal(t, "login: ", string(got))
}

func TestDialUnknownKind(t *testing.T) {
	_, err := Dial(context.Background(), config.ConnectionConfig{Kind: "x25"}, newTestLogger(t))
	require.Error(t, err)
}

func TestDialConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	require.NoError(t, ln.Close())

	_, err = Dial(context.Background(), config.ConnectionConfig{
		Kind: "raw", Host: "127.0.0.1", Port: addr.Port, Timeout: time.Second,
	}, newTestLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial 127.0.0.1:")
}
