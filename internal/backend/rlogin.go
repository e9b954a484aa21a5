package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os/user"
	"time"

	"github.com/kandev/xferterm/internal/common/config"
)

const rloginSpeed = 38400

// rloginHandshake is the client greeting of RFC 1282:
// NUL local-user NUL remote-user NUL terminal/speed NUL.
func rloginHandshake(localUser, remoteUser, term string, speed int) []byte {
	msg := fmt.Sprintf("\x00%s\x00%s\x00%s/%d\x00", localUser, remoteUser, term, speed)
	return []byte(msg)
}

func localUserName() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "xferterm"
}

// newRLoginConn performs the handshake and waits for the server's NUL
// acknowledgement before handing the stream over.
func newRLoginConn(ctx context.Context, nc net.Conn, cfg config.ConnectionConfig) (Conn, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = nc.SetDeadline(deadline)
		defer func() { _ = nc.SetDeadline(time.Time{}) }()
	}

	local := localUserName()
	remote := cfg.User
	if remote == "" {
		remote = local
	}
	if _, err := nc.Write(rloginHandshake(local, remote, cfg.Term, rloginSpeed)); err != nil {
		return nil, fmt.Errorf("rlogin handshake: %w", err)
	}

	var ack [1]byte
	if _, err := io.ReadFull(nc, ack[:]); err != nil {
		return nil, fmt.Errorf("rlogin handshake: %w", err)
	}
	if ack[0] != 0 {
		return nil, errors.New("rlogin handshake: server refused the connection")
	}
	return newStreamConn(nc, RLogin), nil
}
