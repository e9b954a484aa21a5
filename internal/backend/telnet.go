package backend

import (
	"bytes"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/kandev/xferterm/internal/common/logger"
)

// Telnet command and option codes (RFC 854, 856, 857, 858).
const (
	telnetSE   = 240
	telnetSB   = 250
	telnetWILL = 251
	telnetWONT = 252
	telnetDO   = 253
	telnetDONT = 254
	telnetIAC  = 255

	optBinary = 0
	optEcho   = 1
	optSGA    = 3
)

type telnetState int

const (
	stData telnetState = iota
	stIAC
	stOption // after WILL/WONT/DO/DONT
	stSub    // inside SB
	stSubIAC // IAC inside SB
	stCR     // CR seen in non-binary data
)

// telnetParser strips telnet commands from the inbound stream and produces
// the negotiation replies. Binary transmission, suppress-go-ahead and
// server echo are accepted; every other option is refused.
type telnetParser struct {
	state telnetState
	verb  byte

	// Options currently enabled: remote is what the server does, local is what we do.
	remote [256]bool
	local  [256]bool
}

// feed returns the data bytes in in and any replies to send back.
func (p *telnetParser) feed(in []byte) (data, replies []byte) {
	data = make([]byte, 0, len(in))
	for _, c := range in {
		switch p.state {
		case stData:
			switch {
			case c == telnetIAC:
				p.state = stIAC
			case c == '\r' && !p.remote[optBinary]:
				data = append(data, c)
				p.state = stCR
			default:
				data = append(data, c)
			}
		case stCR:
			// CR NUL is a bare carriage return.
			p.state = stData
			switch c {
			case 0:
			case telnetIAC:
				p.state = stIAC
			case '\r':
				data = append(data, c)
				p.state = stCR
			default:
				data = append(data, c)
			}
		case stIAC:
			switch c {
			case telnetIAC:
				data = append(data, telnetIAC)
				p.state = stData
			case telnetWILL, telnetWONT, telnetDO, telnetDONT:
				p.verb = c
				p.state = stOption
			case telnetSB:
				p.state = stSub
			default:
				// NOP, GA, AYT and friends carry nothing for us.
				p.state = stData
			}
		case stOption:
			replies = append(replies, p.negotiate(p.verb, c)...)
			p.state = stData
		case stSub:
			if c == telnetIAC {
				p.state = stSubIAC
			}
		case stSubIAC:
			if c == telnetSE {
				p.state = stData
			} else {
				p.state = stSub
			}
		}
	}
	return data, replies
}

func acceptRemote(opt byte) bool {
	return opt == optBinary || opt == optEcho || opt == optSGA
}

func acceptLocal(opt byte) bool {
	return opt == optBinary || opt == optSGA
}

// negotiate answers one option command, replying only when the state
// changes so the two sides cannot loop.
func (p *telnetParser) negotiate(verb, opt byte) []byte {
	switch verb {
	case telnetWILL:
		if p.remote[opt] {
			return nil
		}
		if acceptRemote(opt) {
			p.remote[opt] = true
			return []byte{telnetIAC, telnetDO, opt}
		}
		return []byte{telnetIAC, telnetDONT, opt}
	case telnetWONT:
		if !p.remote[opt] {
			return nil
		}
		p.remote[opt] = false
		return []byte{telnetIAC, telnetDONT, opt}
	case telnetDO:
		if p.local[opt] {
			return nil
		}
		if acceptLocal(opt) {
			p.local[opt] = true
			return []byte{telnetIAC, telnetWILL, opt}
		}
		return []byte{telnetIAC, telnetWONT, opt}
	case telnetDONT:
		if !p.local[opt] {
			return nil
		}
		p.local[opt] = false
		return []byte{telnetIAC, telnetWONT, opt}
	}
	return nil
}

// escapeIAC doubles every 0xFF so data is not read as a command.
func escapeIAC(p []byte) []byte {
	if bytes.IndexByte(p, telnetIAC) < 0 {
		return p
	}
	out := make([]byte, 0, len(p)+8)
	for _, c := range p {
		if c == telnetIAC {
			out = append(out, telnetIAC)
		}
		out = append(out, c)
	}
	return out
}

type telnetConn struct {
	nc     net.Conn
	log    *logger.Logger
	parser telnetParser
	buf    []byte

	writeMu sync.Mutex
}

func newTelnetConn(nc net.Conn, log *logger.Logger) *telnetConn {
	c := &telnetConn{nc: nc, log: log, buf: make([]byte, 4096)}
	// Ask for a binary, character-at-a-time session up front.
	_ = c.write([]byte{
		telnetIAC, telnetDO, optSGA,
		telnetIAC, telnetWILL, optBinary,
		telnetIAC, telnetDO, optBinary,
	})
	c.parser.remote[optSGA] = true
	c.parser.local[optBinary] = true
	c.parser.remote[optBinary] = true
	return c
}

func (c *telnetConn) write(p []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.nc.Write(p)
	return err
}

// Read returns the next data bytes, answering negotiation as it goes. It
// never returns (0, nil) for a chunk that held only commands.
func (c *telnetConn) Read(p []byte) (int, error) {
	for {
		n, err := c.nc.Read(c.buf[:min(len(p), len(c.buf))])
		if n > 0 {
			data, replies := c.parser.feed(c.buf[:n])
			if len(replies) > 0 {
				if werr := c.write(replies); werr != nil {
					c.log.Debug("telnet negotiation reply failed", zap.Error(werr))
				}
			}
			if len(data) > 0 {
				return copy(p, data), nil
			}
		}
		if err != nil {
			return 0, err
		}
	}
}

func (c *telnetConn) Send(p []byte) error {
	return c.write(escapeIAC(p))
}

func (c *telnetConn) Protocol() Protocol { return Telnet }

func (c *telnetConn) Close() error { return c.nc.Close() }
