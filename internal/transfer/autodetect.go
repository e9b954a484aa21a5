package transfer

// Invitation is the ZMODEM ZRQINIT hex header a remote sender emits when it
// wants the local side to start receiving.
const Invitation = "**\x18B00000000000000\r"

// invitationFallback[i] is the length of the longest proper prefix of
// Invitation that is also a suffix of Invitation[:i+1]. Only the leading
// "**" overlaps, so "***\x18B..." still matches.
var invitationFallback = fallbackTable(Invitation)

func fallbackTable(p string) []int {
	t := make([]int, len(p))
	k := 0
	for i := 1; i < len(p); i++ {
		for k > 0 && p[i] != p[k] {
			k = t[k-1]
		}
		if p[i] == p[k] {
			k++
		}
		t[i] = k
	}
	return t
}

// Scanner finds Invitation in a byte stream fed one byte at a time.
// A plain prefix automaton that restarts at zero on a mismatch would
// assume the pattern never overlaps itself, and Invitation does: it opens
// with "**", so on "***\x18B..." the third '*' must not discard the match.
// Feed therefore falls back through invitationFallback instead.
// The zero value is ready to use.
type Scanner struct {
	cursor int
}

// Feed reports whether c completes an occurrence of Invitation. NUL bytes
// are skipped without disturbing the match, since telnet pads CR with NUL.
func (s *Scanner) Feed(c byte) bool {
	if c == 0 {
		return false
	}
	for s.cursor > 0 && c != Invitation[s.cursor] {
		s.cursor = invitationFallback[s.cursor-1]
	}
	if c == Invitation[s.cursor] {
		s.cursor++
	}
	if s.cursor == len(Invitation) {
		s.cursor = 0
		return true
	}
	return false
}

// Reset forgets any partial match.
func (s *Scanner) Reset() {
	s.cursor = 0
}
