package transfer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func countMatches(s *Scanner, input string) int {
	n := 0
	for i := 0; i < len(input); i++ {
		if s.Feed(input[i]) {
			n++
		}
	}
	return n
}

func TestScannerMatches(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"exact", Invitation, 1},
		{"twice in a row", Invitation + Invitation, 2},
		{"surrounded by noise", "login ok\r\n$ sz file\r\n" + Invitation + "\x11", 1},
		{"prefix only", Invitation[:len(Invitation)-1], 0},
		{"empty", "", 0},
		{"mismatch in the middle", "**\x18B0000000X000000\r", 0},
		{"extra leading star", "***\x18B00000000000000\r", 1},
		{"broken then complete", "**\x18B00" + Invitation, 1},
		{"restart on the mismatching byte", "**\x18B0**\x18B00000000000000\r", 1},
		{"telnet NUL padding", strings.Replace(Invitation, "\r", "\r\x00", 1), 1},
		{"NUL inside the header", "**\x18\x00B00000000000000\r", 1},
		{"ZRINIT from a receiver", "**\x18B0100000023be50\r", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Scanner
			assert.Equal(t, tt.want, countMatches(&s, tt.input))
		})
	}
}

func TestScannerResetsAfterMatch(t *testing.T) {
	var s Scanner
	for i := 0; i < len(Invitation)-1; i++ {
		assert.False(t, s.Feed(Invitation[i]))
	}
	assert.True(t, s.Feed(Invitation[len(Invitation)-1]))
	assert.Equal(t, 0, s.cursor)
}

func TestScannerReset(t *testing.T) {
	var s Scanner
	countMatches(&s, Invitation[:10])
	s.Reset()
	assert.Equal(t, 0, countMatches(&s, Invitation[10:]))
}

func TestFallbackTable(t *testing.T) {
	table := fallbackTable(Invitation)
	assert.Equal(t, 0, table[0])
	assert.Equal(t, 1, table[1])
	for i := 2; i < len(table); i++ {
		assert.Equal(t, 0, table[i], "index %d", i)
	}
}
