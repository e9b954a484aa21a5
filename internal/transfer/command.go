package transfer

import (
	"strings"
)

// Direction is the transfer direction of a session.
type Direction string

const (
	Download Direction = "download"
	Upload   Direction = "upload"
)

// Command is one helper invocation.
type Command struct {
	Program string
	Options string
	Files   []string
	// Dir is the helper's working directory.
	Dir string
}

// ArgString renders the argument string shown to the user and passed as the
// raw command line on Windows: the options followed by each file as ` "path"`.
func (c Command) ArgString() string {
	var b strings.Builder
	b.Grow(len(c.Options) + len(c.Files)*4 + totalLen(c.Files))
	b.WriteString(c.Options)
	for _, f := range c.Files {
		b.WriteString(` "`)
		b.WriteString(f)
		b.WriteByte('"')
	}
	return b.String()
}

// Argv returns the helper arguments for hosts that take an argument vector.
// Options are split on whitespace with double-quote grouping; file paths are
// appended untouched.
func (c Command) Argv() []string {
	args := splitArgs(c.Options)
	return append(args, c.Files...)
}

// ParseFileList splits a line typed by the user into file paths using the
// same quoting rules as option strings.
func ParseFileList(line string) []string {
	return splitArgs(line)
}

func totalLen(ss []string) int {
	n := 0
	for _, s := range ss {
		n += len(s)
	}
	return n
}

// splitArgs splits an option string into words. Double quotes group words
// containing blanks and are removed; a backslash escapes a double quote or
// another backslash. Anything else is literal.
func splitArgs(s string) []string {
	var (
		args    []string
		cur     strings.Builder
		inQuote bool
		inWord  bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s) && (s[i+1] == '"' || s[i+1] == '\\'):
			i++
			cur.WriteByte(s[i])
			inWord = true
		case c == '"':
			inQuote = !inQuote
			inWord = true
		case (c == ' ' || c == '\t') && !inQuote:
			if inWord {
				args = append(args, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteByte(c)
			inWord = true
		}
	}
	if inWord {
		args = append(args, cur.String())
	}
	return args
}
