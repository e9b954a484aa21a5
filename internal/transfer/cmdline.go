package transfer

// quoteProgram quotes a program path for a Windows command line following the
// CommandLineToArgvW rules: a path with blanks is wrapped in double quotes,
// and backslashes are doubled only where they precede a quote.
func quoteProgram(s string) string {
	if len(s) == 0 {
		return `""`
	}

	needsBackslash, hasSpace := false, false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"', '\\':
			needsBackslash = true
		case ' ', '\t':
			hasSpace = true
		}
	}
	if !needsBackslash && !hasSpace {
		return s
	}
	if !needsBackslash {
		return `"` + s + `"`
	}

	var b []byte
	if hasSpace {
		b = append(b, '"')
	}
	slashes := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		default:
			slashes = 0
		case '\\':
			slashes++
		case '"':
			for ; slashes > 0; slashes-- {
				b = append(b, '\\')
			}
			b = append(b, '\\')
		}
		b = append(b, c)
	}
	if hasSpace {
		for ; slashes > 0; slashes-- {
			b = append(b, '\\')
		}
		b = append(b, '"')
	}
	return string(b)
}

// commandLine is the raw Windows command line for c. The argument string is
// passed through exactly so each file keeps the quoting the user sees.
func commandLine(program string, c Command) string {
	args := c.ArgString()
	if args == "" {
		return quoteProgram(program)
	}
	if args[0] == ' ' {
		return quoteProgram(program) + args
	}
	return quoteProgram(program) + " " + args
}
