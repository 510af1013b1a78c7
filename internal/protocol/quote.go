package protocol

import (
	"fmt"
	"strings"
)

// Quote returns a shell-safe rendering of one argument for the control
// client's command line. Values containing special characters are
// wrapped in single quotes, with embedded single quotes escaped as
// '\''. The empty string quotes to '' so the argument survives word
// splitting.
func Quote(s string) string {
	if s == "" {
		return "''"
	}

	needsQuoting := false
	for _, c := range s {
		switch c {
		case ' ', '\t', '\n', '"', '\'', '`', '$', '\\', '!', '*', '?',
			'[', ']', '{', '}', '(', ')', '<', '>', '|', '&', ';', '#', '~':
			needsQuoting = true
		}
		if needsQuoting {
			break
		}
	}

	if !needsQuoting {
		return s
	}

	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}

// JoinLine renders argv as one control-mode command line, each argument
// quoted as needed and joined by single spaces. The trailing newline is
// the writer's responsibility.
func JoinLine(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		parts[i] = Quote(a)
	}
	return strings.Join(parts, " ")
}

// SplitLine splits a command line typed by a user into argv, honoring
// single quotes, double quotes, and backslash escapes outside quotes.
// It is the inverse of JoinLine for lines JoinLine produces. An
// unterminated quote is an error.
func SplitLine(line string) ([]string, error) {
	var argv []string
	var cur strings.Builder
	inWord := false

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch c {
		case ' ', '\t':
			if inWord {
				argv = append(argv, cur.String())
				cur.Reset()
				inWord = false
			}
		case '\'', '"':
			quote := c
			inWord = true
			i++
			for ; i < len(line); i++ {
				if line[i] == quote {
					break
				}
				if quote == '"' && line[i] == '\\' && i+1 < len(line) {
					i++
				}
				cur.WriteByte(line[i])
			}
			if i >= len(line) {
				return nil, fmt.Errorf("unterminated %c quote in %q", quote, line)
			}
		case '\\':
			inWord = true
			if i+1 < len(line) {
				i++
				cur.WriteByte(line[i])
			}
		default:
			inWord = true
			cur.WriteByte(c)
		}
	}
	if inWord {
		argv = append(argv, cur.String())
	}
	return argv, nil
}
