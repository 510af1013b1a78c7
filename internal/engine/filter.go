package engine

import "strings"

// Identity captures the server-level flags that select which tmux
// server and configuration a connection talks to. These are properties
// of the open socket, not of any single command: the control engine
// compares a command's requested identity against its live connection
// and respawns when they differ.
type Identity struct {
	SocketName string // -L
	SocketPath string // -S
	ConfigFile string // -f
}

// IsZero reports whether no server-identity flags were supplied.
func (id Identity) IsZero() bool { return id == Identity{} }

// StripServerArgs splits argv into the server identity it requests and
// the per-command remainder. Stripped flags, in two-part or glued form:
// -L name, -S path, -f file (folded into the identity), the -2/-8
// color-depth flags, and -F format strings, which control mode rejects
// on most list commands. The remainder can come back empty when argv
// held only flags; callers fail fast with ErrEmptyCommand rather than
// write an empty line to the connection.
func StripServerArgs(argv []string) (Identity, []string) {
	var id Identity
	out := make([]string, 0, len(argv))

	for i := 0; i < len(argv); i++ {
		a := argv[i]
		switch {
		case a == "-L", a == "-S", a == "-f", a == "-F":
			var val string
			if i+1 < len(argv) {
				val = argv[i+1]
				i++
			}
			switch a {
			case "-L":
				id.SocketName = val
			case "-S":
				id.SocketPath = val
			case "-f":
				id.ConfigFile = val
			}
			// -F values are dropped outright.

		case a == "-2", a == "-8":
			// Color depth is fixed when the connection opens.

		case strings.HasPrefix(a, "-L") && len(a) > 2:
			id.SocketName = a[2:]
		case strings.HasPrefix(a, "-S") && len(a) > 2:
			id.SocketPath = a[2:]
		case strings.HasPrefix(a, "-f") && len(a) > 2:
			id.ConfigFile = a[2:]
		case strings.HasPrefix(a, "-F") && len(a) > 2:
			// Glued format string, dropped.

		default:
			out = append(out, a)
		}
	}

	return id, out
}
