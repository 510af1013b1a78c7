package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// GuardType distinguishes the three lines that bracket command output.
type GuardType int

const (
	// GuardNone marks a line that is not a guard at all.
	GuardNone GuardType = iota

	// GuardBegin opens a command output block.
	GuardBegin

	// GuardEnd closes a block successfully.
	GuardEnd

	// GuardError closes a block with a command failure.
	GuardError
)

// String returns the wire tag for the guard type.
func (t GuardType) String() string {
	switch t {
	case GuardBegin:
		return "%begin"
	case GuardEnd:
		return "%end"
	case GuardError:
		return "%error"
	default:
		return "none"
	}
}

// Guard is a parsed %begin, %end, or %error line. Time is the
// tmux-reported epoch seconds, CommandID the server-assigned command
// number, Flags the raw flag bits (bit 0 hints failure, though %error
// is the authoritative signal).
type Guard struct {
	Type      GuardType
	Time      int64
	CommandID int
	Flags     int
}

// GuardTypeOf reports which guard tag, if any, starts the line. It
// looks only at the first token, so a malformed guard still reports
// its type; ParseGuard decides whether the fields hold up.
func GuardTypeOf(line string) GuardType {
	tag, _, _ := strings.Cut(line, " ")
	switch tag {
	case "%begin":
		return GuardBegin
	case "%end":
		return GuardEnd
	case "%error":
		return GuardError
	default:
		return GuardNone
	}
}

// ParseGuard parses a guard line into its numeric fields. The wire
// format is "%begin <time> <id> <flags>"; fewer than three numeric
// fields, or non-numeric values, is an error. Extra trailing fields
// are tolerated and ignored.
func ParseGuard(line string) (Guard, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Guard{}, fmt.Errorf("empty guard line")
	}

	g := Guard{Type: GuardTypeOf(line)}
	if g.Type == GuardNone {
		return Guard{}, fmt.Errorf("not a guard line: %q", line)
	}
	if len(fields) < 4 {
		return Guard{}, fmt.Errorf("guard %s: want 3 fields, got %d", fields[0], len(fields)-1)
	}

	t, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return Guard{}, fmt.Errorf("guard %s: bad timestamp %q", fields[0], fields[1])
	}
	id, err := strconv.Atoi(fields[2])
	if err != nil {
		return Guard{}, fmt.Errorf("guard %s: bad command id %q", fields[0], fields[2])
	}
	flags, err := strconv.Atoi(fields[3])
	if err != nil {
		return Guard{}, fmt.Errorf("guard %s: bad flags %q", fields[0], fields[3])
	}

	g.Time = t
	g.CommandID = id
	g.Flags = flags
	return g, nil
}
