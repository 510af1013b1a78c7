package protocol

import "testing"

func TestUnescapeOctal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no escapes", "plain text", "plain text"},
		{"escape sequence", `\033[1m bold`, "\x1b[1m bold"},
		{"carriage return newline", `line\015\012`, "line\r\n"},
		{"double backslash", `a\\b`, `a\b`},
		{"incomplete escape passes through", `tail\03`, `tail\03`},
		{"non octal digits pass through", `\999`, `\999`},
		{"trailing backslash", `end\`, `end\`},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UnescapeOctal(tt.in); got != tt.want {
				t.Errorf("UnescapeOctal(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
