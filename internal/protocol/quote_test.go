package protocol

import "testing"

func TestQuote(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain word", "list-sessions", "list-sessions"},
		{"flag", "-t", "-t"},
		{"empty", "", "''"},
		{"space", "my session", "'my session'"},
		{"double quote", `say "hi"`, `'say "hi"'`},
		{"single quote", "it's", `'it'\''s'`},
		{"dollar", "$HOME", "'$HOME'"},
		{"semicolon", "a;b", "'a;b'"},
		{"glob", "*.go", "'*.go'"},
		{"path stays bare", "/tmp/sock", "/tmp/sock"},
		{"equals stays bare", "FOO=bar", "FOO=bar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Quote(tt.in); got != tt.want {
				t.Errorf("Quote(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestJoinLine(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		want string
	}{
		{
			name: "simple command",
			argv: []string{"list-sessions"},
			want: "list-sessions",
		},
		{
			name: "send-keys with spaces",
			argv: []string{"send-keys", "-t", "%1", "echo hello", "Enter"},
			want: "send-keys -t %1 'echo hello' Enter",
		},
		{
			name: "empty argument survives",
			argv: []string{"display-message", "-p", ""},
			want: "display-message -p ''",
		},
		{
			name: "no arguments",
			argv: nil,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JoinLine(tt.argv); got != tt.want {
				t.Errorf("JoinLine(%v) = %q, want %q", tt.argv, got, tt.want)
			}
		})
	}
}

func TestSplitLine(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"simple", "list-sessions", []string{"list-sessions"}},
		{"flags", "new-session -d -s work", []string{"new-session", "-d", "-s", "work"}},
		{"single quoted", "send-keys -t %1 'echo hello' Enter", []string{"send-keys", "-t", "%1", "echo hello", "Enter"}},
		{"double quoted", `display-message "a b"`, []string{"display-message", "a b"}},
		{"embedded quote", `rename-session 'it'\''s'`, []string{"rename-session", "it's"}},
		{"escaped space", `run cmd\ arg`, []string{"run", "cmd arg"}},
		{"escape in double quotes", `echo "a\"b"`, []string{"echo", `a"b`}},
		{"empty argument", "display-message -p ''", []string{"display-message", "-p", ""}},
		{"extra whitespace", "  list-sessions   -F  ", []string{"list-sessions", "-F"}},
		{"empty line", "", nil},
		{"tabs", "a\tb", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitLine(tt.in)
			if err != nil {
				t.Fatalf("SplitLine(%q): %v", tt.in, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("SplitLine(%q) = %v, want %v", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("SplitLine(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSplitLineUnterminatedQuote(t *testing.T) {
	for _, in := range []string{"send-keys 'oops", `say "half`} {
		if _, err := SplitLine(in); err == nil {
			t.Errorf("SplitLine(%q) succeeded, want error", in)
		}
	}
}

func TestSplitLineRoundTrip(t *testing.T) {
	argvs := [][]string{
		{"send-keys", "-t", "%1", "echo 'quoted' text", "Enter"},
		{"new-session", "-d", "-s", "my session", "-c", "/tmp/dir with spaces"},
		{"display-message", "-p", ""},
	}
	for _, argv := range argvs {
		got, err := SplitLine(JoinLine(argv))
		if err != nil {
			t.Fatalf("round trip %v: %v", argv, err)
		}
		if len(got) != len(argv) {
			t.Fatalf("round trip %v = %v", argv, got)
		}
		for i := range got {
			if got[i] != argv[i] {
				t.Errorf("round trip %v[%d] = %q", argv, i, got[i])
			}
		}
	}
}
