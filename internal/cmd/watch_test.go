package cmd

import (
	"strings"
	"testing"

	"github.com/tmuxwire/tmuxwire/internal/protocol"
)

func TestDisplayKind(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"%output %1 hi", "Output"},
		{"%window-add @2", "Window Add"},
		{"%sessions-changed", "Sessions Changed"},
		{"%client-session-changed /dev/tty $1 main", "Client Session Changed"},
	}
	for _, tt := range tests {
		n := protocol.Classify(tt.line)
		if got := displayKind(n.Kind); got != tt.want {
			t.Errorf("displayKind(%s) = %q, want %q", n.Kind, got, tt.want)
		}
	}
}

func TestNotificationDetail(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{
			name: "output decodes octal escapes",
			line: `%output %3 hello\015\012`,
			want: "%3 hello\r\n",
		},
		{
			name: "window fields in stable order",
			line: "%window-renamed @2 logs",
			want: "window_id=@2 window_name=logs",
		},
		{
			name: "unknown tag passes through raw",
			line: "%future-tag a b c",
			want: "%future-tag a b c",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := protocol.Classify(tt.line)
			if got := notificationDetail(n); got != tt.want {
				t.Errorf("detail = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatNotificationIncludesKindAndDetail(t *testing.T) {
	n := protocol.Classify("%window-add @7")
	got := formatNotification(n)
	if !strings.Contains(got, "Window Add") {
		t.Errorf("missing kind label: %q", got)
	}
	if !strings.Contains(got, "@7") {
		t.Errorf("missing window id: %q", got)
	}
}
