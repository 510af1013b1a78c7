package protocol

import (
	"reflect"
	"testing"
)

func TestClassifyKnownTags(t *testing.T) {
	tests := []struct {
		name string
		line string
		kind Kind
		data map[string]string
	}{
		{
			name: "output",
			line: "%output %5 hello world",
			kind: KindOutput,
			data: map[string]string{"pane_id": "%5", "output": "hello world"},
		},
		{
			name: "output preserves internal spacing",
			line: "%output %5 a  b",
			kind: KindOutput,
			data: map[string]string{"pane_id": "%5", "output": "a  b"},
		},
		{
			name: "output with empty payload",
			line: "%output %5 ",
			kind: KindOutput,
			data: map[string]string{"pane_id": "%5", "output": ""},
		},
		{
			name: "extended output splits at separator",
			line: "%extended-output %2 100 : ls -la : more",
			kind: KindExtendedOutput,
			data: map[string]string{"pane_id": "%2", "age": "100", "output": "ls -la : more"},
		},
		{
			name: "pane mode changed",
			line: "%pane-mode-changed %1",
			kind: KindPaneModeChanged,
			data: map[string]string{"pane_id": "%1"},
		},
		{
			name: "layout change full",
			line: "%layout-change @1 b25d,80x24,0,0,1 b25d,80x24,0,0,1 *",
			kind: KindLayoutChange,
			data: map[string]string{
				"window_id":             "@1",
				"window_layout":         "b25d,80x24,0,0,1",
				"window_visible_layout": "b25d,80x24,0,0,1",
				"window_raw_flags":      "*",
			},
		},
		{
			name: "layout change short form",
			line: "%layout-change @1 b25d,80x24,0,0,1",
			kind: KindLayoutChange,
			data: map[string]string{"window_id": "@1", "window_layout": "b25d,80x24,0,0,1"},
		},
		{
			name: "window add",
			line: "%window-add @7",
			kind: KindWindowAdd,
			data: map[string]string{"window_id": "@7"},
		},
		{
			name: "window renamed joins name",
			line: "%window-renamed @2 my editor window",
			kind: KindWindowRenamed,
			data: map[string]string{"window_id": "@2", "window_name": "my editor window"},
		},
		{
			name: "window pane changed",
			line: "%window-pane-changed @2 %4",
			kind: KindWindowPaneChanged,
			data: map[string]string{"window_id": "@2", "pane_id": "%4"},
		},
		{
			name: "unlinked window close",
			line: "%unlinked-window-close @9",
			kind: KindUnlinkedWindowClose,
			data: map[string]string{"window_id": "@9"},
		},
		{
			name: "session changed",
			line: "%session-changed $1 mysession",
			kind: KindSessionChanged,
			data: map[string]string{"session_id": "$1", "session_name": "mysession"},
		},
		{
			name: "session changed with spaces in name",
			line: "%session-changed $1 my session",
			kind: KindSessionChanged,
			data: map[string]string{"session_id": "$1", "session_name": "my session"},
		},
		{
			name: "session renamed with id",
			line: "%session-renamed $3 newname",
			kind: KindSessionRenamed,
			data: map[string]string{"session_id": "$3", "session_name": "newname"},
		},
		{
			name: "session renamed legacy form",
			line: "%session-renamed newname",
			kind: KindSessionRenamed,
			data: map[string]string{"session_name": "newname"},
		},
		{
			name: "sessions changed",
			line: "%sessions-changed",
			kind: KindSessionsChanged,
			data: map[string]string{},
		},
		{
			name: "session window changed",
			line: "%session-window-changed $1 @5",
			kind: KindSessionWindowChanged,
			data: map[string]string{"session_id": "$1", "window_id": "@5"},
		},
		{
			name: "client session changed",
			line: "%client-session-changed /dev/ttys002 $2 other session",
			kind: KindClientSessionChanged,
			data: map[string]string{
				"client_name":  "/dev/ttys002",
				"session_id":   "$2",
				"session_name": "other session",
			},
		},
		{
			name: "client detached",
			line: "%client-detached /dev/ttys002",
			kind: KindClientDetached,
			data: map[string]string{"client_name": "/dev/ttys002"},
		},
		{
			name: "paste buffer changed",
			line: "%paste-buffer-changed buffer0",
			kind: KindPasteBufferChanged,
			data: map[string]string{"buffer_name": "buffer0"},
		},
		{
			name: "paste buffer deleted",
			line: "%paste-buffer-deleted buffer0",
			kind: KindPasteBufferDeleted,
			data: map[string]string{"buffer_name": "buffer0"},
		},
		{
			name: "pause",
			line: "%pause %3",
			kind: KindPause,
			data: map[string]string{"pane_id": "%3"},
		},
		{
			name: "continue",
			line: "%continue %3",
			kind: KindContinue,
			data: map[string]string{"pane_id": "%3"},
		},
		{
			name: "subscription changed",
			line: "%subscription-changed mysub $1 @2 0 %3 : some : value",
			kind: KindSubscriptionChanged,
			data: map[string]string{
				"subscription_name": "mysub",
				"session_id":        "$1",
				"window_id":         "@2",
				"window_index":      "0",
				"pane_id":           "%3",
				"value":             "some : value",
			},
		},
		{
			name: "subscription changed normalizes dashes",
			line: "%subscription-changed mysub $1 - - - : value",
			kind: KindSubscriptionChanged,
			data: map[string]string{
				"subscription_name": "mysub",
				"session_id":        "$1",
				"value":             "value",
			},
		},
		{
			name: "exit with reason",
			line: "%exit server exited",
			kind: KindExit,
			data: map[string]string{"reason": "server exited"},
		},
		{
			name: "exit bare",
			line: "%exit",
			kind: KindExit,
			data: map[string]string{},
		},
		{
			name: "message",
			line: "%message hello from tmux",
			kind: KindMessage,
			data: map[string]string{"message": "hello from tmux"},
		},
		{
			name: "config error",
			line: "%config-error /etc/tmux.conf:1: unknown command",
			kind: KindConfigError,
			data: map[string]string{"message": "/etc/tmux.conf:1: unknown command"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Classify(tt.line)
			if n.Kind != tt.kind {
				t.Fatalf("Classify(%q) kind = %v, want %v", tt.line, n.Kind, tt.kind)
			}
			if n.Raw != tt.line {
				t.Errorf("Raw = %q, want %q", n.Raw, tt.line)
			}
			if !reflect.DeepEqual(n.Data, tt.data) {
				t.Errorf("Data = %v, want %v", n.Data, tt.data)
			}
			if n.When.IsZero() {
				t.Error("When is zero")
			}
		})
	}
}

func TestClassifyRawFallback(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"unknown tag", "%totally-new-thing foo"},
		{"output without pane", "%output"},
		{"session changed too short", "%session-changed $1"},
		{"extended output without separator", "%extended-output %2 100 payload"},
		{"subscription changed too short", "%subscription-changed mysub $1 : v"},
		{"window renamed without name", "%window-renamed @2"},
		{"message without text", "%message"},
		{"layout change without layout", "%layout-change @1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Classify(tt.line)
			if n.Kind != KindRaw {
				t.Fatalf("Classify(%q) kind = %v, want KindRaw", tt.line, n.Kind)
			}
			if n.Raw != tt.line {
				t.Errorf("Raw = %q, want input verbatim", n.Raw)
			}
			if len(n.Data) != 0 {
				t.Errorf("Data = %v, want empty", n.Data)
			}
		})
	}
}

func TestNotificationAccessors(t *testing.T) {
	n := Classify("%output %5 payload")
	if got := n.PaneID(); got != "%5" {
		t.Errorf("PaneID = %q, want %%5", got)
	}
	if got := n.Output(); got != "payload" {
		t.Errorf("Output = %q, want payload", got)
	}

	n = Classify("%session-window-changed $1 @5")
	if got := n.SessionID(); got != "$1" {
		t.Errorf("SessionID = %q, want $1", got)
	}
	if got := n.WindowID(); got != "@5" {
		t.Errorf("WindowID = %q, want @5", got)
	}
}

func TestKindNames(t *testing.T) {
	if got := KindSessionChanged.String(); got != "%session-changed" {
		t.Errorf("String = %q", got)
	}
	if got := KindSessionChanged.Name(); got != "session-changed" {
		t.Errorf("Name = %q", got)
	}

	k, ok := KindByName("window-add")
	if !ok || k != KindWindowAdd {
		t.Errorf("KindByName(window-add) = %v, %v", k, ok)
	}
	if _, ok := KindByName("no-such-kind"); ok {
		t.Error("KindByName accepted unknown name")
	}
}
