// Package protocol implements the line-level grammar of tmux control mode:
// classification of asynchronous %-tagged notifications, parsing of the
// %begin/%end/%error guards that bracket command output, and the quoting
// rules for the command lines written to the control client.
//
// Everything in this package is pure: no goroutines, no I/O, no state.
// The connection layer feeds lines in; structured values come out.
package protocol

import (
	"strings"
	"time"
)

// Kind identifies a notification tag emitted by tmux control mode.
type Kind int

// Notification kinds, one per tag tmux emits outside command blocks.
// KindRaw is the fallback for tags this package does not recognize or
// lines too short to parse structurally.
const (
	KindRaw Kind = iota
	KindOutput
	KindExtendedOutput
	KindPaneModeChanged
	KindLayoutChange
	KindWindowAdd
	KindWindowClose
	KindWindowRenamed
	KindWindowPaneChanged
	KindUnlinkedWindowAdd
	KindUnlinkedWindowClose
	KindUnlinkedWindowRenamed
	KindSessionChanged
	KindSessionRenamed
	KindSessionsChanged
	KindSessionWindowChanged
	KindClientSessionChanged
	KindClientDetached
	KindPasteBufferChanged
	KindPasteBufferDeleted
	KindPause
	KindContinue
	KindSubscriptionChanged
	KindExit
	KindMessage
	KindConfigError
)

// kindTags maps each kind to its wire tag. Indexed by Kind.
var kindTags = [...]string{
	KindRaw:                   "raw",
	KindOutput:                "%output",
	KindExtendedOutput:        "%extended-output",
	KindPaneModeChanged:       "%pane-mode-changed",
	KindLayoutChange:          "%layout-change",
	KindWindowAdd:             "%window-add",
	KindWindowClose:           "%window-close",
	KindWindowRenamed:         "%window-renamed",
	KindWindowPaneChanged:     "%window-pane-changed",
	KindUnlinkedWindowAdd:     "%unlinked-window-add",
	KindUnlinkedWindowClose:   "%unlinked-window-close",
	KindUnlinkedWindowRenamed: "%unlinked-window-renamed",
	KindSessionChanged:        "%session-changed",
	KindSessionRenamed:        "%session-renamed",
	KindSessionsChanged:       "%sessions-changed",
	KindSessionWindowChanged:  "%session-window-changed",
	KindClientSessionChanged:  "%client-session-changed",
	KindClientDetached:        "%client-detached",
	KindPasteBufferChanged:    "%paste-buffer-changed",
	KindPasteBufferDeleted:    "%paste-buffer-deleted",
	KindPause:                 "%pause",
	KindContinue:              "%continue",
	KindSubscriptionChanged:   "%subscription-changed",
	KindExit:                  "%exit",
	KindMessage:               "%message",
	KindConfigError:           "%config-error",
}

// kindsByTag is the dispatch table for Classify, built from kindTags.
var kindsByTag = func() map[string]Kind {
	m := make(map[string]Kind, len(kindTags))
	for k, tag := range kindTags {
		if Kind(k) == KindRaw {
			continue
		}
		m[tag] = Kind(k)
	}
	return m
}()

// String returns the wire tag for the kind ("%output"), or "raw" for KindRaw.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindTags) {
		return "raw"
	}
	return kindTags[k]
}

// Name returns the tag without the leading '%', suitable for display
// and for matching against user-supplied kind filters.
func (k Kind) Name() string {
	return strings.TrimPrefix(k.String(), "%")
}

// KindByName looks up a kind from its bare tag name ("session-changed").
// Returns KindRaw and false for unknown names.
func KindByName(name string) (Kind, bool) {
	k, ok := kindsByTag["%"+name]
	return k, ok
}

// Notification is one asynchronous control-mode event. It is immutable
// after classification: Kind identifies the tag, Raw preserves the
// original line verbatim, and Data holds the named fields parsed from
// it. Field semantics are per-kind; see Classify.
type Notification struct {
	Kind Kind
	When time.Time
	Raw  string
	Data map[string]string
}

// PaneID returns the pane identifier ("%3") for pane-scoped kinds, or "".
func (n Notification) PaneID() string { return n.Data["pane_id"] }

// WindowID returns the window identifier ("@2") for window-scoped kinds, or "".
func (n Notification) WindowID() string { return n.Data["window_id"] }

// SessionID returns the session identifier ("$1") for session-scoped kinds, or "".
func (n Notification) SessionID() string { return n.Data["session_id"] }

// Output returns the payload of %output and %extended-output lines, or "".
// The payload is verbatim wire text; octal escapes are not decoded here.
func (n Notification) Output() string { return n.Data["output"] }

// extendedSeparator splits header fields from payload in the two tags
// whose payload may itself contain spaces and colons. The split point is
// the first occurrence of exactly these three characters.
const extendedSeparator = " : "

// Classify parses one %-tagged line into a Notification. It is total:
// unknown tags and lines with too few fields for their tag come back as
// KindRaw with the line preserved in Raw, never an error.
//
// Trailing name and message fields are reassembled by joining the
// remaining tokens with single spaces. %extended-output and
// %subscription-changed are instead split at the first " : ", keeping
// the payload byte-for-byte. Fields sent as the placeholder "-" are
// omitted from Data.
func Classify(line string) Notification {
	n := Notification{Kind: KindRaw, When: time.Now(), Raw: line}

	tag, rest, _ := strings.Cut(line, " ")
	kind, ok := kindsByTag[tag]
	if !ok {
		return n
	}

	data := make(map[string]string, 4)
	switch kind {
	case KindOutput:
		pane, payload, _ := strings.Cut(rest, " ")
		if pane == "" {
			return n
		}
		data["pane_id"] = pane
		data["output"] = payload

	case KindExtendedOutput:
		header, payload, found := strings.Cut(rest, extendedSeparator)
		fields := strings.Fields(header)
		if !found || len(fields) < 2 {
			return n
		}
		data["pane_id"] = fields[0]
		data["age"] = fields[1]
		data["output"] = payload

	case KindSubscriptionChanged:
		header, payload, found := strings.Cut(rest, extendedSeparator)
		fields := strings.Fields(header)
		if !found || len(fields) < 5 {
			return n
		}
		setField(data, "subscription_name", fields[0])
		setField(data, "session_id", fields[1])
		setField(data, "window_id", fields[2])
		setField(data, "window_index", fields[3])
		setField(data, "pane_id", fields[4])
		data["value"] = payload

	default:
		fields := strings.Fields(rest)
		if !classifyFields(kind, fields, data) {
			return n
		}
	}

	n.Kind = kind
	n.Data = data
	return n
}

// classifyFields handles the kinds whose arguments are plain
// whitespace-separated fields. Returns false when the line has fewer
// fields than the tag requires, which sends the caller down the RAW path.
func classifyFields(kind Kind, fields []string, data map[string]string) bool {
	switch kind {
	case KindPaneModeChanged, KindPause, KindContinue:
		if len(fields) < 1 {
			return false
		}
		data["pane_id"] = fields[0]

	case KindLayoutChange:
		if len(fields) < 2 {
			return false
		}
		data["window_id"] = fields[0]
		data["window_layout"] = fields[1]
		if len(fields) > 2 {
			data["window_visible_layout"] = fields[2]
		}
		if len(fields) > 3 {
			data["window_raw_flags"] = fields[3]
		}

	case KindWindowAdd, KindWindowClose, KindUnlinkedWindowAdd, KindUnlinkedWindowClose:
		if len(fields) < 1 {
			return false
		}
		data["window_id"] = fields[0]

	case KindWindowRenamed, KindUnlinkedWindowRenamed:
		if len(fields) < 2 {
			return false
		}
		data["window_id"] = fields[0]
		data["window_name"] = strings.Join(fields[1:], " ")

	case KindWindowPaneChanged:
		if len(fields) < 2 {
			return false
		}
		data["window_id"] = fields[0]
		data["pane_id"] = fields[1]

	case KindSessionChanged:
		if len(fields) < 2 {
			return false
		}
		data["session_id"] = fields[0]
		data["session_name"] = strings.Join(fields[1:], " ")

	case KindSessionRenamed:
		// tmux before 2.5 sends only the new name; later versions
		// prefix the session id.
		if len(fields) < 1 {
			return false
		}
		if len(fields) >= 2 && strings.HasPrefix(fields[0], "$") {
			data["session_id"] = fields[0]
			data["session_name"] = strings.Join(fields[1:], " ")
		} else {
			data["session_name"] = strings.Join(fields, " ")
		}

	case KindSessionsChanged:
		// No arguments.

	case KindSessionWindowChanged:
		if len(fields) < 2 {
			return false
		}
		data["session_id"] = fields[0]
		data["window_id"] = fields[1]

	case KindClientSessionChanged:
		if len(fields) < 3 {
			return false
		}
		data["client_name"] = fields[0]
		data["session_id"] = fields[1]
		data["session_name"] = strings.Join(fields[2:], " ")

	case KindClientDetached:
		if len(fields) < 1 {
			return false
		}
		data["client_name"] = fields[0]

	case KindPasteBufferChanged, KindPasteBufferDeleted:
		if len(fields) < 1 {
			return false
		}
		data["buffer_name"] = strings.Join(fields, " ")

	case KindExit:
		if len(fields) > 0 {
			data["reason"] = strings.Join(fields, " ")
		}

	case KindMessage, KindConfigError:
		if len(fields) < 1 {
			return false
		}
		data["message"] = strings.Join(fields, " ")

	default:
		return false
	}
	return true
}

// setField stores a field unless tmux sent the "-" placeholder, which
// means the field does not apply to this notification.
func setField(data map[string]string, key, value string) {
	if value == "-" {
		return
	}
	data[key] = value
}
