// Package testutil provides shared test infrastructure: fake tmux
// binaries that speak just enough control mode to exercise the
// connection machinery without a real server.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// EchoServer is a fake tmux that greets like a control-mode server and
// then answers every command line with a reply block echoing it back.
// A few command words get special treatment:
//
//	kill-server  exit immediately, closing the stream with no reply
//	stall        swallow the line and never reply
//	fail         answer with an %error block
//	note         emit an %output notification before an empty reply
//
// Reply blocks carry the 1-based index of the command they answer as
// the command ID.
const EchoServer = `printf '%%begin 1000 0 0\n%%end 1000 0 0\n'
i=0
while IFS= read -r line; do
  i=$((i+1))
  case "$line" in
    kill-server*) exit 0 ;;
    stall*) ;;
    fail*) printf '%%begin 1000 %d 1\nbad command\n%%error 1000 %d 1\n' "$i" "$i" ;;
    note*) printf '%%output %%7 ping\n%%begin 1000 %d 0\n%%end 1000 %d 0\n' "$i" "$i" ;;
    *) printf '%%begin 1000 %d 0\ngot:%s\n%%end 1000 %d 0\n' "$i" "$line" "$i" ;;
  esac
done
`

// OneShotServer is a fake tmux that answers a single command and then
// drops the connection, for exercising reconnect paths.
const OneShotServer = `printf '%%begin 1000 0 0\n%%end 1000 0 0\n'
IFS= read -r line
printf '%%begin 1000 1 0\nonce\n%%end 1000 1 0\n'
exit 0
`

// FakeTmux writes body as an executable shell script under the test's
// temp dir and returns its path, suitable for control.Config.TmuxPath.
func FakeTmux(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-tmux")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("writing fake tmux: %v", err)
	}
	return path
}
