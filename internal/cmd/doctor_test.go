package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestClassifyVersion(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		status checkStatus
	}{
		{"modern release", "tmux 3.4", checkOK},
		{"threshold release", "tmux 2.2", checkOK},
		{"ancient release", "tmux 1.8", checkWarn},
		{"next build", "tmux next-3.6", checkOK},
		{"master build", "tmux master", checkOK},
		{"garbage", "not a version", checkWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := classifyVersion(tt.raw)
			if c.status != tt.status {
				t.Errorf("classifyVersion(%q).status = %d, want %d", tt.raw, c.status, tt.status)
			}
		})
	}
}

func TestClassifyVersionHintsOnOldRelease(t *testing.T) {
	c := classifyVersion("tmux 1.9a")
	if c.status != checkWarn {
		t.Fatalf("status = %d, want warn", c.status)
	}
	if !strings.Contains(c.hint, "2.2") {
		t.Errorf("hint should name the threshold, got %q", c.hint)
	}
}

func TestCheckConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TMUXWIRE_CONFIG", "")

	t.Run("defaults when no file", func(t *testing.T) {
		c := checkConfig(nil)
		if c.status != checkOK {
			t.Fatalf("status = %d", c.status)
		}
		if !strings.Contains(c.message, "defaults") {
			t.Errorf("message = %q", c.message)
		}
	})

	t.Run("reports loaded file", func(t *testing.T) {
		path := filepath.Join(home, ".config", "tmuxwire", "tmuxwire.toml")
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("queue_size = 64\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		c := checkConfig(nil)
		if c.status != checkOK {
			t.Fatalf("status = %d", c.status)
		}
		if !strings.Contains(c.message, path) {
			t.Errorf("message = %q, want it to name %s", c.message, path)
		}
	})

	t.Run("load error fails the check", func(t *testing.T) {
		c := checkConfig(os.ErrNotExist)
		if c.status != checkFail {
			t.Errorf("status = %d, want fail", c.status)
		}
	})
}
