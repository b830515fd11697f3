package session

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "main", false},
		{"digits", "van42", false},
		{"hyphen and underscore", "night-shift_2", false},
		{"max length", string(make64('a')), false},
		{"empty", "", true},
		{"uppercase", "Main", true},
		{"dot", "a.b", true},
		{"slash", "a/b", true},
		{"too long", string(make64('a')) + "a", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func make64(c byte) []byte {
	b := make([]byte, 64)
	for i := range b {
		b[i] = c
	}
	return b
}

func TestPathsFollowHomeEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnv, home)

	if got, want := SocketPath("main"), filepath.Join(home, "sessions", "main", "daemon.sock"); got != want {
		t.Errorf("SocketPath = %q, want %q", got, want)
	}
	if got, want := LogPath("main"), filepath.Join(home, "sessions", "main", "logs", "drvd.log"); got != want {
		t.Errorf("LogPath = %q, want %q", got, want)
	}
	if got, want := ConfigPath(), filepath.Join(home, "config.toml"); got != want {
		t.Errorf("ConfigPath = %q, want %q", got, want)
	}
}

func TestEnsureDir(t *testing.T) {
	t.Setenv(HomeEnv, t.TempDir())

	if err := EnsureDir("test"); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	info, err := os.Stat(LogDir("test"))
	if err != nil {
		t.Fatalf("log dir not created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0700 {
		t.Errorf("log dir perm = %o, want 0700", perm)
	}
}

func TestResolve(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnv, home)

	name, err := Resolve("")
	if err != nil || name != DefaultSessionName {
		t.Fatalf("Resolve() = %q, %v; want main", name, err)
	}

	cfg := []byte("default_session = \"night\"\n")
	if err := os.WriteFile(filepath.Join(home, "config.toml"), cfg, 0600); err != nil {
		t.Fatal(err)
	}
	if name, _ := Resolve(""); name != "night" {
		t.Errorf("Resolve() = %q, want night from config", name)
	}
	if name, _ := Resolve("day"); name != "day" {
		t.Errorf("Resolve(day) = %q, want flag to win", name)
	}
	if _, err := Resolve("Bad Name"); err == nil {
		t.Error("Resolve should reject invalid names")
	}
}
