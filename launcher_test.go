package g15desktop

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLauncherRun(t *testing.T) {
	l := NewLauncher()
	l.Logger = discardLogger()

	tests := []struct {
		name    string
		argv    []string
		wantErr bool
	}{
		{"success", []string{"true"}, false},
		{"exit failure", []string{"false"}, false},
		{"missing program", []string{"g15-definitely-missing-program"}, true},
		{"empty", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := l.run(tt.argv); (err != nil) != tt.wantErr {
				t.Errorf("run(%v) error = %v, wantErr %v", tt.argv, err, tt.wantErr)
			}
		})
	}
}

func TestLauncherResolve(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "g15-config")
	if err := os.WriteFile(script, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	l := &Launcher{ScriptsDir: dir}

	tests := []struct {
		name string
		want string
	}{
		{"g15-config", script},
		{"g15-desktop-service", "g15-desktop-service"},
		{"/usr/bin/g15-config", "/usr/bin/g15-config"},
	}

	for _, tt := range tests {
		if got := l.resolve(tt.name); got != tt.want {
			t.Errorf("resolve(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}

	if got := (&Launcher{}).resolve("g15-config"); got != "g15-config" {
		t.Errorf("resolve() without scripts directory = %q", got)
	}
}

func TestComponentLaunchesPrograms(t *testing.T) {
	l := &Launcher{
		ConfigCommand:  []string{"true"},
		ServiceCommand: []string{"g15-definitely-missing-program", "-f"},
		Logger:         discardLogger(),
	}

	c := newComponent(newFakeBus(), &fakeAdapter{},
		WithLogger(discardLogger()),
		WithSettingsFile(""),
		WithLauncher(l),
	)

	if err := c.ShowConfiguration(); err != nil {
		t.Errorf("ShowConfiguration() error = %v", err)
	}

	if err := c.StartService(); err == nil {
		t.Error("StartService() with a missing program succeeded")
	}
}
