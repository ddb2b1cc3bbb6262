package main

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestRootCmdRegistersSubcommands(t *testing.T) {
	t.Parallel()

	root := newRootCmd()

	want := []string{"run", "logs"}
	for _, name := range want {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestRootCmdVersionFlag(t *testing.T) {
	t.Parallel()

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.HasPrefix(out.String(), "murmur ") {
		t.Errorf("version output = %q", out.String())
	}
}

func TestLogsCmdMissingDatabase(t *testing.T) {
	t.Parallel()

	configPath := t.TempDir() + "/config.toml"
	cmd := newLogsCmd(&configPath)
	cmd.SetArgs([]string{})

	// Default data dir has no database in a fresh environment; point the
	// config at an empty temp dir instead.
	if err := writeTestConfig(configPath, t.TempDir()); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Execute(); err == nil {
		t.Error("logs against a missing database should fail")
	}
}

func writeTestConfig(path, dataDir string) error {
	return os.WriteFile(path, []byte("data_dir = \""+dataDir+"\"\n"), 0o644)
}
