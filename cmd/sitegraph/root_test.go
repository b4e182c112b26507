package main

import (
	"testing"

	"github.com/nao1215/sitegraph/internal/config"
)

// TestNewRootCmd tests the root command creation.
func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "sitegraph" {
			t.Errorf("expected use 'sitegraph', got %q", cmd.Use)
		}
	})

	t.Run("has descriptions", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" || cmd.Long == "" {
			t.Error("expected non-empty descriptions")
		}
	})

	t.Run("has version", func(t *testing.T) {
		t.Parallel()
		if cmd.Version == "" {
			t.Error("expected non-empty version")
		}
	})

	t.Run("has persistent flags", func(t *testing.T) {
		t.Parallel()
		flag := cmd.PersistentFlags().Lookup("verbose")
		if flag == nil {
			t.Fatal("expected verbose flag")
		}
		if flag.Shorthand != "v" {
			t.Errorf("expected shorthand 'v', got %q", flag.Shorthand)
		}
		for _, name := range []string{"log-file", "db-dir"} {
			if cmd.PersistentFlags().Lookup(name) == nil {
				t.Errorf("expected %s flag", name)
			}
		}
	})

	t.Run("bare log-file uses the state directory", func(t *testing.T) {
		t.Parallel()
		flag := cmd.PersistentFlags().Lookup("log-file")
		if flag == nil {
			t.Fatal("expected log-file flag")
		}
		if flag.DefValue != "" {
			t.Errorf("expected file logging off by default, got %q", flag.DefValue)
		}
		if flag.NoOptDefVal != config.DefaultLogFile() {
			t.Errorf("expected bare --log-file to use %q, got %q", config.DefaultLogFile(), flag.NoOptDefVal)
		}
	})

	t.Run("has subcommands", func(t *testing.T) {
		t.Parallel()
		want := map[string]bool{
			"crawl <url>":          false,
			"show <session-id>...": false,
			"history [host]":       false,
			"compare <host>":       false,
			"init":                 false,
			"version":              false,
		}
		for _, sub := range cmd.Commands() {
			if _, ok := want[sub.Use]; ok {
				want[sub.Use] = true
			}
		}
		for use, found := range want {
			if !found {
				t.Errorf("expected %q subcommand", use)
			}
		}
	})

	t.Run("silences usage and errors", func(t *testing.T) {
		t.Parallel()
		if !cmd.SilenceUsage {
			t.Error("expected SilenceUsage to be true")
		}
		if !cmd.SilenceErrors {
			t.Error("expected SilenceErrors to be true")
		}
	})
}
