package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/atikulmunna/loomwatch/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestMissingConfigPrintsUsage(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	for _, args := range [][]string{{missing}, {"stream", missing}} {
		out, err := execute(t, args...)
		if !errors.Is(err, config.ErrNotFound) {
			t.Errorf("%v: expected ErrNotFound, got %v", args, err)
		}
		if !strings.Contains(out, "Usage:") {
			t.Errorf("%v: expected usage output, got %q", args, out)
		}
	}
}

func TestInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("dashboard:\n  layout: sideways\n"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, path)
	if err == nil || errors.Is(err, config.ErrNotFound) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if strings.Contains(out, "Usage:") {
		t.Error("usage is only printed for a missing file")
	}
}

func TestStreamRejectsUnknownOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log_files:\n  api: /tmp/api.log\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := execute(t, "stream", path, "--output", "xml")
	if err == nil || !strings.Contains(err.Error(), "xml") {
		t.Errorf("expected unknown format error, got %v", err)
	}
	outputFmt = "text"
}
