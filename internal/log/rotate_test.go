package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("console only", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger, closer, err := New(Options{Writer: &buf})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		defer closer.Close()

		logger.Info("hidden")
		logger.Warn("visible", "authorization", "Bearer abc")

		output := buf.String()
		if strings.Contains(output, "hidden") {
			t.Errorf("info should be filtered at the default level: %s", output)
		}
		if !strings.Contains(output, "visible") || !strings.Contains(output, MaskValue) {
			t.Errorf("unexpected output: %s", output)
		}
	})

	t.Run("json console", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger, closer, err := New(Options{Writer: &buf, JSON: true, Verbose: true})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		defer closer.Close()

		logger.Debug("polling", "session", "abc")

		var record map[string]any
		if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
			t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
		}
		if record["session"] != "abc" {
			t.Errorf("session = %v, want abc", record["session"])
		}
	})

	t.Run("file receives debug records", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "logs", "sitegraph.log")
		var buf bytes.Buffer
		logger, closer, err := New(Options{Writer: &buf, File: path})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}

		logger.Debug("tick", "nodes", 12, "cookie", "a=b")
		if err := closer.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}

		if buf.Len() != 0 {
			t.Errorf("console should not receive debug records: %s", buf.String())
		}
		data, err := os.ReadFile(path) //nolint:gosec // test file
		if err != nil {
			t.Fatalf("failed to read log file: %v", err)
		}
		if !strings.Contains(string(data), `"msg":"tick"`) {
			t.Errorf("log file missing record: %s", data)
		}
		if strings.Contains(string(data), "a=b") {
			t.Errorf("cookie should be masked in log file: %s", data)
		}
	})
}

func TestNewRotatingWriter(t *testing.T) {
	t.Parallel()

	t.Run("empty path", func(t *testing.T) {
		t.Parallel()

		if _, err := NewRotatingWriter("", Options{}); err == nil {
			t.Error("expected error for empty path")
		}
	})

	t.Run("creates parent directory", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "a", "b")
		w, err := NewRotatingWriter(filepath.Join(dir, "out.log"), Options{MaxSizeMB: 1})
		if err != nil {
			t.Fatalf("NewRotatingWriter() error = %v", err)
		}
		defer w.Close()

		if _, err := w.Write([]byte("line\n")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "out.log")); err != nil {
			t.Errorf("log file not created: %v", err)
		}
	})
}
