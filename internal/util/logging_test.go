package util

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDebugfGated(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	SetVerbose(false)
	Debugf("hidden %d", 1)
	if buf.Len() != 0 {
		t.Fatalf("debug output without verbose: %q", buf.String())
	}
	SetVerbose(true)
	defer SetVerbose(false)
	Debugf("shown %d", 2)
	if !strings.Contains(buf.String(), "shown 2") {
		t.Fatalf("missing debug output: %q", buf.String())
	}
}

func TestSetupLoggingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.log")
	closer, err := SetupLogging(path, false)
	if err != nil {
		t.Fatalf("setup logging: %v", err)
	}
	Infof("hello %s", "file")
	CloseWithErr(closer, "log file")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hello file") {
		t.Fatalf("log file missing message: %q", data)
	}
}
