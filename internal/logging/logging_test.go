package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer

	logger, err := New("warn", &buf)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("hidden")
	logger.WithField("page", 2).Warn("region failed")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "region failed") || !strings.Contains(out, "page=2") {
		t.Errorf("warn entry missing or without fields: %q", out)
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New("chatty", &bytes.Buffer{}); err == nil {
		t.Error("New should reject an unknown level")
	}
}

func TestWithRun(t *testing.T) {
	entry := WithRun(Discard())

	id, ok := entry.Data["run_id"].(string)
	if !ok {
		t.Fatalf("run_id missing: %v", entry.Data)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("run_id %q is not a UUID: %v", id, err)
	}

	if other := WithRun(Discard()).Data["run_id"]; other == id {
		t.Error("each run should get a new id")
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	if logger.Level != logrus.InfoLevel {
		t.Errorf("level: got %v, want info", logger.Level)
	}
	logger.Error("dropped")
}
