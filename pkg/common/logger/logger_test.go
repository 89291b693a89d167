package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestDefaultLoggerDiscards(t *testing.T) {
	if newDiscard().Out != io.Discard {
		t.Fatal("the pre-Init logger should discard output")
	}
}

func TestInitLevelFromEnv(t *testing.T) {
	saved := Log
	defer func() { Log = saved }()

	cases := map[string]logrus.Level{
		"":        logrus.InfoLevel,
		"debug":   logrus.DebugLevel,
		"warning": logrus.WarnLevel,
		"chatty":  logrus.InfoLevel,
	}
	for env, want := range cases {
		t.Setenv("LOG_LEVEL", env)
		Init()
		if got := Log.GetLevel(); got != want {
			t.Fatalf("LOG_LEVEL=%q: expected %s, got %s", env, want, got)
		}
	}
}

func TestInitWritesJSON(t *testing.T) {
	saved := Log
	defer func() { Log = saved }()

	t.Setenv("LOG_LEVEL", "info")
	Init()
	if _, ok := Log.Formatter.(*logrus.JSONFormatter); !ok {
		t.Fatalf("expected JSON formatter, got %T", Log.Formatter)
	}

	var buf bytes.Buffer
	Log.SetOutput(&buf)
	WithTable("labs").WithField("rows", 3).Info("table processed")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if entry["table"] != "labs" || entry["msg"] != "table processed" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if entry["rows"] != float64(3) {
		t.Fatalf("expected rows=3, got %v", entry["rows"])
	}
}
