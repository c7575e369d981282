package rdrlog

import (
	"bytes"
	"strings"
	"testing"
)

type nopCloser struct{ *bytes.Buffer }

func (nopCloser) Close() error { return nil }

func TestLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(nopCloser{buf})
	l.SetLevel(WARN)
	l.Infof("should not appear")
	l.Warnf("should appear")
	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Fatalf("expected INFO to be filtered, got: %s", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Fatalf("expected WARN message, got: %s", out)
	}
}

func TestLevelFromString(t *testing.T) {
	lvl, err := LevelFromString("debug")
	if err != nil || lvl != DEBUG {
		t.Fatalf("expected DEBUG, got %v, %v", lvl, err)
	}
	if _, err := LevelFromString("bogus"); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestDiscardLoggerDoesNotPanic(t *testing.T) {
	l := NewDiscard()
	l.Infof("hello %s", "world")
}
