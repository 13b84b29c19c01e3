package app

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func stubClipboard(t *testing.T, system, osc func(string) error) {
	t.Helper()
	prevSystem, prevOSC := systemClipboardWrite, osc52ClipboardWrite
	systemClipboardWrite = system
	osc52ClipboardWrite = osc
	t.Cleanup(func() {
		systemClipboardWrite = prevSystem
		osc52ClipboardWrite = prevOSC
	})
}

func TestCopyTextPrefersSystemClipboard(t *testing.T) {
	var got string
	oscCalled := false
	stubClipboard(t,
		func(text string) error { got = text; return nil },
		func(string) error { oscCalled = true; return nil },
	)

	if err := copyTextToClipboard("hello"); err != nil {
		t.Fatalf("copyTextToClipboard: %v", err)
	}
	if got != "hello" {
		t.Fatalf("system clipboard got %q", got)
	}
	if oscCalled {
		t.Fatalf("OSC52 fallback used while system clipboard worked")
	}
}

func TestCopyTextFallsBackToOSC52(t *testing.T) {
	var got string
	stubClipboard(t,
		func(string) error { return errors.New("no clipboard helper") },
		func(text string) error { got = text; return nil },
	)

	if err := copyTextToClipboard("reply text"); err != nil {
		t.Fatalf("copyTextToClipboard: %v", err)
	}
	if got != "reply text" {
		t.Fatalf("OSC52 fallback got %q", got)
	}
}

func TestCopyTextReportsBothFailures(t *testing.T) {
	stubClipboard(t,
		func(string) error { return errors.New("no clipboard helper") },
		func(string) error { return errors.New("tty unavailable") },
	)
	t.Setenv("DISPLAY", ":0")

	err := copyTextToClipboard("x")
	if err == nil {
		t.Fatalf("expected error when both paths fail")
	}
	if !strings.Contains(err.Error(), "no clipboard helper") || !strings.Contains(err.Error(), "tty unavailable") {
		t.Fatalf("error drops a cause: %v", err)
	}
}

func TestEmitOSC52WrapsForTmux(t *testing.T) {
	t.Setenv("TMUX", "/tmp/tmux-0/default,123,0")

	var buf bytes.Buffer
	if err := emitOSC52(&buf, "hi"); err != nil {
		t.Fatalf("emitOSC52: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "\x1bPtmux;") {
		t.Fatalf("sequence not tmux-wrapped: %q", buf.String())
	}
}

func TestOSC52RespectsDisableEnv(t *testing.T) {
	t.Setenv("PARLEY_DISABLE_OSC52", "1")
	t.Setenv("TERM", "xterm-256color")

	if err := writeOSC52Clipboard("x"); err == nil {
		t.Fatalf("OSC52 not disabled by PARLEY_DISABLE_OSC52")
	}
}
