package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
)

// Seams for tests; the real paths touch the host clipboard and /dev/tty.
var (
	systemClipboardWrite = clipboard.WriteAll
	osc52ClipboardWrite  = writeOSC52Clipboard
)

// copyTextToClipboard puts text on the system clipboard, falling back
// to an OSC52 escape sequence when no clipboard helper is usable. The
// fallback covers SSH sessions, where the terminal emulator on the far
// end owns the clipboard.
func copyTextToClipboard(text string) error {
	sysErr := systemClipboardWrite(text)
	if sysErr == nil {
		return nil
	}
	oscErr := osc52ClipboardWrite(text)
	if oscErr == nil {
		return nil
	}
	if missingDisplay() {
		return fmt.Errorf("no GUI clipboard (DISPLAY/WAYLAND_DISPLAY unset); OSC52 fallback: %v", oscErr)
	}
	return fmt.Errorf("system clipboard: %v; OSC52 fallback: %v", sysErr, oscErr)
}

func writeOSC52Clipboard(text string) error {
	if osc52Disabled() {
		return errors.New("OSC52 disabled")
	}
	term := strings.TrimSpace(os.Getenv("TERM"))
	if term == "" || strings.EqualFold(term, "dumb") {
		return errors.New("terminal does not support OSC52")
	}
	tty, err := os.OpenFile("/dev/tty", os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("open /dev/tty: %w", err)
	}
	defer tty.Close()
	return emitOSC52(tty, text)
}

// emitOSC52 writes the escape sequence, wrapped for the terminal
// multiplexer in use so it passes through to the outer terminal.
func emitOSC52(w io.Writer, text string) error {
	seq := osc52.New(text)
	switch {
	case os.Getenv("TMUX") != "":
		seq = seq.Tmux()
	case strings.HasPrefix(strings.ToLower(os.Getenv("TERM")), "screen"):
		seq = seq.Screen()
	}
	_, err := seq.WriteTo(w)
	return err
}

func osc52Disabled() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("PARLEY_DISABLE_OSC52"))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func missingDisplay() bool {
	return strings.TrimSpace(os.Getenv("DISPLAY")) == "" && strings.TrimSpace(os.Getenv("WAYLAND_DISPLAY")) == ""
}
