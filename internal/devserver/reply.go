package devserver

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// Responder produces the assistant reply for a submitted message. The
// development server ships with EchoResponder; tests and experiments can
// plug in their own.
type Responder interface {
	Reply(ctx context.Context, content string) (string, error)
}

// EchoResponder mirrors the user's message back, which is enough to
// exercise the full send/reply round trip without a model behind it.
type EchoResponder struct{}

func (EchoResponder) Reply(_ context.Context, content string) (string, error) {
	return fmt.Sprintf("You said: %s", strings.TrimSpace(content)), nil
}

// ResponderFunc adapts a plain function to the Responder interface.
type ResponderFunc func(ctx context.Context, content string) (string, error)

func (f ResponderFunc) Reply(ctx context.Context, content string) (string, error) {
	return f(ctx, content)
}

const maxDerivedTitleLen = 48

// deriveTitle turns the first user message into a conversation title,
// collapsing whitespace and truncating on a rune boundary.
func deriveTitle(content string) string {
	fields := strings.FieldsFunc(content, unicode.IsSpace)
	title := strings.Join(fields, " ")
	if title == "" {
		return ""
	}
	runes := []rune(title)
	if len(runes) <= maxDerivedTitleLen {
		return title
	}
	return strings.TrimSpace(string(runes[:maxDerivedTitleLen])) + "…"
}
