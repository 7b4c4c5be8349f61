// Package sanitize cleans captured build output before it is stored or
// displayed. It strips ANSI escape sequences and scrubs configured secrets
// (such as the status API token) so they never land in log files.
package sanitize

import (
	"io"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

const redacted = "[REDACTED]"

// StripANSI removes ANSI escape sequences from s.
func StripANSI(s string) string {
	return ansi.Strip(s)
}

// Scrub replaces every occurrence of the given secrets in s.
// Empty secrets are ignored.
func Scrub(s string, secrets ...string) string {
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		s = strings.ReplaceAll(s, secret, redacted)
	}
	return s
}

// Writer wraps an io.Writer and scrubs secrets from everything written
// through it. A secret split across two writes is not caught; build tools
// emit line-buffered output, so in practice secrets arrive whole.
type Writer struct {
	dst     io.Writer
	secrets []string
}

// NewWriter returns a scrubbing writer around dst.
func NewWriter(dst io.Writer, secrets ...string) *Writer {
	kept := make([]string, 0, len(secrets))
	for _, s := range secrets {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return &Writer{dst: dst, secrets: kept}
}

// Write scrubs p and forwards it to the underlying writer. It reports the
// original length so callers see a complete write.
func (w *Writer) Write(p []byte) (int, error) {
	clean := Scrub(string(p), w.secrets...)
	if _, err := io.WriteString(w.dst, clean); err != nil {
		return 0, err
	}
	return len(p), nil
}
