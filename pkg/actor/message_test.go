package actor

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessageCutsLongBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"ascii", strings.Repeat("x", 500)},
		{"two-byte rune on the cut", strings.Repeat("x", maxBodyMessage-1) + strings.Repeat("é", 20)},
		{"three-byte runes", strings.Repeat("語", 100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := errorMessage(502, []byte(tt.body))
			if !utf8.ValidString(msg) {
				t.Errorf("errorMessage produced invalid UTF-8: %q", msg)
			}
			assert.True(t, strings.HasSuffix(msg, "..."))
			assert.LessOrEqual(t, len(msg), maxBodyMessage+3)
		})
	}
}
