package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatInline(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bold", "*bold*", "<strong>bold</strong>"},
		{"italic", "_em_", "<em>em</em>"},
		{"code", "`x`", "<code>x</code>"},
		{"mixed", "A *key* term with _emphasis_ and `2.5 cm`", "A <strong>key</strong> term with <em>emphasis</em> and <code>2.5 cm</code>"},
		{"unmatched asterisk stays literal", "a * b", "a * b"},
		{"unmatched underscore stays literal", "snake_case", "snake_case"},
		{"non greedy", "*a* and *b*", "<strong>a</strong> and <strong>b</strong>"},
		{"plain text untouched", "photosynthesis", "photosynthesis"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.in))
		})
	}
}

func TestFormatCleansAsterisks(t *testing.T) {
	assert.Equal(t, "Note:", Format("Note:*"))
	assert.Equal(t, "Note:", Format("Note:***"))
	// Full-width colon gets the same treatment.
	assert.Equal(t, "Nòt：", Format("Nòt：*"))
	// A trailing run at line end is an artifact, not emphasis.
	assert.Equal(t, "leaves", Format("leaves**"))
}

func TestFormatJoinsLines(t *testing.T) {
	got := Format("first\nsecond\nthird")
	assert.Equal(t, "first<br />second<br />third", got)

	// Cleanup is per line, not just at end of input.
	got = Format("Roots:*\n*deep*")
	assert.Equal(t, "Roots:<br /><strong>deep</strong>", got)
}

func TestCleanAsterisks(t *testing.T) {
	assert.Equal(t, "a:", CleanAsterisks("a:*"))
	assert.Equal(t, "ok", CleanAsterisks("ok"))
	assert.Equal(t, "line one\nline two", CleanAsterisks("line one*\nline two**"))
}
