// Inline formatting for model replies. The model is instructed to use a
// constrained markdown subset (*bold*, _italics_, `code`); anything outside
// that subset is left alone.
package markdown

import (
	"regexp"
	"strings"
)

var (
	// The model sometimes emits stray emphasis markers after a colon or at
	// the end of a line. Balanced spans are replaced first, so whatever
	// asterisks these patterns see afterwards are artifacts.
	reColonAsterisks    = regexp.MustCompile(`([:：])\*+`)
	reTrailingAsterisks = regexp.MustCompile(`(?m)\*+$`)

	reBold   = regexp.MustCompile(`\*([^*]+)\*`)
	reItalic = regexp.MustCompile(`_([^_]+)_`)
	reCode   = regexp.MustCompile("`([^`]+)`")
)

// CleanAsterisks removes asterisk runs directly following a colon and
// trailing asterisk runs at line end.
func CleanAsterisks(text string) string {
	text = reColonAsterisks.ReplaceAllString(text, "$1")
	return reTrailingAsterisks.ReplaceAllString(text, "")
}

// Format converts the markdown subset to inline HTML. Replacement is
// non-greedy and first-match-wins; unmatched delimiter characters stay
// literal unless asterisk cleanup removes them as artifacts. Lines are
// joined with an explicit <br /> so line order survives.
func Format(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = reBold.ReplaceAllString(line, "<strong>$1</strong>")
		line = reItalic.ReplaceAllString(line, "<em>$1</em>")
		line = reCode.ReplaceAllString(line, "<code>$1</code>")
		lines[i] = CleanAsterisks(line)
	}
	return strings.Join(lines, "<br />")
}
