package service

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// maxCleanPasses bounds the strip/decode loop; each pass can only shorten the value.
const maxCleanPasses = 4

// plainText strips markup from free-text profile fields. The strict policy
// escapes what it keeps, so its output is decoded back to the characters the
// user typed. Decoding can expose markup that arrived entity-encoded, so the
// two steps repeat until the value stops changing.
type plainText struct {
	policy *bluemonday.Policy
}

func newPlainText() plainText {
	return plainText{policy: bluemonday.StrictPolicy()}
}

func (p plainText) clean(value string) string {
	current := strings.TrimSpace(value)
	for pass := 0; pass < maxCleanPasses; pass++ {
		next := strings.TrimSpace(html.UnescapeString(p.policy.Sanitize(current)))
		if next == current {
			break
		}
		current = next
	}
	return current
}
