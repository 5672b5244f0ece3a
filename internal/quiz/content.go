package quiz

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var plainTextPolicy = func() *bluemonday.Policy {
	policy := bluemonday.StrictPolicy()
	policy.AddSpaceWhenStrippingTag(true)
	return policy
}()

// PlainText strips markup from rich-text content and collapses whitespace.
func PlainText(content string) string {
	if content == "" {
		return ""
	}
	stripped := html.UnescapeString(plainTextPolicy.Sanitize(content))
	return strings.Join(strings.Fields(stripped), " ")
}
