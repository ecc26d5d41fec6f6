package content

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var policy = bluemonday.StrictPolicy()

// Sanitize drops any markup from user supplied text and trims surrounding
// space. The result is plain text: entities the policy escapes are decoded
// again, so "Tom & Jerry" comes back unchanged.
func Sanitize(input string) string {
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(input)))
}
