package services

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// plainText strips any markup from user-supplied text before it is placed in
// a notification. StrictPolicy escapes entities, so they are decoded again to
// keep "&" readable on the lock screen.
func plainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}
