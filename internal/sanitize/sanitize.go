// Package sanitize strips markup from user-supplied text before it is
// stored. Event titles, descriptions, and categories are plain text; any
// HTML in them is removed with bluemonday's strict policy.
package sanitize

import (
	"html"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// policy is the singleton strict policy. Initialized once via sync.Once.
var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Text removes every HTML element from input and returns the remaining
// text unescaped, so "Tom &amp; Jerry" comes back as "Tom & Jerry".
//
// This MUST be called on all user-provided text fields before storing them.
func Text(input string) string {
	if input == "" {
		return ""
	}
	return html.UnescapeString(getPolicy().Sanitize(input))
}
