package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// BodySanitizer cleans translated post bodies before they are sent to the CMS.
type BodySanitizer struct {
	policy *bluemonday.Policy
}

// NewBodySanitizer allows the user generated content tag set. Absolute links
// get target="_blank" and rel="nofollow noopener noreferrer".
func NewBodySanitizer() *BodySanitizer {
	p := bluemonday.UGCPolicy()
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)
	return &BodySanitizer{policy: p}
}

// Sanitize returns the safe subset of rawHTML.
func (s *BodySanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}
