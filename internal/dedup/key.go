package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/ekazakov/job-matcher/internal/domain/models"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// normalizeText lowercases, trims and collapses whitespace so cosmetic
// variations between providers hash identically.
func normalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return whitespaceRe.ReplaceAllString(s, " ")
}

func normalizeURL(u string) string {
	u = strings.TrimSpace(u)
	u = strings.TrimSuffix(u, "/")
	if idx := strings.Index(u, "?"); idx != -1 {
		u = u[:idx]
	}
	return strings.ToLower(u)
}

// Fingerprint computes the content-addressed dedup key of a candidate: the
// hash of its normalized posting URL, falling back to normalized
// title|company|location when no URL exists. Keys are fixed-length and never
// regenerated once assigned to a Job.
func Fingerprint(raw models.RawJob) string {

	var material string
	if normalized := normalizeURL(raw.URL); normalized != "" {
		material = "url|" + normalized
	} else {
		material = "job|" + normalizeText(raw.Title) +
			"|" + normalizeText(raw.Company) +
			"|" + normalizeText(raw.Location)
	}

	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])
}
