package merge

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var wsRun = regexp.MustCompile(`\s+`)

// Fingerprint derives a content identifier from an ad's raw text, independent
// of the source site's own identifier. Case and whitespace differences across
// re-scrapes of the same ad must not change it.
func Fingerprint(rawText string) string {
	t := strings.ToLower(rawText)
	t = wsRun.ReplaceAllString(t, " ")
	t = strings.TrimSpace(t)

	sum := sha256.Sum256([]byte(t))
	return hex.EncodeToString(sum[:])
}
