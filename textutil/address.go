package textutil

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

const minEmailLength = 6

var (
	invalidLocal     = regexp.MustCompile("[^a-zA-Z0-9!#$%&'*+/=?^_`{|}~.-]")
	repeatedPeriods  = regexp.MustCompile(`\.{2,}`)
	invalidSubdomain = regexp.MustCompile(`(?i)[^a-z0-9-]+`)
)

const trimSet = " \t\n\r\x00\x0B"

// SanitizeEmail rewrites s into a best-effort valid address: characters
// that may not appear in the local part or the domain are removed and
// empty domain labels dropped. It returns "" when nothing usable is left.
// Internationalized domains are converted to their ASCII form first.
func SanitizeEmail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < minEmailLength {
		return ""
	}

	at := strings.Index(s, "@")
	if at < 1 {
		return ""
	}
	local, domain := s[:at], s[at+1:]

	local = invalidLocal.ReplaceAllString(local, "")
	if local == "" {
		return ""
	}

	domain = toASCII(domain)
	domain = repeatedPeriods.ReplaceAllString(domain, "")
	domain = strings.Trim(domain, trimSet+".")
	if domain == "" {
		return ""
	}

	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return ""
	}

	valid := labels[:0]
	for _, label := range labels {
		label = strings.Trim(label, trimSet+"-")
		label = invalidSubdomain.ReplaceAllString(label, "")
		if label != "" {
			valid = append(valid, label)
		}
	}
	if len(valid) < 2 {
		return ""
	}

	return local + "@" + strings.Join(valid, ".")
}

func toASCII(domain string) string {
	if isASCII(domain) {
		return domain
	}
	ascii, err := idna.Lookup.ToASCII(domain)
	if err != nil {
		return domain
	}
	return ascii
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
