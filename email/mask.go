package email

import "strings"

// MaskEmail hides most of the local part: "ab@x.com" -> "a*@x.com", "alice@x.com" -> "al***@x.com".
func MaskEmail(address string) string {
	local, domain, found := strings.Cut(address, "@")
	if !found || domain == "" {
		return "***"
	}
	if len(local) <= 2 {
		return firstN(local, 1) + "*@" + domain
	}
	return firstN(local, 2) + "***@" + domain
}

func firstN(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}
