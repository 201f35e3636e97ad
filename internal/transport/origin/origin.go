package origin

import "strings"

const Wildcard = "*"

// AllowList holds the browser origins permitted to talk to the server.
type AllowList []string

// Allows reports whether origin may connect. Requests without an Origin header are not cross-site and pass.
func (that AllowList) Allows(origin string) bool {
	if origin == "" {
		return true
	}

	for _, allowed := range that {
		if allowed == Wildcard || strings.EqualFold(strings.TrimSuffix(allowed, "/"), origin) {
			return true
		}
	}

	return false
}
