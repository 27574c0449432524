package middleware

import (
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// bearerToken extracts the credential from the Authorization header. A
// literal "Bearer " prefix is stripped; any other value is used whole.
// Missing, empty or non-visible-ASCII values yield ok=false.
func bearerToken(h http.Header) (string, bool) {
	raw := h.Get("Authorization")
	if raw == "" || !visibleASCII(raw) {
		return "", false
	}
	token := strings.TrimPrefix(raw, bearerPrefix)
	if token == "" {
		return "", false
	}
	return token, true
}

// visibleASCII reports whether s holds only printable ASCII and spaces.
func visibleASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if c := s[i]; c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}
