package auth

import (
	"encoding/json"

	"github.com/kbukum/oidcauth/errors"
)

// Decode converts an identity into the caller's claims type using JSON
// struct tags. T may be a struct, a pointer to a struct, or a map. A payload
// that does not fit T yields an INVALID_CLAIMS error.
func Decode[T any](id Identity) (T, error) {
	var out T

	data := []byte(id.Raw)
	if len(data) == 0 {
		if id.Claims == nil {
			return out, errors.InvalidClaims("token carries no claims", nil)
		}
		var err error
		if data, err = json.Marshal(id.Claims); err != nil {
			return out, errors.InvalidClaims("claims are not serializable", err)
		}
	}

	if err := json.Unmarshal(data, &out); err != nil {
		return out, errors.InvalidClaims("claims do not match the expected shape", err)
	}
	return out, nil
}
