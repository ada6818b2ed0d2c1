package auth

import "errors"

// ErrForbidden indicates an authenticated identity attempted to mutate a
// resource it does not own.
var ErrForbidden = errors.New("forbidden")

// AuthorizeOwner is the single ownership policy applied by every mutating
// resource handler. It allows the mutation only when the resource owner and
// the request identity are the same user. Callers must confirm the resource
// exists before consulting it, so a missing resource surfaces as not-found
// rather than forbidden.
func AuthorizeOwner(ownerID, identityID string) error {
	if ownerID == "" || identityID == "" {
		return ErrForbidden
	}
	if ownerID != identityID {
		return ErrForbidden
	}
	return nil
}
