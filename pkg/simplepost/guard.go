package simplepost

import "github.com/google/uuid"

// IsOwner reports whether the requesting identity owns the resource. Both
// identifiers are reduced to canonical UUID form before comparing, since the
// same identity can arrive under different textual encodings (case, braces,
// urn prefix). Malformed input is never an owner.
func IsOwner(resourceOwnerID, requestingUserID string) bool {
	owner, err := uuid.Parse(resourceOwnerID)
	if err != nil {
		return false
	}
	requester, err := uuid.Parse(requestingUserID)
	if err != nil {
		return false
	}
	return owner == requester
}

// CanonicalID parses an identifier and returns its canonical textual form.
func CanonicalID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", err
	}
	return parsed.String(), nil
}
