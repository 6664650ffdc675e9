package domain

import "fmt"

// MaxKeyUIDLength bounds the session identifier accepted over the wire.
const MaxKeyUIDLength = 256

// KeygenRequest asks the daemon to create one signing identity.
type KeygenRequest struct {
	// KeyUID names the keygen session and doubles as the storage key.
	KeyUID string
}

// Validate checks the request shape. It does not touch key material.
func (r *KeygenRequest) Validate() error {
	if r == nil || r.KeyUID == "" {
		return ErrInvalidArgument.WithDetails("key_uid is required")
	}
	if len(r.KeyUID) > MaxKeyUIDLength {
		return ErrInvalidArgument.WithDetails(fmt.Sprintf("key_uid exceeds %d bytes", MaxKeyUIDLength))
	}
	return nil
}

// KeyPresence reports whether a committed share exists for a key uid.
type KeyPresence int

const (
	KeyAbsent KeyPresence = iota
	KeyPresent
)

func (p KeyPresence) String() string {
	switch p {
	case KeyPresent:
		return "present"
	default:
		return "absent"
	}
}
