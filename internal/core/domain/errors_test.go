package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name:     "error without details",
			err:      NewDomainError("TS-TEST-1000", "test message"),
			expected: "[TS-TEST-1000] test message",
		},
		{
			name:     "error with details",
			err:      NewDomainError("TS-TEST-1001", "test message").WithDetails("extra info"),
			expected: "[TS-TEST-1001] test message: extra info",
		},
		{
			name:     "error with details and cause",
			err:      NewDomainError("TS-TEST-1002", "test message").WithDetails("extra").WithCause(errors.New("boom")),
			expected: "[TS-TEST-1002] test message: extra: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	err1 := NewDomainError("TS-TEST-1000", "message 1")
	err2 := NewDomainError("TS-TEST-1000", "message 2") // same code
	err3 := NewDomainError("TS-TEST-1001", "message 1")

	assert.ErrorIs(t, err1, err2)
	assert.NotErrorIs(t, err1, err3)
	assert.NotErrorIs(t, err1, fmt.Errorf("some error"))
}

func TestDomainError_Copies(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := ErrDuplicateKey.WithDetails("key_uid: alice-1").Wrap(cause)

	assert.Empty(t, ErrDuplicateKey.Details, "WithDetails must not modify the sentinel")
	assert.Nil(t, ErrDuplicateKey.Cause, "WithCause must not modify the sentinel")
	assert.Equal(t, "key_uid: alice-1", err.Details)
	assert.Same(t, cause, errors.Unwrap(err))
	assert.ErrorIs(t, err, ErrDuplicateKey)
	assert.ErrorIs(t, err, cause)
}

func TestIsDomainError(t *testing.T) {
	assert.True(t, IsDomainError(ErrUninitialized, "TS-SEED-5030"))
	assert.False(t, IsDomainError(ErrUninitialized, "TS-SEED-9999"))
	assert.True(t, IsDomainError(fmt.Errorf("wrapped: %w", ErrUninitialized), ""))
	assert.False(t, IsDomainError(fmt.Errorf("regular error"), ""))
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"domain error", ErrInvalidReservation, "TS-KV-4091"},
		{"wrapped domain error", fmt.Errorf("wrapped: %w", ErrDerivation), "TS-KEYG-4000"},
		{"regular error", fmt.Errorf("regular error"), ""},
		{"nil error", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetErrorCode(tt.err))
		})
	}
}

func TestPredefinedErrors_UniqueCodes(t *testing.T) {
	all := []*DomainError{
		ErrUninitialized, ErrSeedInvalid,
		ErrDerivation, ErrSerialization,
		ErrKeyNotFound, ErrDuplicateKey, ErrInvalidReservation,
		ErrInternal, ErrStorage, ErrRateLimited,
		ErrParse, ErrInvalidArgument,
	}

	seen := make(map[string]bool)
	for _, e := range all {
		require.NotEmpty(t, e.Message, e.Code)
		require.False(t, seen[e.Code], "duplicate code %s", e.Code)
		seen[e.Code] = true
	}
}

func TestKeygenRequest_Validate(t *testing.T) {
	var nilReq *KeygenRequest
	assert.ErrorIs(t, nilReq.Validate(), ErrInvalidArgument)
	assert.ErrorIs(t, (&KeygenRequest{}).Validate(), ErrInvalidArgument)

	long := make([]byte, MaxKeyUIDLength+1)
	for i := range long {
		long[i] = 'a'
	}
	assert.ErrorIs(t, (&KeygenRequest{KeyUID: string(long)}).Validate(), ErrInvalidArgument)
	assert.NoError(t, (&KeygenRequest{KeyUID: "alice-1"}).Validate())
}

func TestKeyPresence_String(t *testing.T) {
	assert.Equal(t, "present", KeyPresent.String())
	assert.Equal(t, "absent", KeyAbsent.String())
}
