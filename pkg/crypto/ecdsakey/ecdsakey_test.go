package ecdsakey

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func testSeed(b byte) []byte {
	return bytes.Repeat([]byte{b}, 64)
}

func TestDerive_Deterministic(t *testing.T) {
	a, err := Derive(testSeed(1), []byte("alice-1"))
	require.NoError(t, err)
	b, err := Derive(testSeed(1), []byte("alice-1"))
	require.NoError(t, err)

	assert.Equal(t, a.EncodedVerifyingKey(), b.EncodedVerifyingKey())
	assert.Equal(t, a.SigningKey().scalar, b.SigningKey().scalar)
	assert.Len(t, a.EncodedVerifyingKey(), 33)
}

func TestDerive_InputsSeparate(t *testing.T) {
	base, err := Derive(testSeed(1), []byte("alice-1"))
	require.NoError(t, err)

	otherNonce, err := Derive(testSeed(1), []byte("alice-2"))
	require.NoError(t, err)
	otherSeed, err := Derive(testSeed(2), []byte("alice-1"))
	require.NoError(t, err)

	assert.NotEqual(t, base.EncodedVerifyingKey(), otherNonce.EncodedVerifyingKey())
	assert.NotEqual(t, base.EncodedVerifyingKey(), otherSeed.EncodedVerifyingKey())
}

func TestDerive_VerifyingKeyMatchesScalar(t *testing.T) {
	pair, err := Derive(testSeed(7), []byte("session"))
	require.NoError(t, err)

	priv, err := crypto.ToECDSA(pair.SigningKey().scalar)
	require.NoError(t, err)
	assert.Equal(t, crypto.CompressPubkey(&priv.PublicKey), pair.EncodedVerifyingKey())
}

func TestDerive_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		seed  []byte
		nonce []byte
		want  error
	}{
		{"short seed", make([]byte, 16), []byte("alice-1"), ErrSeedLength},
		{"short nonce", testSeed(1), []byte("abc"), ErrSessionNonceLength},
		{"empty nonce", testSeed(1), nil, ErrSessionNonceLength},
		{"long nonce", testSeed(1), bytes.Repeat([]byte{'x'}, MaxSessionNonceLength+1), ErrSessionNonceLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair, err := Derive(tt.seed, tt.nonce)
			assert.Nil(t, pair)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEncodedVerifyingKey_ReturnsCopy(t *testing.T) {
	pair, err := Derive(testSeed(1), []byte("alice-1"))
	require.NoError(t, err)

	vk := pair.EncodedVerifyingKey()
	vk[0] ^= 0xff
	assert.NotEqual(t, vk, pair.EncodedVerifyingKey())
}

func TestZero(t *testing.T) {
	pair, err := Derive(testSeed(1), []byte("alice-1"))
	require.NoError(t, err)

	scalar := pair.SigningKey().scalar
	pair.Zero()

	assert.True(t, pair.SigningKey().IsZero())
	assert.Equal(t, make([]byte, ScalarLength), scalar, "backing array must be cleared")
	assert.Len(t, pair.EncodedVerifyingKey(), 33)

	_, err = SerializeSigningKey(pair.SigningKey())
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestShare_RoundTrip(t *testing.T) {
	pair, err := Derive(testSeed(3), []byte("bob-1"))
	require.NoError(t, err)

	data, err := Deriver{}.Serialize(pair.SigningKey())
	require.NoError(t, err)

	restored, err := DeserializeSigningKey(data)
	require.NoError(t, err)
	assert.Equal(t, pair.EncodedVerifyingKey(), restored.EncodedVerifyingKey())
	assert.Equal(t, pair.SigningKey().scalar, restored.SigningKey().scalar)
}

func TestDeserialize_Rejects(t *testing.T) {
	pair, err := Derive(testSeed(3), []byte("bob-1"))
	require.NoError(t, err)
	good, err := SerializeSigningKey(pair.SigningKey())
	require.NoError(t, err)

	other, err := Derive(testSeed(4), []byte("bob-1"))
	require.NoError(t, err)

	var mismatched []byte
	mismatched = protowire.AppendTag(mismatched, fieldVersion, protowire.VarintType)
	mismatched = protowire.AppendVarint(mismatched, shareVersion)
	mismatched = protowire.AppendTag(mismatched, fieldScalar, protowire.BytesType)
	mismatched = protowire.AppendBytes(mismatched, pair.SigningKey().scalar)
	mismatched = protowire.AppendTag(mismatched, fieldVerifying, protowire.BytesType)
	mismatched = protowire.AppendBytes(mismatched, other.EncodedVerifyingKey())

	var badVersion []byte
	badVersion = protowire.AppendTag(badVersion, fieldVersion, protowire.VarintType)
	badVersion = protowire.AppendVarint(badVersion, 99)

	tests := []struct {
		name string
		data []byte
	}{
		{"truncated", good[:len(good)-3]},
		{"empty", nil},
		{"bad version", badVersion},
		{"public key mismatch", mismatched},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DeserializeSigningKey(tt.data)
			assert.ErrorIs(t, err, ErrMalformedShare)
		})
	}
}
