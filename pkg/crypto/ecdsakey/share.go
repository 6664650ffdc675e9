package ecdsakey

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"google.golang.org/protobuf/encoding/protowire"
)

// shareVersion is the current encoding version of a stored share.
const shareVersion = 1

// Field numbers of the share record.
const (
	fieldVersion   protowire.Number = 1
	fieldScalar    protowire.Number = 2
	fieldVerifying protowire.Number = 3
)

var (
	ErrEmptyKey       = errors.New("ecdsakey: signing key is empty")
	ErrMalformedShare = errors.New("ecdsakey: malformed share")
)

// SerializeSigningKey encodes a signing key as a protobuf-wire record
// carrying the version, the scalar and the matching compressed public key.
func SerializeSigningKey(k *SigningKey) ([]byte, error) {
	if k.IsZero() {
		return nil, ErrEmptyKey
	}
	priv, err := crypto.ToECDSA(k.scalar)
	if err != nil {
		return nil, fmt.Errorf("ecdsakey: encode share: %w", err)
	}
	defer wipe(priv)
	pub := crypto.CompressPubkey(&priv.PublicKey)

	var b []byte
	b = protowire.AppendTag(b, fieldVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, shareVersion)
	b = protowire.AppendTag(b, fieldScalar, protowire.BytesType)
	b = protowire.AppendBytes(b, k.scalar)
	b = protowire.AppendTag(b, fieldVerifying, protowire.BytesType)
	b = protowire.AppendBytes(b, pub)
	return b, nil
}

// DeserializeSigningKey decodes a record written by SerializeSigningKey and
// returns the key pair it describes. The stored public key must match the scalar.
func DeserializeSigningKey(data []byte) (*KeyPair, error) {
	var (
		version   uint64
		scalar    []byte
		verifying []byte
	)

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformedShare, protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == fieldVersion && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformedShare, protowire.ParseError(m))
			}
			version, n = v, m
		case num == fieldScalar && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformedShare, protowire.ParseError(m))
			}
			scalar, n = append([]byte(nil), v...), m
		case num == fieldVerifying && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformedShare, protowire.ParseError(m))
			}
			verifying, n = append([]byte(nil), v...), m
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformedShare, protowire.ParseError(n))
			}
		}
		data = data[n:]
	}

	if version != shareVersion {
		clear(scalar)
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedShare, version)
	}
	priv, err := crypto.ToECDSA(scalar)
	if err != nil {
		clear(scalar)
		return nil, fmt.Errorf("%w: %v", ErrMalformedShare, err)
	}
	defer wipe(priv)

	pub := crypto.CompressPubkey(&priv.PublicKey)
	if !bytes.Equal(pub, verifying) {
		clear(scalar)
		return nil, fmt.Errorf("%w: public key mismatch", ErrMalformedShare)
	}
	return &KeyPair{signing: &SigningKey{scalar: scalar}, verifying: pub}, nil
}

// Deriver bundles Derive and SerializeSigningKey behind one value so callers
// can depend on an interface.
type Deriver struct{}

// Derive calls the package-level Derive.
func (Deriver) Derive(seed, sessionNonce []byte) (*KeyPair, error) {
	return Derive(seed, sessionNonce)
}

// Serialize calls SerializeSigningKey.
func (Deriver) Serialize(k *SigningKey) ([]byte, error) {
	return SerializeSigningKey(k)
}
