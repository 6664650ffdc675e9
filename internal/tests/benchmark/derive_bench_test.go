package benchmark

import (
	"crypto/rand"
	"testing"

	"github.com/yndnr/tssd/pkg/crypto/ecdsakey"
)

// BenchmarkDerive measures HKDF expansion plus scalar validation.
func BenchmarkDerive(b *testing.B) {
	seed := make([]byte, 64)
	rand.Read(seed)
	nonce := []byte("bench-key-uid")

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		pair, err := ecdsakey.Derive(seed, nonce)
		if err != nil {
			b.Fatalf("derive: %v", err)
		}
		pair.Zero()
	}
}

// BenchmarkSerializeShare measures share encoding.
func BenchmarkSerializeShare(b *testing.B) {
	seed := make([]byte, 64)
	rand.Read(seed)
	pair, err := ecdsakey.Derive(seed, []byte("bench-key-uid"))
	if err != nil {
		b.Fatalf("derive: %v", err)
	}
	defer pair.Zero()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		share, err := ecdsakey.SerializeSigningKey(pair.SigningKey())
		if err != nil {
			b.Fatalf("serialize: %v", err)
		}
		clear(share)
	}
}
