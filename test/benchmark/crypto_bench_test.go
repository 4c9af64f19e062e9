// Package benchmark provides micro-benchmarks for the crypto primitives.
// Run with: go test -bench=. ./test/benchmark/
package benchmark

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/Dzeta-tech/adnl/pkg/crypto"
)

// Benchmark Ed25519 to X25519 key conversion
func BenchmarkEd25519PrivateToX25519(b *testing.B) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = crypto.Ed25519PrivateToX25519(priv)
	}
}

func BenchmarkEd25519PublicToX25519(b *testing.B) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = crypto.Ed25519PublicToX25519(pub)
	}
}

// Benchmark X25519 shared secret computation
func BenchmarkComputeX25519SharedSecret(b *testing.B) {
	_, priv1, _ := ed25519.GenerateKey(rand.Reader)
	pub2, _, _ := ed25519.GenerateKey(rand.Reader)

	x25519Priv, _ := crypto.Ed25519PrivateToX25519(priv1)
	x25519Pub, _ := crypto.Ed25519PublicToX25519(pub2)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = crypto.ComputeX25519SharedSecret(x25519Priv, x25519Pub)
	}
}

// Benchmark the full handshake secret derivation from Ed25519 keys
func BenchmarkSharedSecret(b *testing.B) {
	_, priv, _ := ed25519.GenerateKey(rand.Reader)
	pub, _, _ := ed25519.GenerateKey(rand.Reader)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = crypto.SharedSecret(priv, pub)
	}
}

func BenchmarkKeyID(b *testing.B) {
	pub, _, _ := ed25519.GenerateKey(rand.Reader)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = crypto.KeyID(pub)
	}
}

func BenchmarkGenerateEphemeral(b *testing.B) {
	for i := 0; i < b.N; i++ {
		e, err := crypto.GenerateEphemeral()
		if err != nil {
			b.Fatal(err)
		}
		e.Close()
	}
}

// Benchmark the session cipher at several payload sizes
func BenchmarkStreamCipherProcess(b *testing.B) {
	key := make([]byte, 32)
	counter := make([]byte, 16)
	rand.Read(key)
	rand.Read(counter)

	sizes := []struct {
		name string
		n    int
	}{
		{"64B", 64},
		{"1KB", 1024},
		{"64KB", 64 * 1024},
	}

	for _, size := range sizes {
		b.Run(size.name, func(b *testing.B) {
			cipher, err := crypto.NewStreamCipher(key, counter)
			if err != nil {
				b.Fatal(err)
			}
			payload := make([]byte, size.n)
			rand.Read(payload)

			b.SetBytes(int64(size.n))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := cipher.ProcessInPlace(payload); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
