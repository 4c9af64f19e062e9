package crypto

import (
	"crypto/ed25519"
	"fmt"

	"golang.org/x/crypto/curve25519"
)

// SharedSecretSize is the size of the derived shared secret in bytes.
const SharedSecretSize = 32

// ComputeX25519SharedSecret performs X25519 ECDH to compute the raw shared
// secret between an X25519 private key and an X25519 public key.
func ComputeX25519SharedSecret(localPrivate, remotePublic []byte) ([]byte, error) {
	if len(localPrivate) != X25519KeySize {
		return nil, fmt.Errorf("invalid X25519 private key size: expected %d, got %d",
			X25519KeySize, len(localPrivate))
	}
	if len(remotePublic) != X25519KeySize {
		return nil, fmt.Errorf("invalid X25519 public key size: expected %d, got %d",
			X25519KeySize, len(remotePublic))
	}

	// Perform X25519 scalar multiplication
	sharedSecret, err := curve25519.X25519(localPrivate, remotePublic)
	if err != nil {
		return nil, fmt.Errorf("X25519 computation failed: %w", err)
	}

	// Check for low-order point (all zeros result)
	// This can happen with malicious public keys
	allZeros := true
	for _, b := range sharedSecret {
		if b != 0 {
			allZeros = false
			break
		}
	}
	if allZeros {
		return nil, fmt.Errorf("X25519 produced all-zero output (low-order point attack)")
	}

	return sharedSecret, nil
}

// SharedSecret derives the 32-byte handshake secret from an Ed25519 private
// key and the peer's Ed25519 public key. Both keys are converted to their
// X25519 form before the ECDH computation. The intermediate X25519 private
// key is zeroed before returning.
//
// The result is used directly as raw key material by the handshake key
// schedule; it is not passed through a KDF because the peer derives the
// session cipher the same way.
func SharedSecret(localPrivate ed25519.PrivateKey, remotePublic ed25519.PublicKey) ([]byte, error) {
	xPriv, err := Ed25519PrivateToX25519(localPrivate)
	if err != nil {
		return nil, fmt.Errorf("failed to convert private key: %w", err)
	}
	defer SecureZero(xPriv)

	xPub, err := Ed25519PublicToX25519(remotePublic)
	if err != nil {
		return nil, fmt.Errorf("failed to convert public key: %w", err)
	}

	return ComputeX25519SharedSecret(xPriv, xPub)
}

// X25519PublicFromPrivate computes the X25519 public key from a private key.
func X25519PublicFromPrivate(privateKey []byte) ([]byte, error) {
	if len(privateKey) != X25519KeySize {
		return nil, fmt.Errorf("invalid X25519 private key size: expected %d, got %d",
			X25519KeySize, len(privateKey))
	}

	publicKey, err := curve25519.X25519(privateKey, curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("X25519 public key computation failed: %w", err)
	}

	return publicKey, nil
}
