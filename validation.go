package adnl

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"net"
)

// ValidateHost checks that a host is a plausible dial target: a non-empty
// IP address or hostname.
//
// Returns nil if valid, or an error describing the validation failure.
func ValidateHost(host string) error {
	if host == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidAddress)
	}
	if ip := net.ParseIP(host); ip != nil {
		return nil
	}
	// Hostname: reject characters that cannot appear in DNS names.
	for i, r := range host {
		if !isValidHostnameChar(r) {
			return fmt.Errorf("%w: invalid character %q at position %d in host %q",
				ErrInvalidAddress, r, i, host)
		}
	}
	return nil
}

// isValidHostnameChar returns true if the rune is valid in a hostname.
func isValidHostnameChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '-' || r == '.':
		return true
	}
	return false
}

// ValidatePort checks that a port is in the valid TCP range.
func ValidatePort(port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidAddress, port)
	}
	return nil
}

// ValidatePublicKey checks that a raw public key has the Ed25519 size.
func ValidatePublicKey(key ed25519.PublicKey) error {
	if len(key) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: expected %d bytes, got %d",
			ErrInvalidPublicKey, ed25519.PublicKeySize, len(key))
	}
	return nil
}

// ParsePublicKeyBase64 decodes a standard-base64 Ed25519 public key.
func ParsePublicKeyBase64(s string) (ed25519.PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	key := ed25519.PublicKey(raw)
	if err := ValidatePublicKey(key); err != nil {
		return nil, err
	}
	return key, nil
}
