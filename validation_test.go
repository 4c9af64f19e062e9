package adnl

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"testing"
)

func TestValidateHost(t *testing.T) {
	tests := []struct {
		host  string
		valid bool
	}{
		{"127.0.0.1", true},
		{"2001:db8::1", true},
		{"lite-server-1.example.com", true},
		{"", false},
		{"host with space", false},
		{"under_score", false},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			err := ValidateHost(tt.host)
			if tt.valid && err != nil {
				t.Errorf("ValidateHost(%q) = %v, want nil", tt.host, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("ValidateHost(%q) should fail", tt.host)
			}
		})
	}
}

func TestValidatePort(t *testing.T) {
	for _, port := range []int{1, 443, 65535} {
		if err := ValidatePort(port); err != nil {
			t.Errorf("ValidatePort(%d) = %v, want nil", port, err)
		}
	}
	for _, port := range []int{0, -1, 65536} {
		if err := ValidatePort(port); !errors.Is(err, ErrInvalidAddress) {
			t.Errorf("ValidatePort(%d) = %v, want ErrInvalidAddress", port, err)
		}
	}
}

func TestParsePublicKeyBase64(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	key, err := ParsePublicKeyBase64(base64.StdEncoding.EncodeToString(pub))
	if err != nil {
		t.Fatalf("ParsePublicKeyBase64 failed: %v", err)
	}
	if !pub.Equal(key) {
		t.Error("key does not round-trip")
	}

	if _, err := ParsePublicKeyBase64("@@@"); !errors.Is(err, ErrInvalidPublicKey) {
		t.Errorf("error = %v, want ErrInvalidPublicKey", err)
	}
	short := base64.StdEncoding.EncodeToString([]byte("short"))
	if _, err := ParsePublicKeyBase64(short); !errors.Is(err, ErrInvalidPublicKey) {
		t.Errorf("error = %v, want ErrInvalidPublicKey", err)
	}
}
