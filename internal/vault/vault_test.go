package vault

import (
	"encoding/base64"
	"testing"

	"golang.org/x/crypto/chacha20poly1305"
)

func testKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, chacha20poly1305.KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	return base64.StdEncoding.EncodeToString(key)
}

func TestSealOpenRoundTrip(t *testing.T) {
	v, err := New(testKey(t), false, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sealed, err := v.Seal("refresh-token-abc123")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if sealed == "refresh-token-abc123" {
		t.Fatalf("Seal returned plaintext unchanged")
	}

	opened, err := v.Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if opened != "refresh-token-abc123" {
		t.Fatalf("Open = %q, want original plaintext", opened)
	}
}

func TestOpenRejectsTamperedCiphertext(t *testing.T) {
	v, err := New(testKey(t), false, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sealed, err := v.Seal("secret")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	raw, _ := base64.StdEncoding.DecodeString(sealed)
	raw[len(raw)-1] ^= 0xFF
	tampered := base64.StdEncoding.EncodeToString(raw)

	if _, err := v.Open(tampered); err == nil {
		t.Fatalf("Open succeeded on tampered ciphertext")
	}
}

func TestNewRequiresKeyOutsideDev(t *testing.T) {
	if _, err := New("", false, nil); err == nil {
		t.Fatalf("New succeeded with no key and allowDevKey=false")
	}
}

func TestOpenRejectsUnknownVersion(t *testing.T) {
	v, err := New(testKey(t), false, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sealed, err := v.Seal("secret")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	raw, _ := base64.StdEncoding.DecodeString(sealed)
	raw[0] = 0xFF
	futureVersion := base64.StdEncoding.EncodeToString(raw)

	if _, err := v.Open(futureVersion); err == nil {
		t.Fatalf("Open succeeded on an unrecognized ciphertext version")
	}
}
