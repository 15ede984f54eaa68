// Package vault implements the Secret Vault (C9): AEAD sealing of OAuth
// tokens and downstream credentials at rest, grounded on
// original_source/api/utils/encryption.py (a Fernet-based singleton) but
// using the teacher's golang.org/x/crypto dependency's ChaCha20-Poly1305
// primitive instead of Fernet/bcrypt, since this spec has no user-password
// login surface to justify carrying bcrypt.
package vault

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/chacha20poly1305"
)

// vaultV1 is the only ciphertext version Seal produces today. Open
// dispatches on the leading version byte so a future key-rotation scheme
// can introduce vaultV2 without breaking ciphertexts already at rest
// (spec.md §4.9: "Ciphertexts include a version byte for key rotation").
const vaultV1 byte = 1

// Vault seals and opens secrets with a single process-wide symmetric key.
type Vault struct {
	aead chacha20poly1305.AEAD
}

// New builds a Vault from a base64-encoded 32-byte key. If keyBase64 is
// empty, New only succeeds when allowDevKey is true: it synthesizes a
// random key and logs a warning, mirroring encryption.py's dev-mode
// auto-generation. Production callers should pass allowDevKey=false so a
// missing key is a startup error, not a silently-rotating secret.
func New(keyBase64 string, allowDevKey bool, logger *slog.Logger) (*Vault, error) {
	var key []byte

	switch {
	case keyBase64 != "":
		decoded, err := base64.StdEncoding.DecodeString(keyBase64)
		if err != nil {
			return nil, fmt.Errorf("decoding vault key: %w", err)
		}
		key = decoded
	case allowDevKey:
		key = make([]byte, chacha20poly1305.KeySize)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generating dev vault key: %w", err)
		}
		logger.Warn("VAULT_KEY_BASE64 not set; synthesized an ephemeral development key — tokens sealed with it will not decrypt after restart")
	default:
		return nil, fmt.Errorf("VAULT_KEY_BASE64 is required outside development")
	}

	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("vault key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("constructing AEAD cipher: %w", err)
	}

	return &Vault{aead: aead}, nil
}

// Seal encrypts plaintext and returns a base64-encoded
// version||nonce||ciphertext blob suitable for storing in a text column.
func (v *Vault) Seal(plaintext string) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	buf := make([]byte, 0, 1+len(nonce))
	buf = append(buf, vaultV1)
	buf = append(buf, nonce...)

	sealed := v.aead.Seal(buf, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal, dispatching on the leading version byte.
func (v *Vault) Open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("decoding sealed blob: %w", err)
	}
	if len(raw) < 1 {
		return "", fmt.Errorf("sealed blob too short")
	}

	version, body := raw[0], raw[1:]
	switch version {
	case vaultV1:
		return v.openV1(body)
	default:
		return "", fmt.Errorf("unsupported vault ciphertext version %d", version)
	}
}

func (v *Vault) openV1(body []byte) (string, error) {
	nonceSize := v.aead.NonceSize()
	if len(body) < nonceSize {
		return "", fmt.Errorf("sealed blob too short")
	}

	nonce, ciphertext := body[:nonceSize], body[nonceSize:]
	plaintext, err := v.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("opening sealed blob: %w", err)
	}

	return string(plaintext), nil
}
