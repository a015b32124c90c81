package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

// tokenSeparator joins the base64 segments of a ciphertext token. It is
// not part of the base64 alphabet, so splitting on it is unambiguous.
const tokenSeparator = ":"

// placeholderSecret is the value shipped in .env.example; running with it
// outside development would mean every deployment shares a key.
const placeholderSecret = "change-me"

// ConfigurationError reports unusable key material at startup.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "encryption configuration error: " + e.Reason
}

// DecryptionError reports a ciphertext token that could not be decrypted:
// wrong segment count, malformed base64, or a failed authentication tag.
type DecryptionError struct {
	Reason string
	Err    error
}

func (e *DecryptionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decryption failed: %s: %v", e.Reason, e.Err)
	}
	return "decryption failed: " + e.Reason
}

func (e *DecryptionError) Unwrap() error { return e.Err }

// Engine encrypts and decrypts message content with AES-256-GCM. The key
// is derived once from the configured secret; the engine itself is
// stateless per call and safe for concurrent use.
type Engine struct {
	aead cipher.AEAD
}

// NewEngine derives a 256-bit key by hashing the operator-supplied secret,
// so secrets of any length work without silent truncation or padding.
// The secret must be present, and must not be the shipped placeholder when
// production is true.
func NewEngine(secret string, production bool) (*Engine, error) {
	if secret == "" {
		return nil, &ConfigurationError{Reason: "CHAT_ENCRYPTION_KEY is not set"}
	}
	if production && secret == placeholderSecret {
		return nil, &ConfigurationError{Reason: "CHAT_ENCRYPTION_KEY is still the placeholder value"}
	}

	key := sha256.Sum256([]byte(secret))

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	return &Engine{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce and returns the
// storage token base64(nonce):base64(tag):base64(ciphertext).
func (e *Engine) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := e.aead.Seal(nil, nonce, []byte(plaintext), nil)

	// Seal appends the tag after the ciphertext; the token keeps them as
	// separate segments for read-compatibility with previously stored rows.
	split := len(sealed) - e.aead.Overhead()
	ciphertext, tag := sealed[:split], sealed[split:]

	return strings.Join([]string{
		base64.StdEncoding.EncodeToString(nonce),
		base64.StdEncoding.EncodeToString(tag),
		base64.StdEncoding.EncodeToString(ciphertext),
	}, tokenSeparator), nil
}

// Decrypt reverses Encrypt. Every failure mode returns a *DecryptionError;
// the caller decides whether to surface it or fall back.
func (e *Engine) Decrypt(token string) (string, error) {
	parts := strings.Split(token, tokenSeparator)
	if len(parts) != 3 {
		return "", &DecryptionError{Reason: fmt.Sprintf("token has %d segments, want 3", len(parts))}
	}

	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", &DecryptionError{Reason: "malformed nonce segment", Err: err}
	}
	tag, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", &DecryptionError{Reason: "malformed tag segment", Err: err}
	}
	ciphertext, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return "", &DecryptionError{Reason: "malformed ciphertext segment", Err: err}
	}

	if len(nonce) != e.aead.NonceSize() {
		return "", &DecryptionError{Reason: fmt.Sprintf("nonce is %d bytes, want %d", len(nonce), e.aead.NonceSize())}
	}

	plaintext, err := e.aead.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return "", &DecryptionError{Reason: "authentication failed", Err: err}
	}

	return string(plaintext), nil
}
