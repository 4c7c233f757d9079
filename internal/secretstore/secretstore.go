// Package secretstore implements authenticated encryption of tenant-owned
// upstream credentials (C2) and resolution of {{SECRET:NAME}} placeholders
// embedded in endpoint auth config.
package secretstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
)

// ErrDecrypt is returned when a ciphertext fails authentication or is
// otherwise malformed. It never wraps the underlying cipher error, so a
// tampered or wrong-key ciphertext cannot be distinguished from the outside.
var ErrDecrypt = errors.New("secretstore: decryption failed")

// Sealed is a secret at rest: the AEAD-sealed ciphertext (with the auth tag
// appended) plus the nonce used to seal it.
type Sealed struct {
	Ciphertext []byte
	Nonce      []byte
}

// Store seals and opens tenant secrets with a single process-wide AEAD key.
type Store struct {
	aead cipher.AEAD
}

// New builds a Store from a 32-byte hex-encoded key, the format the process
// config carries (spec §4.2, §6.5). Returns an error if the key does not
// decode to exactly 32 bytes.
func New(hexKey string) (*Store, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("secretstore: decode key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("secretstore: key must be 32 bytes, got %d", len(raw))
	}
	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("secretstore: new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secretstore: new gcm: %w", err)
	}
	return &Store{aead: aead}, nil
}

// Encrypt seals plaintext under a freshly random nonce. The auth tag is
// appended to the ciphertext by cipher.AEAD.Seal.
func (s *Store) Encrypt(plaintext []byte) (Sealed, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return Sealed{}, fmt.Errorf("secretstore: generate nonce: %w", err)
	}
	ciphertext := s.aead.Seal(nil, nonce, plaintext, nil)
	return Sealed{Ciphertext: ciphertext, Nonce: nonce}, nil
}

// Decrypt opens a previously sealed secret. Any authentication or format
// failure collapses to ErrDecrypt.
func (s *Store) Decrypt(sealed Sealed) ([]byte, error) {
	plaintext, err := s.aead.Open(nil, sealed.Nonce, sealed.Ciphertext, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

// secretRefPattern matches {{SECRET:NAME}} where NAME follows the Secret
// name charset (spec §3: [A-Z_][A-Z0-9_]*, ≤64 chars).
var secretRefPattern = regexp.MustCompile(`\{\{SECRET:([A-Z_][A-Z0-9_]{0,63})\}\}`)

// Lookup returns the sealed secret for name, or (Sealed{}, false) if the
// tenant has no secret by that name.
type Lookup func(name string) (Sealed, bool)

// UnresolvedDiagnostic describes a {{SECRET:NAME}} placeholder that had no
// matching stored secret. ResolveReferences never aborts on these — it
// reports them so the caller can log without blocking the request.
type UnresolvedDiagnostic struct {
	Name string
}

// ResolveReferences substitutes every {{SECRET:NAME}} occurrence in template
// with its decrypted value via lookup. Unknown names, and names whose
// ciphertext fails to decrypt, are left intact in the output and reported
// through diagnostics — resolution always completes.
func (s *Store) ResolveReferences(template string, lookup Lookup) (string, []UnresolvedDiagnostic) {
	var diagnostics []UnresolvedDiagnostic

	resolved := secretRefPattern.ReplaceAllStringFunc(template, func(match string) string {
		sub := secretRefPattern.FindStringSubmatch(match)
		name := sub[1]

		sealed, ok := lookup(name)
		if !ok {
			diagnostics = append(diagnostics, UnresolvedDiagnostic{Name: name})
			return match
		}

		plaintext, err := s.Decrypt(sealed)
		if err != nil {
			diagnostics = append(diagnostics, UnresolvedDiagnostic{Name: name})
			return match
		}

		return string(plaintext)
	})

	return resolved, diagnostics
}
