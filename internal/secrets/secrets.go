// Package secrets stores the operator's site credentials at rest, sealed
// with AES-GCM under a key derived from a passphrase.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/scrypt"
)

// Credentials is the operator identifier + secret pair the booking site
// authenticates with. The secret is kept only long enough to hash for the
// login request; it is never logged.
type Credentials struct {
	MemberID string `json:"member_id"`
	Password string `json:"password"`
}

const saltSize = 16

// scrypt parameters follow the library's current interactive-login
// recommendation.
func deriveKey(passphrase string, salt []byte) ([]byte, error) {
	return scrypt.Key([]byte(passphrase), salt, 1<<15, 8, 1, 32)
}

func seal(passphrase string, plaintext []byte) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}
	key, err := deriveKey(passphrase, salt)
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	ct := aead.Seal(nil, nonce, plaintext, nil)
	buf := append(append(salt, nonce...), ct...)
	return base64.RawStdEncoding.EncodeToString(buf), nil
}

func open(passphrase, sealed string) ([]byte, error) {
	buf, err := base64.RawStdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, err
	}
	if len(buf) < saltSize {
		return nil, fmt.Errorf("sealed credentials too short")
	}
	key, err := deriveKey(passphrase, buf[:saltSize])
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	rest := buf[saltSize:]
	ns := aead.NonceSize()
	if len(rest) < ns {
		return nil, fmt.Errorf("sealed credentials too short")
	}
	pt, err := aead.Open(nil, rest[:ns], rest[ns:], nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt credentials: %w", err)
	}
	return pt, nil
}

// Save seals the credentials to path, readable only by the current user.
func Save(path, passphrase string, c Credentials) error {
	pt, err := json.Marshal(c)
	if err != nil {
		return err
	}
	sealed, err := seal(passphrase, pt)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(sealed+"\n"), 0o600)
}

// Load opens the sealed credentials at path.
func Load(path, passphrase string) (Credentials, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, err
	}
	s := string(raw)
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r' || s[len(s)-1] == ' ') {
		s = s[:len(s)-1]
	}
	pt, err := open(passphrase, s)
	if err != nil {
		return Credentials{}, err
	}
	var c Credentials
	if err := json.Unmarshal(pt, &c); err != nil {
		return Credentials{}, fmt.Errorf("parse credentials: %w", err)
	}
	return c, nil
}
