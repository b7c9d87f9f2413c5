package store

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

var ErrSealed = errors.New("sealed value cannot be opened")

// Sealed encrypts values with XChaCha20-Poly1305 before handing them to the
// wrapped store. The key name is bound as additional data, so a value copied
// under another key fails to open.
type Sealed struct {
	next Store
	aead cipher.AEAD
}

func NewSealed(next Store, secret string) (*Sealed, error) {
	if secret == "" {
		return nil, fmt.Errorf("sealed store: empty secret")
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte("stratolift session store")), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return &Sealed{next: next, aead: aead}, nil
}

func (s *Sealed) Get(ctx context.Context, key string) (string, error) {
	raw, err := s.next.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return s.open(key, raw)
}

func (s *Sealed) SetMany(ctx context.Context, entries map[string]string) error {
	sealed := make(map[string]string, len(entries))
	for k, v := range entries {
		enc, err := s.seal(k, v)
		if err != nil {
			return err
		}
		sealed[k] = enc
	}
	return s.next.SetMany(ctx, sealed)
}

func (s *Sealed) Delete(ctx context.Context, keys ...string) error {
	return s.next.Delete(ctx, keys...)
}

func (s *Sealed) seal(key, value string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(value)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("%w: nonce: %w", ErrStorage, err)
	}
	out := s.aead.Seal(nonce, nonce, []byte(value), []byte(key))
	return base64.RawStdEncoding.EncodeToString(out), nil
}

func (s *Sealed) open(key, raw string) (string, error) {
	buf, err := base64.RawStdEncoding.DecodeString(raw)
	if err != nil || len(buf) < s.aead.NonceSize() {
		return "", fmt.Errorf("%w: %w", ErrStorage, ErrSealed)
	}
	nonce, ciphertext := buf[:s.aead.NonceSize()], buf[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, []byte(key))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStorage, ErrSealed)
	}
	return string(plain), nil
}
