// Copyright (C) 2025 SAGE-X Project
//
// This file is part of sage-www-go.
//
// sage-www-go is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// sage-www-go is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with sage-www-go.  If not, see <https://www.gnu.org/licenses/>.

// Package crypt encrypts the values of the encrypted parameter channel.
//
// The key for a request is derived from the shared secret and the request
// timestamp, so the same value sent at two different timestamps yields
// unrelated ciphertexts and a ciphertext cannot be moved to another request.
package crypt

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// KeyInfo is the HKDF info string binding derived keys to this scheme
const KeyInfo = "www-crypt/v1"

var (
	ErrEmptySecret      = errors.New("crypt: secret key cannot be empty")
	ErrMalformed        = errors.New("crypt: malformed ciphertext")
	ErrDecryptionFailed = errors.New("crypt: decryption failed")
)

// ParameterCipher seals and opens parameter values for one timestamp.
// It is safe for concurrent use.
type ParameterCipher struct {
	aead   cipher.AEAD
	random io.Reader
}

// NewParameterCipher derives the key for timestamp from secretKey
func NewParameterCipher(secretKey string, timestamp int64) (*ParameterCipher, error) {
	if secretKey == "" {
		return nil, ErrEmptySecret
	}
	key, err := DeriveKey(secretKey, timestamp)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("crypt: failed to create cipher: %w", err)
	}
	return &ParameterCipher{aead: aead, random: rand.Reader}, nil
}

// DeriveKey returns HKDF-SHA256(secretKey, salt=timestamp, info=KeyInfo)
func DeriveKey(secretKey string, timestamp int64) ([]byte, error) {
	salt := []byte(strconv.FormatInt(timestamp, 10))
	r := hkdf.New(sha256.New, []byte(secretKey), salt, []byte(KeyInfo))

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("crypt: key derivation failed: %w", err)
	}
	return key, nil
}

// Seal encrypts value, binding it to the parameter name. The result is
// base64url without padding of nonce||ciphertext.
func (c *ParameterCipher) Seal(name, value string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(value)+c.aead.Overhead())
	if _, err := io.ReadFull(c.random, nonce); err != nil {
		return "", fmt.Errorf("crypt: failed to generate nonce: %w", err)
	}
	out := c.aead.Seal(nonce, nonce, []byte(value), []byte(name))
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Open decrypts a value produced by Seal under the same name
func (c *ParameterCipher) Open(name, sealed string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(raw) < c.aead.NonceSize()+c.aead.Overhead() {
		return "", ErrMalformed
	}
	nonce, ct := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, ct, []byte(name))
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plain), nil
}
