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

package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hexSignature = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestCanonicalize(t *testing.T) {
	t.Run("sorted and escaped", func(t *testing.T) {
		got := Canonicalize(map[string]string{
			"b":             "two words",
			"a":             "x&y=z",
			"www-timestamp": "1700000000",
		})
		assert.Equal(t, "a=x%26y%3Dz&b=two+words&www-timestamp=1700000000", got)
	})

	t.Run("hash field is excluded", func(t *testing.T) {
		got := Canonicalize(map[string]string{
			"cmd":      "echo",
			"www-hash": "deadbeef",
		})
		assert.Equal(t, "cmd=echo", got)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, "", Canonicalize(nil))
	})

	t.Run("insertion order does not matter", func(t *testing.T) {
		first := make(map[string]string)
		first["zeta"] = "1"
		first["alpha"] = "2"
		first["mid"] = "3"

		second := make(map[string]string)
		second["mid"] = "3"
		second["zeta"] = "1"
		second["alpha"] = "2"

		assert.Equal(t, Canonicalize(first), Canonicalize(second))
	})

	t.Run("byte order, not locale order", func(t *testing.T) {
		got := Canonicalize(map[string]string{"b": "1", "B": "2", "a": "3"})
		assert.Equal(t, "B=2&a=3&b=1", got)
	})
}

func TestDefaultSigner_Sign(t *testing.T) {
	s := NewDefaultSigner()
	payload := Canonicalize(map[string]string{"cmd": "echo"})

	t.Run("deterministic", func(t *testing.T) {
		sig1, err := s.Sign("tok123", 1700000000, "s3cr3t", payload)
		require.NoError(t, err)
		sig2, err := s.Sign("tok123", 1700000000, "s3cr3t", payload)
		require.NoError(t, err)

		assert.Equal(t, sig1, sig2)
		assert.Len(t, sig1, SignatureLength)
		assert.Regexp(t, hexSignature, sig1)
	})

	t.Run("matches the documented construction", func(t *testing.T) {
		mac := hmac.New(sha256.New, []byte("s3cr3t"))
		mac.Write([]byte("www-v1\ntok123\n1700000000\ncmd=echo"))
		want := hex.EncodeToString(mac.Sum(nil))

		got, err := s.Sign("tok123", 1700000000, "s3cr3t", payload)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("empty secret", func(t *testing.T) {
		_, err := s.Sign("tok123", 1700000000, "", payload)
		assert.ErrorIs(t, err, ErrEmptySecret)
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := s.Sign("", 1700000000, "s3cr3t", payload)
		assert.ErrorIs(t, err, ErrEmptyToken)
	})
}

func TestDefaultSigner_AnyInputChangeChangesSignature(t *testing.T) {
	s := NewDefaultSigner()
	base, err := s.Sign("tok123", 1700000000, "s3cr3t", "cmd=echo")
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		ts      int64
		secret  string
		payload string
	}{
		{"token", "tok124", 1700000000, "s3cr3t", "cmd=echo"},
		{"timestamp", "tok123", 1700000001, "s3cr3t", "cmd=echo"},
		{"secret", "tok123", 1700000000, "s3cr3T", "cmd=echo"},
		{"payload", "tok123", 1700000000, "s3cr3t", "cmd=echO"},
		{"payload suffix", "tok123", 1700000000, "s3cr3t", "cmd=echo&"},
		// moving a byte across the separator must not collide
		{"token/timestamp boundary", "tok1231", 700000000, "s3cr3t", "cmd=echo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := s.Sign(tt.token, tt.ts, tt.secret, tt.payload)
			require.NoError(t, err)
			assert.NotEqual(t, base, sig)
		})
	}
}

func TestDefaultSigner_SingleBitMutations(t *testing.T) {
	s := NewDefaultSigner()
	payload := []byte("a=1&b=2&cmd=echo&www-timestamp=1700000000")
	base, err := s.Sign("tok123", 1700000000, "s3cr3t", string(payload))
	require.NoError(t, err)

	seen := map[string]bool{base: true}
	for i := range payload {
		for bit := 0; bit < 8; bit++ {
			mutated := make([]byte, len(payload))
			copy(mutated, payload)
			mutated[i] ^= 1 << bit

			sig, err := s.Sign("tok123", 1700000000, "s3cr3t", string(mutated))
			require.NoError(t, err)
			require.False(t, seen[sig], "collision at byte %d bit %d", i, bit)
			seen[sig] = true
		}
	}
}
