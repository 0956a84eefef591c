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

import "errors"

var (
	ErrEmptySecret = errors.New("signer: secret key cannot be empty")
	ErrEmptyToken  = errors.New("signer: api token cannot be empty")
)

// Signer computes request signatures
type Signer interface {
	// Sign returns the signature of canonicalPayload for the given token and
	// timestamp. It is deterministic: identical inputs give identical output.
	// The secret key is used only as hash key material and never returned.
	Sign(apiToken string, timestamp int64, secretKey, canonicalPayload string) (string, error)
}

// SignatureLength is the length of a signature string (hex SHA-256)
const SignatureLength = 64
