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
	"strconv"

	sagewww "github.com/sage-x-project/sage-www-go"
)

// DefaultSigner implements Signer with HMAC-SHA256 keyed by the secret key
type DefaultSigner struct {
	version string
}

// NewDefaultSigner creates a new DefaultSigner for the current protocol version
func NewDefaultSigner() *DefaultSigner {
	return &DefaultSigner{version: sagewww.ProtocolVersion}
}

// Sign computes hex(HMAC-SHA256(secretKey, version \n token \n timestamp \n payload))
func (s *DefaultSigner) Sign(apiToken string, timestamp int64, secretKey, canonicalPayload string) (string, error) {
	if secretKey == "" {
		return "", ErrEmptySecret
	}
	if apiToken == "" {
		return "", ErrEmptyToken
	}

	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(s.signatureBase(apiToken, timestamp, canonicalPayload)))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// signatureBase builds the signed message. Newlines separate the parts;
// the token cannot contain one because it travels in a header.
func (s *DefaultSigner) signatureBase(apiToken string, timestamp int64, canonicalPayload string) string {
	return s.version + "\n" + apiToken + "\n" + strconv.FormatInt(timestamp, 10) + "\n" + canonicalPayload
}
