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

package verifier

import (
	"crypto/hmac"
	"time"

	"github.com/sage-x-project/sage-www-go/pkg/apierror"
	"github.com/sage-x-project/sage-www-go/pkg/signer"
)

// DefaultVerifier verifies signatures produced by a signer.Signer
type DefaultVerifier struct {
	signer signer.Signer
}

// NewDefaultVerifier creates a new DefaultVerifier. A nil signer selects
// signer.NewDefaultSigner.
func NewDefaultVerifier(s signer.Signer) *DefaultVerifier {
	if s == nil {
		s = signer.NewDefaultSigner()
	}
	return &DefaultVerifier{signer: s}
}

// Verify checks the timestamp window first, then the hash.
func (v *DefaultVerifier) Verify(signature, apiToken string, timestamp int64, secretKey, canonicalPayload string, now time.Time, window time.Duration) error {
	if err := CheckWindow(timestamp, now, window); err != nil {
		return err
	}

	if signature == "" {
		return apierror.New(apierror.KindSignature, "signature missing")
	}

	expected, err := v.signer.Sign(apiToken, timestamp, secretKey, canonicalPayload)
	if err != nil {
		return apierror.Wrap(apierror.KindSignature, err, "failed to compute signature")
	}

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return apierror.New(apierror.KindSignature, "signature mismatch")
	}
	return nil
}

// CheckWindow reports a stale-timestamp error unless
// -window <= now-timestamp <= window, in whole seconds.
func CheckWindow(timestamp int64, now time.Time, window time.Duration) error {
	w := int64(window / time.Second)
	delta := now.Unix() - timestamp
	if delta > w {
		return apierror.New(apierror.KindStaleTimestamp, "timestamp %d is %ds old, window is %ds", timestamp, delta, w)
	}
	if delta < -w {
		return apierror.New(apierror.KindStaleTimestamp, "timestamp %d is %ds in the future, window is %ds", timestamp, -delta, w)
	}
	return nil
}
