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
	"fmt"

	"github.com/sage-x-project/sage-www-go/pkg/protocol"
)

// SignResponse signs decoded response fields. Values are flattened with
// protocol.FlattenResponse, so a server signing what it is about to encode
// and a client signing what it decoded produce the same signature.
func SignResponse(s Signer, apiToken string, timestamp int64, secretKey string, fields map[string]any) (string, error) {
	flat, err := protocol.FlattenResponse(fields)
	if err != nil {
		return "", fmt.Errorf("failed to flatten response: %w", err)
	}
	return s.Sign(apiToken, timestamp, secretKey, Canonicalize(flat))
}
