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

package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/sage-x-project/sage-www-go/pkg/protocol"
	"github.com/sage-x-project/sage-www-go/pkg/signer"
)

// Respond writes fields as a JSON object. When r carries a verified request
// that asked for it, the response also gets www-timestamp and a www-hash
// signed with the request's token and secret.
func Respond(w http.ResponseWriter, r *http.Request, fields map[string]any) error {
	out, err := normalize(fields)
	if err != nil {
		return err
	}

	if vr, ok := VerifiedRequestFromContext(r.Context()); ok && (vr.ReturnHash || vr.ReturnTimestamp) {
		var ts int64
		if vr.ReturnTimestamp {
			ts = vr.now().Unix()
			out[protocol.FieldTimestamp] = json.Number(strconv.FormatInt(ts, 10))
		}
		if vr.ReturnHash {
			sig, err := signer.SignResponse(signer.NewDefaultSigner(), vr.APIToken, ts, vr.secret, out)
			if err != nil {
				return err
			}
			out[protocol.FieldHash] = sig
		}
	}

	return writeJSON(w, http.StatusOK, out)
}

// WriteError writes a protocol error body
func WriteError(w http.ResponseWriter, status, code int, message string) {
	_ = writeJSON(w, status, map[string]any{
		protocol.FieldError:     message,
		protocol.FieldErrorCode: code,
	})
}

// normalize passes fields through a JSON round trip so that the values
// signed are exactly the values the client decodes
func normalize(fields map[string]any) (map[string]any, error) {
	body, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(fields)+2)
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if out == nil {
		out = make(map[string]any)
	}
	return out, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
