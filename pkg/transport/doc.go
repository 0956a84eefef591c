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

// Package transport dispatches signed request envelopes over HTTP.
//
// # Usage
//
//	t := transport.NewHTTPTransport(nil)
//	resp, err := t.RoundTrip(ctx, env, 10*time.Second)
//	if err != nil {
//	    // *apierror.Error: KindTimeout, KindCancelled or KindTransport
//	}
//	fmt.Println(resp.Status, string(resp.Body))
//
// # Wire Format
//
// Envelopes are posted as application/x-www-form-urlencoded forms, or as
// multipart/form-data when they carry attachments. Every request has:
//
//   - X-WWW-Token: the API token
//   - X-Request-Id: a per-envelope UUID
//   - User-Agent: SageWWW/<version>
//
// GET is available for servers that need it; it cannot carry attachments
// and refuses URLs longer than MaxURLLength.
//
// # Error Mapping
//
//   - deadline exceeded or network timeout: KindTimeout
//   - context cancelled by the caller: KindCancelled
//   - anything else, including oversized bodies: KindTransport
//
// Non-2xx responses are not errors at this layer; the client interprets
// them.
package transport
