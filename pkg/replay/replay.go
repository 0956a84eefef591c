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

// Package replay rejects signed requests that were already accepted once.
//
// The timestamp window bounds how long a captured request stays valid; a
// Guard closes the window itself by remembering every signature it has
// seen for at least as long as the window lasts.
package replay

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by guards used after Close
var ErrClosed = errors.New("replay: guard closed")

// Guard records request keys
type Guard interface {
	// Seen records key and reports whether it had already been recorded
	// within ttl. Recording and checking are a single atomic step.
	Seen(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// TTLFor returns how long a key must be remembered for a timestamp window:
// a request is valid from window before to window after its timestamp.
func TTLFor(window time.Duration) time.Duration {
	return 2 * window
}
