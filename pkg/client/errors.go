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

package client

import (
	"errors"

	"github.com/sage-x-project/sage-www-go/pkg/apierror"
)

// CallError is returned by Call on failure. It unwraps to the
// *apierror.Error describing the cause.
type CallError struct {
	Err *apierror.Error
	// Reached is the last state the call reached before failing
	Reached State
	// Trace lists every state the call went through, ending in StateFailed
	Trace []State
	// RequestID is set when the envelope was built
	RequestID string
}

func (e *CallError) Error() string {
	return e.Err.Error()
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// StateOf returns the final state of a call given the error it returned
func StateOf(err error) State {
	if err == nil {
		return StateSucceeded
	}
	return StateFailed
}

// ReachedOf returns the last state a failed call reached before failing.
// It is StateSucceeded for nil and StateUnsent for errors not returned by
// Call.
func ReachedOf(err error) State {
	if err == nil {
		return StateSucceeded
	}
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Reached
	}
	return StateUnsent
}
