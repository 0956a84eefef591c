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

// Package sagewww provides version information for sage-www-go and the
// request signing protocol it speaks.
package sagewww

const (
	// Version is the current version of sage-www-go
	Version = "1.0.0-dev"

	// ProtocolVersion identifies the canonicalization, signature and
	// encryption scheme. It is mixed into every signature, so changing it
	// invalidates signatures produced by older clients.
	ProtocolVersion = "www-v1"

	// UserAgentPrefix is prepended to Version to build the default User-Agent
	UserAgentPrefix = "SageWWW"
)

// VersionInfo contains version information
type VersionInfo struct {
	SageWWWVersion  string
	ProtocolVersion string
	UserAgent       string
}

// GetVersionInfo returns the current version information
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		SageWWWVersion:  Version,
		ProtocolVersion: ProtocolVersion,
		UserAgent:       UserAgent(),
	}
}

// UserAgent returns the default User-Agent header value
func UserAgent() string {
	return UserAgentPrefix + "/" + Version
}
