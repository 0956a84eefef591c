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
	"net/http"

	"github.com/gin-gonic/gin"
)

// GinContextKey is the gin context key holding the *VerifiedRequest
const GinContextKey = "sagewww.verified"

// Gin adapts the middleware to a gin handler. Rejected requests are
// aborted after the error handler has written its response.
func (m *AuthMiddleware) Gin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		vr, err := m.Authenticate(c.Request)
		if err != nil {
			m.errorHandler(c.Writer, c.Request, err)
			c.Abort()
			return
		}
		if vr != nil {
			c.Request = c.Request.WithContext(WithVerifiedRequest(c.Request.Context(), vr))
			c.Set(GinContextKey, vr)
		}
		c.Next()
	}
}

// GinVerifiedRequest returns the verified request stored by Gin
func GinVerifiedRequest(c *gin.Context) (*VerifiedRequest, bool) {
	v, ok := c.Get(GinContextKey)
	if !ok {
		return nil, false
	}
	vr, ok := v.(*VerifiedRequest)
	return vr, ok
}
