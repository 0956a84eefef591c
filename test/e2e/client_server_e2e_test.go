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

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sage-x-project/sage-www-go/pkg/apierror"
	"github.com/sage-x-project/sage-www-go/pkg/client"
	"github.com/sage-x-project/sage-www-go/pkg/clock"
	"github.com/sage-x-project/sage-www-go/pkg/protocol"
	"github.com/sage-x-project/sage-www-go/pkg/replay"
	"github.com/sage-x-project/sage-www-go/pkg/request"
	"github.com/sage-x-project/sage-www-go/pkg/server"
	"github.com/sage-x-project/sage-www-go/pkg/session"
	"github.com/sage-x-project/sage-www-go/pkg/transport"
	"github.com/sage-x-project/sage-www-go/pkg/verifier"
)

const (
	secret = "s3cr3t"
	token  = "tok123"
)

// newServer starts an API that echoes what the middleware verified
func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	guard, err := replay.NewMemoryGuard(time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = guard.Close() })

	resolver := verifier.NewStaticResolver(map[string]verifier.Profile{
		verifier.DefaultProfile: {Secret: secret, Tokens: []string{token}},
	})
	auth := server.NewAuthMiddleware(resolver,
		server.WithWindow(10*time.Second),
		server.WithReplayGuard(guard),
	)

	srv := httptest.NewServer(auth.Wrap(http.HandlerFunc(echo)))
	t.Cleanup(srv.Close)
	return srv
}

func echo(w http.ResponseWriter, r *http.Request) {
	vr, _ := server.VerifiedRequestFromContext(r.Context())
	fields := map[string]any{"command": vr.Command}
	for k, v := range vr.Params {
		fields["plain."+k] = v
	}
	for k, v := range vr.Encrypted {
		fields["secret."+k] = v
	}
	for _, f := range vr.Files {
		fields["file."+f.Field] = string(f.Content)
		fields["filename."+f.Field] = f.Filename
	}
	_ = server.Respond(w, r, fields)
}

func newClient(t *testing.T, endpoint string, opts ...session.Option) (*client.Client, *session.Session) {
	t.Helper()
	sess, err := session.Configure(endpoint, secret, token, 5, 10, opts...)
	require.NoError(t, err)
	return client.New(sess), sess
}

// TestE2E_FullCycle sends plain, encrypted and file parameters and checks
// the signed response
func TestE2E_FullCycle(t *testing.T) {
	srv := newServer(t)
	c, sess := newClient(t, srv.URL+"/www.api")

	asm := c.NewAssembler()
	require.NoError(t, asm.SetCommand("Movies.Search"))
	require.NoError(t, asm.AddParameter("title", "Alien & Aliens"))
	require.NoError(t, asm.AddEncryptedParameter("card", "4111 1111 1111 1111"))
	require.NoError(t, asm.AddFile("poster", request.FileRef{Filename: "poster.txt", Content: []byte("xenomorph")}))

	result, err := c.Call(context.Background(), asm, client.CallOptions{ReturnHash: true, ReturnTimestamp: true})
	require.NoError(t, err)

	assert.Equal(t, client.StateSucceeded, result.State)
	assert.Equal(t, []client.State{
		client.StateUnsent, client.StateAssembling, client.StateSigned, client.StateDispatched, client.StateSucceeded,
	}, result.Trace)
	assert.Equal(t, "movies.search", result.Fields["command"])
	assert.Equal(t, "Alien & Aliens", result.Fields["plain.title"])
	assert.Equal(t, "4111 1111 1111 1111", result.Fields["secret.card"])
	assert.Equal(t, "xenomorph", result.Fields["file.poster"])
	assert.Contains(t, result.Fields, protocol.FieldHash)

	code, _ := sess.LastError()
	assert.Equal(t, apierror.CodeNone, code)
}

// TestE2E_AttachmentFilenames sends names a multipart receiver rewrites
// or that contain the descriptor separator
func TestE2E_AttachmentFilenames(t *testing.T) {
	srv := newServer(t)
	c, _ := newClient(t, srv.URL+"/www.api")

	asm := c.NewAssembler()
	require.NoError(t, asm.AddFile("doc", request.FileRef{Content: []byte("hello"), Filename: "reports/q1.txt"}))
	require.NoError(t, asm.AddFile("notes", request.FileRef{
		Content:     []byte("semi"),
		Filename:    "a;b.txt",
		ContentType: "text/plain; charset=utf-8",
	}))

	result, err := c.Call(context.Background(), asm, client.CallOptions{ReturnHash: true})
	require.NoError(t, err)
	assert.Equal(t, "hello", result.Fields["file.doc"])
	assert.Equal(t, "q1.txt", result.Fields["filename.doc"])
	assert.Equal(t, "a;b.txt", result.Fields["filename.notes"])
}

// TestE2E_TokenOnlyFromSessionCreation checks that a www-token in an
// ordinary answer does not replace the credential
func TestE2E_TokenOnlyFromSessionCreation(t *testing.T) {
	resolver := verifier.NewStaticResolver(map[string]verifier.Profile{
		verifier.DefaultProfile: {Secret: secret, Tokens: []string{token, "issued"}},
	})
	auth := server.NewAuthMiddleware(resolver)
	srv := httptest.NewServer(auth.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		vr, _ := server.VerifiedRequestFromContext(r.Context())
		if vr.Command == protocol.CommandSession {
			_ = server.Respond(w, r, map[string]any{protocol.FieldToken: "issued"})
			return
		}
		_ = server.Respond(w, r, map[string]any{"ok": "1", protocol.FieldToken: "attacker"})
	})))
	t.Cleanup(srv.Close)
	c, sess := newClient(t, srv.URL+"/www.api")

	asm := c.NewAssembler()
	require.NoError(t, asm.SetCommand("echo"))
	_, err := c.Call(context.Background(), asm, client.CallOptions{ReturnHash: true})
	require.NoError(t, err)
	assert.Equal(t, token, sess.APIToken())

	_, err = c.CreateSession(context.Background(), client.CallOptions{ReturnHash: true})
	require.NoError(t, err)
	assert.Equal(t, "issued", sess.APIToken())
}

func TestE2E_GetMethod(t *testing.T) {
	srv := newServer(t)
	sess, err := session.Configure(srv.URL+"/www.api", secret, token, 5, 10)
	require.NoError(t, err)
	c := client.New(sess, client.WithTransport(transport.NewHTTPTransport(nil, transport.WithMethod(http.MethodGet))))

	asm := c.NewAssembler()
	require.NoError(t, asm.SetCommand("echo"))
	require.NoError(t, asm.AddParameter("q", "a b+c"))

	result, err := c.Call(context.Background(), asm, client.CallOptions{ReturnHash: true})
	require.NoError(t, err)
	assert.Equal(t, "a b+c", result.Fields["plain.q"])
}

// TestE2E_Replay resends an accepted envelope unchanged
func TestE2E_Replay(t *testing.T) {
	srv := newServer(t)
	c, _ := newClient(t, srv.URL+"/www.api")

	asm := c.NewAssembler()
	require.NoError(t, asm.SetCommand("echo"))
	result, err := c.Call(context.Background(), asm, client.CallOptions{})
	require.NoError(t, err)

	resp, err := transport.NewHTTPTransport(nil).RoundTrip(context.Background(), result.Envelope, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.Status)

	var body map[string]any
	require.NoError(t, json.Unmarshal(resp.Body, &body))
	assert.Equal(t, float64(protocol.ServerCodeReplay), body[protocol.FieldErrorCode])
}

func TestE2E_StaleClock(t *testing.T) {
	srv := newServer(t)
	c, sess := newClient(t, srv.URL+"/www.api", session.WithClock(clock.NewMock(time.Now().Add(-time.Minute))))

	asm := c.NewAssembler()
	require.NoError(t, asm.SetCommand("echo"))
	_, err := c.Call(context.Background(), asm, client.CallOptions{})
	require.Error(t, err)

	assert.Equal(t, apierror.KindStaleTimestamp, apierror.KindOf(err))
	assert.ErrorIs(t, err, apierror.ErrAuthentication)
	assert.Equal(t, client.StateDispatched, client.ReachedOf(err))

	code, _ := sess.LastError()
	assert.Equal(t, protocol.ServerCodeTimestampTooOld, code)
}

// tamper rewrites one form field in flight
type tamper struct {
	field, value string
}

func (tp tamper) RoundTrip(req *http.Request) (*http.Response, error) {
	raw, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	form, err := url.ParseQuery(string(raw))
	if err != nil {
		return nil, err
	}
	form.Set(tp.field, tp.value)
	body := form.Encode()

	req = req.Clone(req.Context())
	req.Body = io.NopCloser(strings.NewReader(body))
	req.ContentLength = int64(len(body))
	return http.DefaultTransport.RoundTrip(req)
}

func TestE2E_TamperedRequest(t *testing.T) {
	srv := newServer(t)
	sess, err := session.Configure(srv.URL+"/www.api", secret, token, 5, 10)
	require.NoError(t, err)
	httpClient := &http.Client{Transport: tamper{field: "amount", value: "1000"}}
	c := client.New(sess, client.WithTransport(transport.NewHTTPTransport(httpClient)))

	asm := c.NewAssembler()
	require.NoError(t, asm.SetCommand("pay"))
	require.NoError(t, asm.AddParameter("amount", "10"))
	_, err = c.Call(context.Background(), asm, client.CallOptions{})
	require.Error(t, err)

	assert.Equal(t, apierror.KindSignature, apierror.KindOf(err))
	code, _ := sess.LastError()
	assert.Equal(t, protocol.ServerCodeHashInvalid, code)
}

func TestE2E_UnknownToken(t *testing.T) {
	srv := newServer(t)
	sess, err := session.Configure(srv.URL+"/www.api", secret, "stranger", 5, 10)
	require.NoError(t, err)
	c := client.New(sess)

	asm := c.NewAssembler()
	require.NoError(t, asm.SetCommand("echo"))
	_, err = c.Call(context.Background(), asm, client.CallOptions{})
	require.Error(t, err)

	assert.Equal(t, apierror.KindRemote, apierror.KindOf(err))
	code, _ := sess.LastError()
	assert.Equal(t, protocol.ServerCodeTokenInvalid, code)
}

// TestE2E_ForgedResponse checks that a response hash from someone without
// the secret is refused
func TestE2E_ForgedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"balance":          "1000000",
			protocol.FieldHash: strings.Repeat("0", 64),
		})
	}))
	defer srv.Close()

	c, sess := newClient(t, srv.URL)
	asm := c.NewAssembler()
	require.NoError(t, asm.SetCommand("balance"))
	_, err := c.Call(context.Background(), asm, client.CallOptions{ReturnHash: true})
	require.Error(t, err)

	assert.Equal(t, apierror.KindSignature, apierror.KindOf(err))
	code, _ := sess.LastError()
	assert.Equal(t, apierror.CodeSignature, code)
}

func TestE2E_GinServer(t *testing.T) {
	gin.SetMode(gin.TestMode)

	auth := server.NewAuthMiddleware(verifier.NewSingleSecret(secret))
	router := gin.New()
	router.POST("/www.api", auth.Gin(), func(c *gin.Context) {
		vr, ok := server.GinVerifiedRequest(c)
		require.True(t, ok)
		_ = server.Respond(c.Writer, c.Request, map[string]any{"count": len(vr.Params), "ratio": 0.5})
	})
	srv := httptest.NewServer(router)
	defer srv.Close()

	c, _ := newClient(t, srv.URL+"/www.api")
	asm := c.NewAssembler()
	require.NoError(t, asm.SetCommand("stats"))
	require.NoError(t, asm.AddParameter("a", "1"))
	require.NoError(t, asm.AddParameter("b", "2"))

	result, err := c.Call(context.Background(), asm, client.CallOptions{ReturnHash: true, ReturnTimestamp: true})
	require.NoError(t, err)
	assert.Equal(t, json.Number("2"), result.Fields["count"])
	assert.Equal(t, json.Number("0.5"), result.Fields["ratio"])
	assert.True(t, bytes.Contains(result.Body, []byte(protocol.FieldTimestamp)))
}
