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

package request

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sage-x-project/sage-www-go/pkg/apierror"
	"github.com/sage-x-project/sage-www-go/pkg/clock"
	"github.com/sage-x-project/sage-www-go/pkg/crypt"
	"github.com/sage-x-project/sage-www-go/pkg/protocol"
	"github.com/sage-x-project/sage-www-go/pkg/session"
	"github.com/sage-x-project/sage-www-go/pkg/signer"
	"github.com/sage-x-project/sage-www-go/pkg/verifier"
)

var hexSignature = regexp.MustCompile(`^[0-9a-f]{64}$`)

func newSession(t *testing.T, opts ...session.Option) *session.Session {
	t.Helper()
	sess, err := session.Configure("https://api.example.com/www.api", "s3cr3t", "tok123", 10, 10, opts...)
	require.NoError(t, err)
	return sess
}

func TestBuild_EndToEnd(t *testing.T) {
	sess := newSession(t)
	start := time.Now()

	asm := NewAssembler(sess)
	require.NoError(t, asm.AddParameter("cmd", "echo"))

	env, err := asm.Build()
	require.NoError(t, err)

	assert.Regexp(t, hexSignature, env.Signature())
	assert.InDelta(t, start.Unix(), env.Timestamp(), 1)
	assert.Equal(t, "tok123", env.APIToken())
	assert.Equal(t, "https://api.example.com/www.api", env.Endpoint())
	assert.NotEmpty(t, env.RequestID())

	fields := env.Fields()
	assert.Equal(t, "echo", fields["cmd"])
	assert.Equal(t, strconv.FormatInt(env.Timestamp(), 10), fields[protocol.FieldTimestamp])
	assert.Equal(t, env.Signature(), fields[protocol.FieldHash])

	// the signature covers exactly the fields sent
	want, err := signer.NewDefaultSigner().Sign("tok123", env.Timestamp(), "s3cr3t", signer.Canonicalize(fields))
	require.NoError(t, err)
	assert.Equal(t, want, env.Signature())
	assert.NoError(t, env.SelfCheck(verifier.NewDefaultVerifier(nil), "s3cr3t", time.Now(), 10*time.Second))
}

func TestBuild_InsertionOrderIndependent(t *testing.T) {
	mock := clock.NewMock(time.Unix(1700000000, 0))
	sess := newSession(t, session.WithClock(mock))

	a1 := NewAssembler(sess)
	require.NoError(t, a1.AddParameter("a", "1"))
	require.NoError(t, a1.AddParameter("b", "2"))
	require.NoError(t, a1.AddParameter("c", "3"))

	a2 := NewAssembler(sess)
	require.NoError(t, a2.AddParameter("c", "3"))
	require.NoError(t, a2.AddParameter("a", "1"))
	require.NoError(t, a2.AddParameter("b", "2"))

	e1, err := a1.Build()
	require.NoError(t, err)
	e2, err := a2.Build()
	require.NoError(t, err)

	assert.Equal(t, e1.CanonicalPayload(), e2.CanonicalPayload())
	assert.Equal(t, e1.Signature(), e2.Signature())
	assert.NotEqual(t, e1.RequestID(), e2.RequestID())
}

func TestAddParameter_Duplicate(t *testing.T) {
	sess := newSession(t)
	asm := NewAssembler(sess)

	require.NoError(t, asm.AddParameter("x", "1"))
	err := asm.AddParameter("x", "2")
	require.Error(t, err)
	assert.ErrorIs(t, err, apierror.ErrDuplicateKey)

	env, err := asm.Build()
	require.NoError(t, err)
	v, _ := env.Field("x")
	assert.Equal(t, "1", v, "first value is unchanged")

	code, _ := sess.LastError()
	assert.Equal(t, apierror.CodeDuplicateKey, code)
}

func TestAddEncryptedParameter_CrossChannelDuplicate(t *testing.T) {
	asm := NewAssembler(newSession(t))

	require.NoError(t, asm.AddParameter("x", "1"))
	assert.ErrorIs(t, asm.AddEncryptedParameter("x", "2"), apierror.ErrDuplicateKey)

	require.NoError(t, asm.AddEncryptedParameter("y", "1"))
	assert.ErrorIs(t, asm.AddParameter("y", "2"), apierror.ErrDuplicateKey)
	assert.ErrorIs(t, asm.AddEncryptedParameter("y", "3"), apierror.ErrDuplicateKey)
}

func TestAddParameter_ReservedAndEmpty(t *testing.T) {
	asm := NewAssembler(newSession(t))

	for _, name := range []string{"www-hash", "www-timestamp", "WWW-command", "www-crypt.x", ""} {
		err := asm.AddParameter(name, "v")
		assert.ErrorIs(t, err, apierror.ErrConfig, name)
		err = asm.AddEncryptedParameter(name, "v")
		assert.ErrorIs(t, err, apierror.ErrConfig, name)
	}
	assert.ErrorIs(t, asm.AddFile("www-file.x", FileRef{Content: []byte("x")}), apierror.ErrConfig)
}

func TestBuild_EncryptedParameters(t *testing.T) {
	sess := newSession(t)
	asm := NewAssembler(sess)
	require.NoError(t, asm.AddEncryptedParameter("email", "alice@example.com"))

	env, err := asm.Build()
	require.NoError(t, err)

	_, plain := env.Field("email")
	assert.False(t, plain, "encrypted value is never sent under its own name")

	sealed, ok := env.Field(protocol.CryptField("email"))
	require.True(t, ok)
	assert.NotContains(t, sealed, "alice")

	c, err := crypt.NewParameterCipher("s3cr3t", env.Timestamp())
	require.NoError(t, err)
	value, err := c.Open("email", sealed)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", value)

	// ciphertext is signed
	assert.Contains(t, env.CanonicalPayload(), "www-crypt.email=")
}

func TestBuild_EncryptionDiffersAcrossTimestamps(t *testing.T) {
	mock := clock.NewMock(time.Unix(1700000000, 0))
	sess := newSession(t, session.WithClock(mock))

	asm := NewAssembler(sess)
	require.NoError(t, asm.AddEncryptedParameter("email", "alice@example.com"))

	e1, err := asm.Build()
	require.NoError(t, err)
	mock.Advance(time.Second)
	e2, err := asm.Build()
	require.NoError(t, err)

	s1, _ := e1.Field(protocol.CryptField("email"))
	s2, _ := e2.Field(protocol.CryptField("email"))
	assert.NotEqual(t, s1, s2)

	c2, err := crypt.NewParameterCipher("s3cr3t", e2.Timestamp())
	require.NoError(t, err)
	_, err = c2.Open("email", s1)
	assert.ErrorIs(t, err, crypt.ErrDecryptionFailed)
}

func TestBuild_ProtocolFields(t *testing.T) {
	sess := newSession(t, session.WithProfile("mobile"))
	asm := NewAssembler(sess)

	require.NoError(t, asm.SetCommand("  Get-Movie "))
	asm.SetReturnHash(true)
	asm.SetReturnTimestamp(true)

	env, err := asm.Build()
	require.NoError(t, err)

	fields := env.Fields()
	assert.Equal(t, "get-movie", fields[protocol.FieldCommand])
	assert.Equal(t, "mobile", fields[protocol.FieldProfile])
	assert.Equal(t, "1", fields[protocol.FieldReturnHash])
	assert.Equal(t, "1", fields[protocol.FieldReturnTimestamp])

	assert.ErrorIs(t, asm.SetCommand("   "), apierror.ErrConfig)
	assert.Equal(t, "get-movie", asm.Command())
}

func TestAddFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello attachment\n"), 0o600))

	sess := newSession(t)
	asm := NewAssembler(sess)

	require.NoError(t, asm.AddFilePath("notes", path))
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	require.NoError(t, asm.AddFile("avatar", FileRef{Content: png}))
	require.NoError(t, asm.AddFile("doc", FileRef{Content: []byte("{}"), Filename: "d.json", ContentType: "application/json"}))

	env, err := asm.Build()
	require.NoError(t, err)
	require.True(t, env.HasAttachments())

	atts := env.Attachments()
	require.Len(t, atts, 3)
	assert.Equal(t, []string{"avatar", "doc", "notes"}, []string{atts[0].Field, atts[1].Field, atts[2].Field})

	assert.Equal(t, "avatar", atts[0].Filename)
	assert.Equal(t, "image/png", atts[0].ContentType)
	assert.Equal(t, "d.json", atts[1].Filename)
	assert.Equal(t, "application/json", atts[1].ContentType)
	assert.Equal(t, "notes.txt", atts[2].Filename)
	assert.Contains(t, atts[2].ContentType, "text/plain")
	assert.Len(t, atts[2].Digest, 64)

	// attachments are part of the signed payload, not the body
	_, inBody := env.Field(protocol.FileField("notes"))
	assert.False(t, inBody)
	assert.Contains(t, env.CanonicalPayload(), "www-file.notes=notes.txt%3B")
	assert.NoError(t, env.SelfCheck(verifier.NewDefaultVerifier(nil), "s3cr3t", time.Now(), 10*time.Second))
}

func TestAddFile_Failures(t *testing.T) {
	sess := newSession(t)
	asm := NewAssembler(sess)

	err := asm.AddFilePath("missing", filepath.Join(t.TempDir(), "nope.bin"))
	assert.ErrorIs(t, err, apierror.ErrFileAccess)
	code, _ := sess.LastError()
	assert.Equal(t, apierror.CodeFileAccess, code)

	assert.ErrorIs(t, asm.AddFile("empty", FileRef{}), apierror.ErrFileAccess)

	require.NoError(t, asm.AddFile("f", FileRef{Content: []byte("a")}))
	assert.ErrorIs(t, asm.AddFile("f", FileRef{Content: []byte("b")}), apierror.ErrDuplicateKey)

	// file fields do not collide with parameters
	require.NoError(t, asm.AddParameter("f", "value"))
}

func TestBuild_TamperedAttachmentFailsSelfCheck(t *testing.T) {
	asm := NewAssembler(newSession(t))
	require.NoError(t, asm.AddFile("f", FileRef{Content: []byte("original")}))

	env, err := asm.Build()
	require.NoError(t, err)

	env.attachments[0].Digest = "0000"
	err = env.SelfCheck(verifier.NewDefaultVerifier(nil), "s3cr3t", time.Now(), 10*time.Second)
	assert.ErrorIs(t, err, apierror.ErrSignature)
}

func TestBuild_NoSession(t *testing.T) {
	asm := NewAssembler(nil)
	require.NoError(t, asm.AddParameter("x", "1"))

	_, err := asm.Build()
	assert.ErrorIs(t, err, apierror.ErrConfig)
}

func TestBuild_UsesRotatedToken(t *testing.T) {
	sess := newSession(t)
	require.NoError(t, sess.RotateToken("rotated"))

	env, err := NewAssembler(sess).Build()
	require.NoError(t, err)
	assert.Equal(t, "rotated", env.APIToken())
}

func TestEnvelope_AccessorsReturnCopies(t *testing.T) {
	asm := NewAssembler(newSession(t))
	require.NoError(t, asm.AddParameter("x", "1"))
	require.NoError(t, asm.AddFile("f", FileRef{Content: []byte("a")}))
	env, err := asm.Build()
	require.NoError(t, err)

	fields := env.Fields()
	fields["x"] = "2"
	v, _ := env.Field("x")
	assert.Equal(t, "1", v)

	atts := env.Attachments()
	atts[0].Filename = "changed"
	assert.Equal(t, "f", env.Attachments()[0].Filename)
}

func TestBuild_ResponseOptions(t *testing.T) {
	asm := NewAssembler(newSession(t))

	// defaults are omitted
	require.NoError(t, asm.SetReturnType(" JSON "))
	require.NoError(t, asm.SetCacheTimeout(0))
	asm.SetMinify(false)
	env, err := asm.Build()
	require.NoError(t, err)
	fields := env.Fields()
	assert.NotContains(t, fields, protocol.FieldReturnType)
	assert.NotContains(t, fields, protocol.FieldCacheTimeout)
	assert.NotContains(t, fields, protocol.FieldMinify)
	assert.Equal(t, protocol.DefaultReturnType, asm.ReturnType())

	require.NoError(t, asm.SetReturnType("XML"))
	require.NoError(t, asm.SetCacheTimeout(60))
	asm.SetMinify(true)
	env, err = asm.Build()
	require.NoError(t, err)
	fields = env.Fields()
	assert.Equal(t, "xml", fields[protocol.FieldReturnType])
	assert.Equal(t, "60", fields[protocol.FieldCacheTimeout])
	assert.Equal(t, "1", fields[protocol.FieldMinify])
	assert.NoError(t, env.SelfCheck(verifier.NewDefaultVerifier(nil), "s3cr3t", time.Now(), 10*time.Second))

	assert.ErrorIs(t, asm.SetCacheTimeout(-1), apierror.ErrConfig)
	assert.ErrorIs(t, asm.SetReturnType("x ml"), apierror.ErrConfig)
	assert.Equal(t, "xml", asm.ReturnType())
}

func TestAssembler_Reset(t *testing.T) {
	asm := NewAssembler(newSession(t))
	require.NoError(t, asm.SetCommand("upload"))
	asm.SetMinify(true)
	require.NoError(t, asm.AddParameter("x", "1"))
	require.NoError(t, asm.AddEncryptedParameter("pin", "1234"))
	require.NoError(t, asm.AddFile("f", FileRef{Content: []byte("a")}))

	asm.Reset()

	// names are free again after a reset
	require.NoError(t, asm.AddParameter("pin", "2"))
	env, err := asm.Build()
	require.NoError(t, err)
	fields := env.Fields()
	assert.NotContains(t, fields, "x")
	assert.NotContains(t, fields, protocol.CryptField("pin"))
	assert.Equal(t, "2", fields["pin"])
	assert.False(t, env.HasAttachments())
	assert.Equal(t, "upload", fields[protocol.FieldCommand])
	assert.Equal(t, "1", fields[protocol.FieldMinify])
}

func TestAddFile_FilenameReducedToBase(t *testing.T) {
	tests := []struct {
		given string
		want  string
	}{
		{"reports/q1.txt", "q1.txt"},
		{`C:\reports\q1.txt`, "q1.txt"},
		{"/abs/path/q1.txt", "q1.txt"},
		{"q1.txt", "q1.txt"},
		{"dir/", "f"},
		{"..", "f"},
	}
	for _, tt := range tests {
		t.Run(tt.given, func(t *testing.T) {
			asm := NewAssembler(newSession(t))
			require.NoError(t, asm.AddFile("f", FileRef{Content: []byte("hello"), Filename: tt.given}))
			env, err := asm.Build()
			require.NoError(t, err)
			assert.Equal(t, tt.want, env.Attachments()[0].Filename)
		})
	}
}

func TestAttachment_DescriptorUnambiguous(t *testing.T) {
	a := Attachment{Filename: "a;b", ContentType: "c", Digest: "d"}
	b := Attachment{Filename: "a", ContentType: "b;c", Digest: "d"}
	assert.NotEqual(t, a.Descriptor(), b.Descriptor())
	assert.Equal(t, "a%3Bb;c;d", a.Descriptor())
}

func TestAddFile_ContentCopied(t *testing.T) {
	asm := NewAssembler(newSession(t))
	buf := []byte("original")
	require.NoError(t, asm.AddFile("f", FileRef{Content: buf, ContentType: "text/plain"}))
	copy(buf, "tampered")

	env, err := asm.Build()
	require.NoError(t, err)
	assert.Equal(t, "original", string(env.Attachments()[0].Content))

	env.Attachments()[0].Content[0] = 'X'
	assert.Equal(t, "original", string(env.Attachments()[0].Content))
	assert.NoError(t, env.SelfCheck(verifier.NewDefaultVerifier(nil), "s3cr3t", time.Now(), 10*time.Second))
}
