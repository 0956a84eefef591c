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
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/sage-x-project/sage-www-go/pkg/apierror"
	"github.com/sage-x-project/sage-www-go/pkg/crypt"
	"github.com/sage-x-project/sage-www-go/pkg/protocol"
	"github.com/sage-x-project/sage-www-go/pkg/session"
	"github.com/sage-x-project/sage-www-go/pkg/signer"
)

// FileRef points at attachment content: a path read at AddFile time, or
// bytes supplied directly.
type FileRef struct {
	Path        string
	Content     []byte
	Filename    string
	ContentType string
}

// Assembler collects the parameters of one call. An Assembler is not safe
// for concurrent use; build one per call.
type Assembler struct {
	sess   *session.Session
	signer signer.Signer

	command         string
	returnHash      bool
	returnTimestamp bool
	returnType      string
	cacheTimeout    int
	minify          bool

	plain     map[string]string
	encrypted map[string]string
	files     map[string]Attachment
}

// NewAssembler creates an Assembler bound to sess
func NewAssembler(sess *session.Session) *Assembler {
	return &Assembler{
		sess:      sess,
		signer:    signer.NewDefaultSigner(),
		plain:     make(map[string]string),
		encrypted: make(map[string]string),
		files:     make(map[string]Attachment),
	}
}

// WithSigner replaces the signer
func (a *Assembler) WithSigner(s signer.Signer) *Assembler {
	if s != nil {
		a.signer = s
	}
	return a
}

// Session returns the bound session
func (a *Assembler) Session() *session.Session {
	return a.sess
}

// SetCommand sets the signed command field. The name is trimmed and
// lowercased.
func (a *Assembler) SetCommand(command string) error {
	c := strings.ToLower(strings.TrimSpace(command))
	if c == "" {
		return a.fail(apierror.New(apierror.KindConfig, "command cannot be empty"))
	}
	a.command = c
	return nil
}

// Command returns the command, or an empty string when none is set
func (a *Assembler) Command() string {
	return a.command
}

// SetReturnHash asks the server to sign its response
func (a *Assembler) SetReturnHash(on bool) {
	a.returnHash = on
}

// SetReturnTimestamp asks the server to timestamp its response
func (a *Assembler) SetReturnTimestamp(on bool) {
	a.returnTimestamp = on
}

// SetReturnType asks for a response format other than JSON. "json" or an
// empty string restores the default and omits the field.
func (a *Assembler) SetReturnType(returnType string) error {
	rt := strings.ToLower(strings.TrimSpace(returnType))
	if rt == protocol.DefaultReturnType {
		rt = ""
	}
	if strings.ContainsAny(rt, " \t\r\n") {
		return a.fail(apierror.New(apierror.KindConfig, "invalid return type %q", returnType))
	}
	a.returnType = rt
	return nil
}

// ReturnType returns the requested response format, "json" by default
func (a *Assembler) ReturnType() string {
	if a.returnType == "" {
		return protocol.DefaultReturnType
	}
	return a.returnType
}

// SetCacheTimeout lets the server cache the response for the given number
// of seconds. Zero disables caching and omits the field.
func (a *Assembler) SetCacheTimeout(seconds int) error {
	if seconds < 0 {
		return a.fail(apierror.New(apierror.KindConfig, "cache timeout cannot be negative, got %d", seconds))
	}
	a.cacheTimeout = seconds
	return nil
}

// SetMinify asks the server to minify its response
func (a *Assembler) SetMinify(on bool) {
	a.minify = on
}

// Reset drops every parameter and attachment so the Assembler can be
// reused. The command and the response options are kept.
func (a *Assembler) Reset() {
	a.plain = make(map[string]string)
	a.encrypted = make(map[string]string)
	a.files = make(map[string]Attachment)
	a.logf("Input data reset")
}

// AddParameter adds a plain parameter. Names are unique across the plain
// and encrypted channels.
func (a *Assembler) AddParameter(name, value string) error {
	if err := a.checkName(name); err != nil {
		return a.fail(err)
	}
	a.plain[name] = value
	return nil
}

// AddEncryptedParameter adds a parameter whose value is encrypted by Build
func (a *Assembler) AddEncryptedParameter(name, value string) error {
	if err := a.checkName(name); err != nil {
		return a.fail(err)
	}
	a.encrypted[name] = value
	return nil
}

// AddFile adds an attachment under field. Content behind ref.Path is read
// now and ref.Content is copied. A missing filename defaults to the path's
// base name and a missing content type is detected from the content.
// Filenames are reduced to their base name, which is all a multipart
// receiver sees.
func (a *Assembler) AddFile(field string, ref FileRef) error {
	if err := checkReserved(field); err != nil {
		return a.fail(err)
	}
	if _, dup := a.files[field]; dup {
		return a.fail(apierror.New(apierror.KindDuplicateKey, "file field %q already added", field))
	}

	content := bytes.Clone(ref.Content)
	filename := baseName(ref.Filename)
	if ref.Path != "" {
		data, err := os.ReadFile(ref.Path)
		if err != nil {
			return a.fail(apierror.Wrap(apierror.KindFileAccess, err, "cannot read attachment %q", field))
		}
		content = data
		if filename == "" {
			filename = filepath.Base(ref.Path)
		}
	} else if content == nil {
		return a.fail(apierror.New(apierror.KindFileAccess, "attachment %q has neither path nor content", field))
	}
	if filename == "" {
		filename = field
	}

	contentType := ref.ContentType
	if contentType == "" {
		contentType = mimetype.Detect(content).String()
	}

	sum := sha256.Sum256(content)
	a.files[field] = Attachment{
		Field:       field,
		Filename:    filename,
		ContentType: contentType,
		Content:     content,
		Digest:      hex.EncodeToString(sum[:]),
	}
	a.logf("Attached file %q as %s (%d bytes)", field, contentType, len(content))
	return nil
}

// AddFilePath is AddFile with only a path
func (a *Assembler) AddFilePath(field, path string) error {
	return a.AddFile(field, FileRef{Path: path})
}

// Build finalizes an Envelope: it takes the timestamp from the session
// clock, encrypts the encrypted channel with a key derived from the secret
// and that timestamp, then signs every field the request will carry.
func (a *Assembler) Build() (*Envelope, error) {
	if a.sess == nil {
		return nil, apierror.New(apierror.KindConfig, "assembler has no configured session")
	}

	apiToken := a.sess.APIToken()
	secret := a.sess.SecretKey()
	ts := a.sess.Now().Unix()

	fields := make(map[string]string, len(a.plain)+len(a.encrypted)+6)
	for k, v := range a.plain {
		fields[k] = v
	}

	if len(a.encrypted) > 0 {
		cipher, err := crypt.NewParameterCipher(secret, ts)
		if err != nil {
			return nil, a.fail(apierror.Wrap(apierror.KindEncryption, err, "cannot derive parameter key"))
		}
		for _, name := range sortedKeys(a.encrypted) {
			sealed, err := cipher.Seal(name, a.encrypted[name])
			if err != nil {
				return nil, a.fail(apierror.Wrap(apierror.KindEncryption, err, "cannot encrypt parameter %q", name))
			}
			fields[protocol.CryptField(name)] = sealed
		}
	}

	if a.command != "" {
		fields[protocol.FieldCommand] = a.command
	}
	if p := a.sess.Profile(); p != "" {
		fields[protocol.FieldProfile] = p
	}
	if a.returnHash {
		fields[protocol.FieldReturnHash] = "1"
	}
	if a.returnTimestamp {
		fields[protocol.FieldReturnTimestamp] = "1"
	}
	if a.returnType != "" {
		fields[protocol.FieldReturnType] = a.returnType
	}
	if a.cacheTimeout > 0 {
		fields[protocol.FieldCacheTimeout] = strconv.Itoa(a.cacheTimeout)
	}
	if a.minify {
		fields[protocol.FieldMinify] = "1"
	}
	fields[protocol.FieldTimestamp] = strconv.FormatInt(ts, 10)

	attachments := make([]Attachment, 0, len(a.files))
	for _, field := range sortedKeys(a.files) {
		attachments = append(attachments, a.files[field])
	}

	canonical := CanonicalPayload(fields, attachments)
	sig, err := a.signer.Sign(apiToken, ts, secret, canonical)
	if err != nil {
		return nil, a.fail(apierror.Wrap(apierror.KindConfig, err, "cannot sign request"))
	}
	fields[protocol.FieldHash] = sig

	env := &Envelope{
		endpoint:    a.sess.Endpoint(),
		apiToken:    apiToken,
		userAgent:   a.sess.UserAgent(),
		requestID:   uuid.NewString(),
		timestamp:   ts,
		signature:   sig,
		canonical:   canonical,
		fields:      fields,
		attachments: attachments,
	}
	a.logf("Built request %s at timestamp %d with %d fields and %d attachments",
		env.requestID, ts, len(fields), len(attachments))
	return env, nil
}

// CanonicalPayload returns the signed form of a request: body fields plus
// one www-file.<field> entry per attachment.
func CanonicalPayload(fields map[string]string, attachments []Attachment) string {
	if len(attachments) == 0 {
		return signer.Canonicalize(fields)
	}
	all := make(map[string]string, len(fields)+len(attachments))
	for k, v := range fields {
		all[k] = v
	}
	for _, att := range attachments {
		all[protocol.FileField(att.Field)] = att.Descriptor()
	}
	return signer.Canonicalize(all)
}

func (a *Assembler) checkName(name string) *apierror.Error {
	if err := checkReserved(name); err != nil {
		return err
	}
	if _, dup := a.plain[name]; dup {
		return apierror.New(apierror.KindDuplicateKey, "parameter %q already added", name)
	}
	if _, dup := a.encrypted[name]; dup {
		return apierror.New(apierror.KindDuplicateKey, "parameter %q already added as encrypted", name)
	}
	return nil
}

// baseName strips directories with either separator. An empty or
// separator-only name yields "".
func baseName(name string) string {
	if i := strings.LastIndexAny(name, "/\\"); i >= 0 {
		name = name[i+1:]
	}
	if name == "." || name == ".." {
		return ""
	}
	return name
}

func checkReserved(name string) *apierror.Error {
	if name == "" {
		return apierror.New(apierror.KindConfig, "parameter name cannot be empty")
	}
	if protocol.IsReserved(name) {
		return apierror.New(apierror.KindConfig, "parameter name %q uses the reserved %q prefix", name, protocol.ReservedPrefix)
	}
	return nil
}

func (a *Assembler) fail(err *apierror.Error) error {
	if a.sess != nil {
		a.sess.RecordError(err)
	}
	return err
}

func (a *Assembler) logf(format string, args ...any) {
	if a.sess != nil {
		a.sess.RecordLogf(format, args...)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
