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

// Package parser turns raw response bodies into field maps.
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/sage-x-project/sage-www-go/pkg/apierror"
)

// Parser decodes a response body
type Parser interface {
	// Parse returns the top-level fields of body or a ParseError
	Parse(body []byte) (map[string]any, error)
}

// JSONParser parses JSON object bodies. Numbers are kept as json.Number
// so that response signatures can be recomputed over their exact text.
type JSONParser struct {
	// MaxPreview bounds the body excerpt quoted in error messages
	MaxPreview int
}

// NewJSONParser creates a JSONParser
func NewJSONParser() *JSONParser {
	return &JSONParser{MaxPreview: 64}
}

// Parse implements Parser
func (p *JSONParser) Parse(body []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, apierror.New(apierror.KindParse, "empty response body")
	}
	if trimmed[0] != '{' {
		return nil, apierror.New(apierror.KindParse, "response is not a JSON object: %q", p.preview(trimmed))
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, apierror.Wrap(apierror.KindParse, err, "malformed JSON response %q", p.preview(trimmed))
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, apierror.New(apierror.KindParse, "unexpected data after JSON response")
	}
	return fields, nil
}

func (p *JSONParser) preview(b []byte) string {
	limit := p.MaxPreview
	if limit <= 0 || len(b) <= limit {
		return string(b)
	}
	return string(b[:limit]) + "..."
}

var _ Parser = (*JSONParser)(nil)
