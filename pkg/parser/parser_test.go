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

package parser

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sage-x-project/sage-www-go/pkg/apierror"
)

func TestJSONParser_Parse(t *testing.T) {
	p := NewJSONParser()

	fields, err := p.Parse([]byte(` {"name":"movie","count":12,"price":9.50,"tags":["a"],"ok":true} `))
	require.NoError(t, err)

	assert.Equal(t, "movie", fields["name"])
	assert.Equal(t, json.Number("12"), fields["count"])
	assert.Equal(t, json.Number("9.50"), fields["price"])
	assert.Equal(t, []any{"a"}, fields["tags"])
	assert.Equal(t, true, fields["ok"])
}

func TestJSONParser_Errors(t *testing.T) {
	p := NewJSONParser()

	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"whitespace", "  \n"},
		{"html error page", "<html><body>502 Bad Gateway</body></html>"},
		{"array", `[1,2,3]`},
		{"truncated", `{"name":"mov`},
		{"trailing data", `{"a":1}{"b":2}`},
		{"bare string", `"ok"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse([]byte(tt.body))
			require.Error(t, err)
			assert.ErrorIs(t, err, apierror.ErrParse)
			assert.Equal(t, apierror.CodeParse, apierror.As(err).Code)
		})
	}
}

func TestJSONParser_PreviewIsBounded(t *testing.T) {
	p := NewJSONParser()
	_, err := p.Parse([]byte(strings.Repeat("x", 1000)))
	require.Error(t, err)
	assert.Less(t, len(err.Error()), 200)
}
