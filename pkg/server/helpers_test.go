package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/sage-x-project/sage-www-go/pkg/protocol"
	"github.com/sage-x-project/sage-www-go/pkg/request"
	"github.com/sage-x-project/sage-www-go/pkg/transport"
)

func transportBody(env *request.Envelope) (io.Reader, string, error) {
	return transport.EncodeBody(env)
}

// formRequest builds an unsigned urlencoded request carrying the test token
func formRequest(fields map[string]string) *http.Request {
	values := url.Values{}
	for k, v := range fields {
		values.Set(k, v)
	}
	req := formRequestValues(values)
	req.Header.Set(protocol.HeaderToken, testToken)
	return req
}

func formRequestValues(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/www", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}
