package model

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAcceptEncoding(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   []string
	}{
		{"empty", nil, nil},
		{"single", []string{"gzip"}, []string{"gzip"}},
		{"list keeps order", []string{"gzip, deflate, br"}, []string{"gzip", "deflate", "br"}},
		{"multiple headers", []string{"gzip", " deflate ;q=0.5"}, []string{"gzip", "deflate ;q=0.5"}},
		{"blank tokens dropped", []string{" , ,identity"}, []string{"identity"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAcceptEncoding(tt.values))
		})
	}
}

func TestNewExchange(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/Engine.svc/User/GetPermanentSession?x=1", http.NoBody)
	req.Header.Add("Accept-Encoding", "gzip, deflate")

	ex := NewExchange(req)

	assert.Equal(t, "/Engine.svc/User/GetPermanentSession", ex.Path)
	assert.Equal(t, http.MethodPost, ex.Method)
	assert.Equal(t, []string{"gzip", "deflate"}, ex.AcceptEncoding)
	assert.Equal(t, http.StatusOK, ex.Status)
	assert.Empty(t, ex.ContentType())

	body, err := ex.Materialize()
	require.NoError(t, err)
	assert.Empty(t, body)
}

func TestExchange_MaterializeIsRepeatable(t *testing.T) {
	ex := &Exchange{Header: make(http.Header), Body: BytesProducer([]byte("hello"))}

	first, err := ex.Materialize()
	require.NoError(t, err)
	second, err := ex.Materialize()
	require.NoError(t, err)

	assert.Equal(t, "hello", string(first))
	assert.Equal(t, first, second)
}

func TestExchange_MaterializeError(t *testing.T) {
	boom := errors.New("boom")
	ex := &Exchange{Body: func(io.Writer) error { return boom }}

	_, err := ex.Materialize()
	assert.ErrorIs(t, err, boom)
}
