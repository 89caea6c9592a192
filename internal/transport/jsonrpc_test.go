package transport

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRequest(t *testing.T) {
	req, err := ParseRequest(strings.NewReader(`{"jsonrpc":"2.0","method":"projects.stats","params":{"id":"p1"},"id":7}`))
	require.NoError(t, err)
	require.Equal(t, "projects.stats", req.Method)
	require.Equal(t, json.RawMessage(`{"id":"p1"}`), req.Params)
	require.Equal(t, json.Number("7"), req.ID)
	require.False(t, req.IsNotification())

	req, err = ParseRequest(strings.NewReader(`{"jsonrpc":"2.0","method":"projects.getAll"}`))
	require.NoError(t, err)
	require.True(t, req.IsNotification())
}

func TestParseRequest_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"not json", `{"jsonrpc":`, ErrParse},
		{"empty", ``, ErrParse},
		{"missing method", `{"jsonrpc":"2.0","id":1}`, ErrInvalidRequest},
		{"wrong version", `{"jsonrpc":"1.0","method":"m","id":1}`, ErrInvalidRequest},
		{"batch", `[{"jsonrpc":"2.0","method":"m","id":1}]`, ErrInvalidRequest},
		{"object id", `{"jsonrpc":"2.0","method":"m","id":{"a":1}}`, ErrInvalidRequest},
		{"not an object", `"projects.getAll"`, ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRequest(strings.NewReader(tt.body))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewRequest(t *testing.T) {
	req, err := NewRequest(int64(3), "projects.delete", map[string]string{"id": "p1"})
	require.NoError(t, err)
	require.Equal(t, "2.0", req.JSONRPC)
	require.JSONEq(t, `{"id":"p1"}`, string(req.Params))

	req, err = NewRequest("a", "projects.getAll", nil)
	require.NoError(t, err)
	require.Nil(t, req.Params)

	_, err = NewRequest(1, "m", func() {})
	require.ErrorContains(t, err, "encoding m params")
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, "req-1", ErrApplication, "project not found", map[string]string{"code": "PROJECT_NOT_FOUND"})

	require.Equal(t, 200, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"jsonrpc":"2.0","error":{"code":-32000,"message":"project not found","data":{"code":"PROJECT_NOT_FOUND"}},"id":"req-1"}`, rec.Body.String())
}
