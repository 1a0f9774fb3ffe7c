package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify_EmptyTokenNoTraffic(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	t.Cleanup(srv.Close)

	v := NewVerifier(srv.URL, "chat-gateway", time.Second)
	_, err := v.Verify(context.Background(), "")
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Zero(t, hits)
}

func TestVerify_Accepted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok-1", r.Header.Get("token"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"app":"chat-gateway"}`, string(body))
		fmt.Fprint(w, `{"status":"success","data":{"name":"alice","email":"alice@example.com"}}`)
	}))
	t.Cleanup(srv.Close)

	v := NewVerifier(srv.URL, "chat-gateway", time.Second)
	id, err := v.Verify(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", id.Subject)
	assert.NotEmpty(t, id.Raw)
}

func TestVerify_Outcomes(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"http 401", http.StatusUnauthorized, `{"error":"bad token"}`, ErrUnauthorized},
		{"http 403", http.StatusForbidden, ``, ErrUnauthorized},
		{"body error field", http.StatusOK, `{"error":"token expired"}`, ErrUnauthorized},
		{"body failure status", http.StatusOK, `{"status":"failed"}`, ErrUnauthorized},
		{"status ok", http.StatusOK, `{"status":"ok"}`, nil},
		{"status valid mixed case", http.StatusOK, `{"status":"Valid"}`, nil},
		{"no status fields", http.StatusOK, `{"data":{"id":7}}`, nil},
		{"non-json body", http.StatusOK, `verified`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			t.Cleanup(srv.Close)

			v := NewVerifier(srv.URL, "chat-gateway", time.Second)
			id, err := v.Verify(context.Background(), "tok")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, json.RawMessage(tt.body), id.Raw)
		})
	}
}

func TestVerify_ServiceUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	v := NewVerifier(srv.URL, "chat-gateway", time.Second)
	_, err := v.Verify(context.Background(), "tok")
	require.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestVerify_NoEndpointConfigured(t *testing.T) {
	v := NewVerifier("", "chat-gateway", time.Second)
	_, err := v.Verify(context.Background(), "tok")
	require.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestSubjectFrom(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"name preferred", `{"data":{"name":"bob","email":"b@x.com","id":1}}`, "bob"},
		{"email fallback", `{"data":{"email":"b@x.com","id":1}}`, "b@x.com"},
		{"id fallback", `{"data":{"id":42}}`, "42"},
		{"empty", `{}`, ""},
		{"not json", `hello`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, subjectFrom(json.RawMessage(tt.raw)))
		})
	}
}
