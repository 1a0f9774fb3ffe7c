// Package auth validates opaque bearer tokens against an external
// verification service before any session work begins.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mcpchat/gateway/internal/logging"
)

// ErrUnauthorized means the token is empty or the verification service
// rejected it. Connections failing this way are refused, never retried.
var ErrUnauthorized = errors.New("unauthorized")

// ErrServiceUnavailable means the verification service could not be
// reached or timed out.
var ErrServiceUnavailable = errors.New("verification service unavailable")

// Identity is the opaque record returned for an accepted token. It is used
// only for logging and auditing; it does not gate individual tool calls.
type Identity struct {
	// Subject is a best-effort display handle pulled from the response.
	Subject string
	// Raw is the verification response body, retained for audit logs.
	Raw json.RawMessage
}

// Verifier checks bearer tokens against the verification endpoint.
type Verifier struct {
	url  string
	app  string
	http *http.Client
	log  zerolog.Logger
}

// NewVerifier creates a Verifier posting to url with the given app label.
func NewVerifier(url, app string, timeout time.Duration) *Verifier {
	return &Verifier{
		url:  url,
		app:  app,
		http: &http.Client{Timeout: timeout},
		log:  logging.Component("auth"),
	}
}

// Verify validates token. An empty token fails immediately without any
// network traffic. The service receives the token as a header and the app
// label as the JSON body; acceptance requires a 2xx status whose body does
// not signal failure through its status/error fields.
func (v *Verifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrUnauthorized)
	}
	if v.url == "" {
		return nil, fmt.Errorf("%w: no verification endpoint configured", ErrServiceUnavailable)
	}

	body, err := json.Marshal(map[string]string{"app": v.app})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("token", token)

	resp, err := v.http.Do(req)
	if err != nil {
		v.log.Warn().Err(err).Msg("verification service unreachable")
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrServiceUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: verification returned HTTP %d", ErrUnauthorized, resp.StatusCode)
	}

	// A success-shaped response can still carry a failure in its body.
	var outcome struct {
		Status  string          `json:"status"`
		Error   string          `json:"error"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &outcome); err == nil {
		if outcome.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrUnauthorized, outcome.Error)
		}
		if outcome.Status != "" && !successStatus(outcome.Status) {
			return nil, fmt.Errorf("%w: verification status %q", ErrUnauthorized, outcome.Status)
		}
	}

	return &Identity{Subject: subjectFrom(raw), Raw: raw}, nil
}

// successStatus accepts the status spellings the service is known to emit.
func successStatus(status string) bool {
	switch strings.ToLower(status) {
	case "success", "ok", "valid", "active":
		return true
	}
	return false
}

// subjectFrom pulls a display handle out of common response shapes.
func subjectFrom(raw json.RawMessage) string {
	var body struct {
		Data struct {
			Name  string `json:"name"`
			Email string `json:"email"`
			ID    any    `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	switch {
	case body.Data.Name != "":
		return body.Data.Name
	case body.Data.Email != "":
		return body.Data.Email
	case body.Data.ID != nil:
		return fmt.Sprintf("%v", body.Data.ID)
	}
	return ""
}
