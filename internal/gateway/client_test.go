package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/transcribe-hub/internal/config"
	"github.com/magabrotheeeer/transcribe-hub/internal/lib/errs"
	jwtmaker "github.com/magabrotheeeer/transcribe-hub/internal/lib/jwt"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	maker := jwtmaker.NewJWTMaker("test-secret", time.Hour)
	return NewClient(config.Gateway{
		GatewayBaseURL: server.URL,
		GatewayTimeout: timeout,
	}, maker)
}

func TestTranscribe_Success(t *testing.T) {
	client := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/transcriptions", r.URL.Path)
		require.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer "))

		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "rec-1", req.RecordingID)
		assert.Equal(t, "en", req.Language)
		assert.NotEmpty(t, req.AudioURL)

		w.WriteHeader(http.StatusAccepted)
	}, 5*time.Second)

	err := client.Transcribe(context.Background(), Request{
		JobID:       "job-1",
		RecordingID: "rec-1",
		AudioURL:    "https://blobs/download-url",
		Language:    "en",
		CallbackURL: "https://api/callbacks",
	})
	require.NoError(t, err)
}

func TestTranscribe_Rejected(t *testing.T) {
	client := newTestGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}, 5*time.Second)

	err := client.Transcribe(context.Background(), Request{RecordingID: "rec-1"})
	require.ErrorIs(t, err, errs.ErrGatewayRejected)
	assert.True(t, errs.Transient(err))
}

func TestTranscribe_Timeout(t *testing.T) {
	client := newTestGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusAccepted)
	}, 50*time.Millisecond)

	err := client.Transcribe(context.Background(), Request{RecordingID: "rec-1"})
	require.ErrorIs(t, err, errs.ErrGatewayTimeout)
	assert.True(t, errs.Transient(err))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"recording_id":"rec-1","duration_ms":61500}`)
	signature := Sign("callback-secret", body)

	assert.True(t, VerifySignature("callback-secret", body, signature))
	assert.False(t, VerifySignature("wrong-secret", body, signature))
	assert.False(t, VerifySignature("callback-secret", []byte(`tampered`), signature))
	assert.False(t, VerifySignature("callback-secret", body, ""))
}
