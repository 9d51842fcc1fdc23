package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmaged/signfleet/internal/realtime"
)

func TestSSEStream_Headers(t *testing.T) {
	rec := httptest.NewRecorder()

	_, err := newSSEStream(rec)
	require.NoError(t, err)

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "keep-alive", rec.Header().Get("Connection"))
	assert.True(t, rec.Flushed)
}

func TestSSEStream_WireFormat(t *testing.T) {
	rec := httptest.NewRecorder()
	stream, err := newSSEStream(rec)
	require.NoError(t, err)

	require.NoError(t, stream.Send(realtime.Frame{Event: "message", Data: `{"instruction":"update_setup"}`}))
	require.NoError(t, stream.Send(realtime.Frame{Event: "heartbeat", Data: "heartbeat"}))

	assert.Equal(t,
		"event: message\ndata: {\"instruction\":\"update_setup\"}\n\n"+
			"event: heartbeat\ndata: heartbeat\n\n",
		rec.Body.String())
}

// noFlushWriter hides the recorder's Flush method so the writer no longer
// satisfies http.Flusher.
type noFlushWriter struct {
	rec *httptest.ResponseRecorder
}

func (w noFlushWriter) Header() http.Header         { return w.rec.Header() }
func (w noFlushWriter) Write(b []byte) (int, error) { return w.rec.Write(b) }
func (w noFlushWriter) WriteHeader(status int)      { w.rec.WriteHeader(status) }

func TestNewSSEStream_RequiresFlusher(t *testing.T) {
	_, err := newSSEStream(noFlushWriter{rec: httptest.NewRecorder()})
	assert.ErrorIs(t, err, errStreamingUnsupported)
}
