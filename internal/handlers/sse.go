package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hmaged/signfleet/internal/realtime"
)

var errStreamingUnsupported = errors.New("streaming unsupported")

// sseStream renders realtime frames as server-sent events.
type sseStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEStream(w http.ResponseWriter) (*sseStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errStreamingUnsupported
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &sseStream{w: w, flusher: flusher}, nil
}

func (s *sseStream) Send(frame realtime.Frame) error {
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", frame.Event, frame.Data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
