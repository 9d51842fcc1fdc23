package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// IssueCode hands out the next unique 9-digit activation code.
func (a *API) IssueCode(w http.ResponseWriter, r *http.Request) {
	code, err := a.codes.Next(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"code": code})
}

// AwaitActivation streams the activation handshake for a code: heartbeats
// until the registration grant arrives, then one message and the stream ends.
func (a *API) AwaitActivation(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.ParseInt(chi.URLParam(r, "code"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid activation code")
		return
	}

	// Reject claimed codes before committing to a stream response.
	if err := a.activation.Available(r.Context(), code); err != nil {
		writeError(w, err)
		return
	}

	stream, err := newSSEStream(w)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	if err := a.activation.Await(r.Context(), code, stream.Send); err != nil {
		// Headers are already sent; nothing left to do but log.
		a.log.Warn("activation stream ended abnormally", zap.Int64("code", code), zap.Error(err))
	}
}
