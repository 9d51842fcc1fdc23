package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hmaged/signfleet/internal/models"
)

func setupIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "setupID"), 10, 64)
}

func (a *API) ListSetups(w http.ResponseWriter, r *http.Request) {
	setups, err := a.setups.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if setups == nil {
		setups = []*models.SetupDetail{}
	}
	writeJSON(w, http.StatusOK, setups)
}

func (a *API) GetSetup(w http.ResponseWriter, r *http.Request) {
	setupID, err := setupIDParam(r)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid setup id")
		return
	}

	setup, err := a.setups.Get(r.Context(), setupID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, setup)
}

func (a *API) CreateSetup(w http.ResponseWriter, r *http.Request) {
	var input models.SetupInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.Name == "" {
		writeDetail(w, http.StatusBadRequest, "name is required")
		return
	}

	setup, err := a.setups.Create(r.Context(), &input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, setup)
}

func (a *API) UpdateSetup(w http.ResponseWriter, r *http.Request) {
	setupID, err := setupIDParam(r)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid setup id")
		return
	}

	var update models.SetupUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	setup, err := a.setups.Update(r.Context(), setupID, &update)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, setup)
}

func (a *API) DeleteSetup(w http.ResponseWriter, r *http.Request) {
	setupID, err := setupIDParam(r)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid setup id")
		return
	}

	if err := a.setups.Delete(r.Context(), setupID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"detail": "Setup " + strconv.FormatInt(setupID, 10) + " deleted successfully.",
	})
}

// GenerateUploadURL mints a pre-signed S3 PUT URL for direct media upload.
func (a *API) GenerateUploadURL(w http.ResponseWriter, r *http.Request) {
	if a.uploads == nil {
		writeDetail(w, http.StatusServiceUnavailable, "uploads are not configured")
		return
	}

	fileName := chi.URLParam(r, "fileName")
	if fileName == "" {
		writeDetail(w, http.StatusBadRequest, "file name is required")
		return
	}

	presigned, err := a.uploads.PresignUpload(r.Context(), fileName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, presigned)
}
