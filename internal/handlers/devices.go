package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hmaged/signfleet/internal/models"
	"github.com/hmaged/signfleet/internal/repositories"
)

func deviceIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "deviceID"), 10, 64)
}

// ActivateDevice fulfills an awaiting activation code: registers the device
// and hands the new credential to the waiting client over the code topic.
func (a *API) ActivateDevice(w http.ResponseWriter, r *http.Request) {
	var req models.ActivationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Code < 100_000_000 || req.Code > 999_999_999 {
		writeDetail(w, http.StatusBadRequest, "name and a 9-digit code are required")
		return
	}

	device, err := a.activation.Fulfill(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, device)
}

func (a *API) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := a.devices.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if devices == nil {
		devices = []*models.Device{}
	}
	writeJSON(w, http.StatusOK, devices)
}

func (a *API) GetDevice(w http.ResponseWriter, r *http.Request) {
	deviceID, err := deviceIDParam(r)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid device id")
		return
	}

	device, err := a.devices.GetByID(r.Context(), deviceID)
	if errors.Is(err, repositories.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "Device with id %d not found", deviceID)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, device)
}

func (a *API) UpdateDevice(w http.ResponseWriter, r *http.Request) {
	deviceID, err := deviceIDParam(r)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid device id")
		return
	}

	var update models.DeviceUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	device, err := a.devices.GetByID(r.Context(), deviceID)
	if errors.Is(err, repositories.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "Device %d not found", deviceID)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	if update.Name != nil && *update.Name != device.Name {
		if _, err := a.devices.GetByName(r.Context(), *update.Name); err == nil {
			writeDetail(w, http.StatusConflict, "Device name %s already in use", *update.Name)
			return
		} else if !errors.Is(err, repositories.ErrNotFound) {
			writeError(w, err)
			return
		}
		device.Name = *update.Name
	}
	if update.Location != nil {
		device.Location = *update.Location
	}
	if update.SetupID != nil {
		if _, err := a.setups.Get(r.Context(), *update.SetupID); err != nil {
			writeError(w, err)
			return
		}
		device.SetupID = update.SetupID
	}

	if err := a.devices.Update(r.Context(), device); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, device)
}

func (a *API) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	deviceID, err := deviceIDParam(r)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid device id")
		return
	}

	err = a.devices.Delete(r.Context(), deviceID)
	if errors.Is(err, repositories.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "Device %d not found", deviceID)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"detail": "Device " + strconv.FormatInt(deviceID, 10) + " deleted successfully.",
	})
}

// GetCurrentDevice returns the calling device with its full setup payload;
// devices call this after any instruction to refetch authoritative state.
func (a *API) GetCurrentDevice(w http.ResponseWriter, r *http.Request) {
	device := deviceFrom(r.Context())

	detail := models.DeviceDetail{
		Name:     device.Name,
		Location: device.Location,
	}

	if device.SetupID != nil {
		setup, err := a.setups.Get(r.Context(), *device.SetupID)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			writeError(w, err)
			return
		}
		detail.Setup = setup
	}

	writeJSON(w, http.StatusOK, detail)
}

// StreamInstructions attaches the calling device's long-lived instruction
// stream: presence goes online, instructions and heartbeats interleave until
// the client disconnects.
func (a *API) StreamInstructions(w http.ResponseWriter, r *http.Request) {
	device := deviceFrom(r.Context())

	stream, err := newSSEStream(w)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	if err := a.sessions.Run(r.Context(), device, stream.Send); err != nil {
		a.log.Warn("device session ended abnormally",
			zap.Int64("device_id", device.ID), zap.Error(err))
	}
}

// StreamDeviceStatus streams live online/offline transitions for the whole
// fleet, preceded by a snapshot of currently online devices.
func (a *API) StreamDeviceStatus(w http.ResponseWriter, r *http.Request) {
	stream, err := newSSEStream(w)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	if err := a.statusFeed.Observe(r.Context(), stream.Send); err != nil {
		a.log.Warn("status stream ended abnormally", zap.Error(err))
	}
}

// SendSnapshot pushes a take-snapshot instruction to one online device.
func (a *API) SendSnapshot(w http.ResponseWriter, r *http.Request) {
	deviceID, err := deviceIDParam(r)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid device id")
		return
	}

	var req models.SnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeDetail(w, http.StatusBadRequest, "url is required")
		return
	}

	if err := a.sender.SendSnapshot(r.Context(), deviceID, req.URL); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"detail": "Instruction sent successfully"})
}
