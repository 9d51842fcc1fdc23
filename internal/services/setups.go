package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hmaged/signfleet/internal/models"
	"github.com/hmaged/signfleet/internal/realtime"
	"github.com/hmaged/signfleet/internal/repositories"
)

// ErrSetupNameTaken means the requested setup name is already in use.
var ErrSetupNameTaken = errors.New("setup name already in use")

// ValidationError carries a caller-facing message about rejected setup input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

var dayNames = [7]string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

type SetupService struct {
	setups   repositories.SetupRepository
	devices  repositories.DeviceRepository
	notifier *realtime.InstructionSender
	log      *zap.Logger
}

func NewSetupService(
	setups repositories.SetupRepository,
	devices repositories.DeviceRepository,
	notifier *realtime.InstructionSender,
	log *zap.Logger,
) *SetupService {
	return &SetupService{setups: setups, devices: devices, notifier: notifier, log: log}
}

// Create validates and persists a new setup, then wakes its linked devices.
func (s *SetupService) Create(ctx context.Context, input *models.SetupInput) (*models.SetupDetail, error) {
	if _, err := s.setups.GetByName(ctx, input.Name); err == nil {
		return nil, fmt.Errorf("name %q: %w", input.Name, ErrSetupNameTaken)
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	if err := validateSetupInput(input); err != nil {
		return nil, err
	}

	setupID, err := s.setups.Create(ctx, input)
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyUpdate(ctx, input.Devices)

	return s.setups.GetByID(ctx, setupID)
}

func (s *SetupService) Get(ctx context.Context, id int64) (*models.SetupDetail, error) {
	return s.setups.GetByID(ctx, id)
}

func (s *SetupService) List(ctx context.Context) ([]*models.SetupDetail, error) {
	return s.setups.List(ctx)
}

// Update validates and applies a setup patch, then wakes every device linked
// to the setup afterwards (including just-added ones).
func (s *SetupService) Update(ctx context.Context, id int64, update *models.SetupUpdate) (*models.SetupDetail, error) {
	if err := validatePlaylists(update.PlaylistsToAdd); err != nil {
		return nil, err
	}
	for _, patch := range update.PlaylistsToUpdate {
		if err := validateTimeRange(patch.Name, patch.StartTime, patch.EndTime); err != nil {
			return nil, err
		}
	}

	if err := s.setups.Update(ctx, id, update); err != nil {
		return nil, err
	}

	detail, err := s.setups.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyUpdate(ctx, deviceIDs(detail.Devices))
	return detail, nil
}

// Delete wakes linked devices (they will refetch and find no setup), then
// removes the setup with its playlists and media.
func (s *SetupService) Delete(ctx context.Context, id int64) error {
	linked, err := s.devices.ListBySetupID(ctx, id)
	if err != nil {
		return err
	}

	ids := make([]int64, 0, len(linked))
	for _, device := range linked {
		ids = append(ids, device.ID)
	}
	s.notifier.NotifyUpdate(ctx, ids)

	return s.setups.Delete(ctx, id)
}

func deviceIDs(refs []models.DeviceRef) []int64 {
	ids := make([]int64, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.ID)
	}
	return ids
}

// validateSetupInput enforces the invariants of a new setup: at least one
// playlist, unique playlist names, each playlist non-empty with a valid
// HH:MM window, and no two playlists overlapping on the same weekday.
func validateSetupInput(input *models.SetupInput) error {
	if len(input.Playlists) == 0 {
		return invalid("playlists must not be empty")
	}

	seen := make(map[string]bool, len(input.Playlists))
	for _, playlist := range input.Playlists {
		if seen[playlist.Name] {
			return invalid("playlist name must be unique within a setup")
		}
		seen[playlist.Name] = true
	}

	return validatePlaylists(input.Playlists)
}

func validatePlaylists(playlists []models.PlaylistInput) error {
	for _, playlist := range playlists {
		if len(playlist.Images) == 0 && len(playlist.Videos) == 0 {
			return invalid("playlist %s must have at least one image or video", playlist.Name)
		}
		if err := validateTimeRange(playlist.Name, playlist.StartTime, playlist.EndTime); err != nil {
			return err
		}
	}
	return checkScheduleOverlap(playlists)
}

func validateTimeRange(name, start, end string) error {
	startTime, err := parseClock(start)
	if err != nil {
		return invalid("playlist %s start_time must be in HH:MM format", name)
	}
	endTime, err := parseClock(end)
	if err != nil {
		return invalid("playlist %s end_time must be in HH:MM format", name)
	}
	if !startTime.Before(endTime) {
		return invalid("playlist %s start_time must be before end_time", name)
	}
	return nil
}

// checkScheduleOverlap rejects playlists whose windows intersect on any day
// they are both scheduled.
func checkScheduleOverlap(playlists []models.PlaylistInput) error {
	for day := 0; day < 7; day++ {
		scheduled := make([]models.PlaylistInput, 0, len(playlists))
		for _, playlist := range playlists {
			if playlist.Days()[day] {
				scheduled = append(scheduled, playlist)
			}
		}

		for i := 0; i < len(scheduled); i++ {
			for j := i + 1; j < len(scheduled); j++ {
				if playlistsOverlap(scheduled[i], scheduled[j]) {
					return invalid("playlists '%s' and '%s' overlap on %s",
						scheduled[i].Name, scheduled[j].Name, dayNames[day])
				}
			}
		}
	}
	return nil
}

func playlistsOverlap(a, b models.PlaylistInput) bool {
	aStart, _ := parseClock(a.StartTime)
	aEnd, _ := parseClock(a.EndTime)
	bStart, _ := parseClock(b.StartTime)
	bEnd, _ := parseClock(b.EndTime)
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func parseClock(value string) (time.Time, error) {
	return time.Parse("15:04", value)
}
