package models

type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
)

// PresenceEntry is the payload broadcast on the devices:status topic for
// every online/offline transition.
type PresenceEntry struct {
	DeviceID int64          `json:"id"`
	Status   PresenceStatus `json:"status"`
}
