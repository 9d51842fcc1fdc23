package models

import (
	"time"
)

type Device struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	Location string    `json:"location"`
	APIKey   string    `json:"-"`
	LastSeen time.Time `json:"last_seen"`
	SetupID  *int64    `json:"setup_id"`
}

// ActivationRequest is the admin-side payload binding a pending device to an
// activation code.
type ActivationRequest struct {
	Code     int64  `json:"code"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

// ActivationGrant is published once on the code topic when a device is
// registered; the awaiting client consumes it and detaches.
type ActivationGrant struct {
	Name   string `json:"name"`
	APIKey string `json:"api_key"`
}

type DeviceUpdate struct {
	Name     *string `json:"name"`
	Location *string `json:"location"`
	SetupID  *int64  `json:"setup_id"`
}

// DeviceRef is the compact device shape embedded in setup payloads.
type DeviceRef struct {
	ID   int64  `json:"id"`
	Data string `json:"data"`
}

// DeviceDetail is what a device fetches about itself after receiving an
// update_setup instruction.
type DeviceDetail struct {
	Name     string       `json:"name"`
	Location string       `json:"location"`
	Setup    *SetupDetail `json:"setup"`
}

type SnapshotRequest struct {
	URL string `json:"url"`
}
