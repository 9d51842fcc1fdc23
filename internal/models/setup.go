package models

type Setup struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Playlist struct {
	ID        int64  `json:"id"`
	SetupID   int64  `json:"-"`
	Name      string `json:"name"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Monday    bool   `json:"monday"`
	Tuesday   bool   `json:"tuesday"`
	Wednesday bool   `json:"wednesday"`
	Thursday  bool   `json:"thursday"`
	Friday    bool   `json:"friday"`
	Saturday  bool   `json:"saturday"`
	Sunday    bool   `json:"sunday"`
}

type Image struct {
	ID         int64  `json:"id"`
	PlaylistID int64  `json:"-"`
	URL        string `json:"url"`
	Duration   int    `json:"duration"`
}

type Video struct {
	ID         int64  `json:"id"`
	PlaylistID int64  `json:"-"`
	URL        string `json:"url"`
}

// PlaylistDetail is a playlist with its media expanded.
type PlaylistDetail struct {
	Playlist
	Images []Image `json:"images"`
	Videos []Video `json:"videos"`
}

// SetupDetail is the full setup payload served to admins and devices.
type SetupDetail struct {
	ID        int64            `json:"id"`
	Name      string           `json:"name"`
	Devices   []DeviceRef      `json:"devices"`
	Playlists []PlaylistDetail `json:"data"`
}

// Input shapes

type ImageInput struct {
	URL      string `json:"url"`
	Duration int    `json:"duration"`
}

type PlaylistInput struct {
	Name      string       `json:"name"`
	StartTime string       `json:"start_time"`
	EndTime   string       `json:"end_time"`
	Monday    bool         `json:"monday"`
	Tuesday   bool         `json:"tuesday"`
	Wednesday bool         `json:"wednesday"`
	Thursday  bool         `json:"thursday"`
	Friday    bool         `json:"friday"`
	Saturday  bool         `json:"saturday"`
	Sunday    bool         `json:"sunday"`
	Images    []ImageInput `json:"images"`
	Videos    []string     `json:"videos"`
}

type SetupInput struct {
	Name      string          `json:"name"`
	Playlists []PlaylistInput `json:"playlists"`
	Devices   []int64         `json:"devices"`
}

// PlaylistPatch edits an existing playlist in place.
type PlaylistPatch struct {
	ID             int64        `json:"id"`
	Name           string       `json:"name"`
	StartTime      string       `json:"start_time"`
	EndTime        string       `json:"end_time"`
	Monday         bool         `json:"monday"`
	Tuesday        bool         `json:"tuesday"`
	Wednesday      bool         `json:"wednesday"`
	Thursday       bool         `json:"thursday"`
	Friday         bool         `json:"friday"`
	Saturday       bool         `json:"saturday"`
	Sunday         bool         `json:"sunday"`
	ImagesToAdd    []ImageInput `json:"images_to_add"`
	ImagesToDelete []int64      `json:"images_to_delete"`
	VideosToAdd    []string     `json:"videos_to_add"`
	VideosToDelete []int64      `json:"videos_to_delete"`
}

type SetupUpdate struct {
	Name              *string         `json:"name"`
	PlaylistsToAdd    []PlaylistInput `json:"playlists_to_add"`
	PlaylistsToUpdate []PlaylistPatch `json:"playlists_to_update"`
	PlaylistsToDelete []int64         `json:"playlists_to_delete"`
	DevicesToAdd      []int64         `json:"devices_to_add"`
	DevicesToRemove   []int64         `json:"devices_to_remove"`
}

// Days enumerates the schedule flags of a playlist in week order.
func (p PlaylistInput) Days() [7]bool {
	return [7]bool{p.Monday, p.Tuesday, p.Wednesday, p.Thursday, p.Friday, p.Saturday, p.Sunday}
}
