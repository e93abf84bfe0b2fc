package core

// Position is a lon/lat/elev triple as published to consumers.
type Position struct {
	Longitude float64 `json:"lon"`
	Latitude  float64 `json:"lat"`
	Elevation float64 `json:"elev"`
}

// PositionExtras carries the secondary reading values of a sample.
type PositionExtras struct {
	Accuracy float32 `json:"accuracy"`
	Speed    float32 `json:"speed"`
	Bearing  float32 `json:"bearing"`
}

// SatelliteInfo is the satellite diagnostics block of a snapshot.
type SatelliteInfo struct {
	Max       int `json:"max"`
	Visible   int `json:"visible"`
	UsedInFix int `json:"usedInFix"`
}

// AveragingState reports progress of an active averaging session.
type AveragingState struct {
	Position *Position `json:"position,omitempty"`
	Accuracy float32   `json:"accuracy"`
	Current  int       `json:"current"`
	Total    int       `json:"total"`
	Done     bool      `json:"done"`
}

// Snapshot is one atomic status broadcast. Every state change in the
// positioning engine republishes the whole thing; consumers read only
// the fields they care about, so optional parts are pointers and a nil
// must never crash a reader.
type Snapshot struct {
	Status       ServiceStatus  `json:"status"`
	Logging      LoggingStatus  `json:"logging"`
	CurrentLogID int64          `json:"currentLogId,omitempty"`

	Position *Position       `json:"position,omitempty"`
	Extras   *PositionExtras `json:"extras,omitempty"`
	TimeMs   int64           `json:"timeMs,omitempty"`

	Satellites *SatelliteInfo  `json:"satellites,omitempty"`
	Averaging  *AveragingState `json:"averaging,omitempty"`
}
