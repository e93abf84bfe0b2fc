package core

// ServiceStatus is the overall positioning state published to consumers.
type ServiceStatus int

const (
	// StatusOff means the provider is switched off.
	StatusOff ServiceStatus = 0
	// StatusOnNotListening means the provider is on but no updates are requested.
	StatusOnNotListening ServiceStatus = 1
	// StatusListeningNoFix means updates are requested but there is no usable fix.
	StatusListeningNoFix ServiceStatus = 2
	// StatusHasFix means the current coordinates are trustworthy.
	StatusHasFix ServiceStatus = 3
)

func (s ServiceStatus) String() string {
	switch s {
	case StatusOff:
		return "off"
	case StatusOnNotListening:
		return "on_not_listening"
	case StatusListeningNoFix:
		return "listening_no_fix"
	case StatusHasFix:
		return "has_fix"
	default:
		return "unknown"
	}
}

// LoggingStatus reports whether a track-logging session is active.
type LoggingStatus int

const (
	LoggingOff LoggingStatus = 0
	LoggingOn  LoggingStatus = 1
)

func (s LoggingStatus) String() string {
	if s == LoggingOn {
		return "on"
	}
	return "off"
}

// ProviderEventKind classifies a provider status event.
type ProviderEventKind int

const (
	// EventStarted fires when the provider begins searching for satellites.
	EventStarted ProviderEventKind = iota + 1
	// EventStopped fires when the provider shuts down.
	EventStopped
	// EventFirstFix fires once when the first fix is acquired.
	EventFirstFix
	// EventSatelliteStatus fires periodically with satellite counts.
	EventSatelliteStatus
)
