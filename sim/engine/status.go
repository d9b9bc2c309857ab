package engine

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of an engine.
type Status int32

// The statuses an engine goes through.
const (
	StatusInit Status = iota
	StatusReady
	StatusRunning
	StatusPaused
	StatusTerminated
)

var statusNames = map[Status]string{
	StatusInit:       "Init",
	StatusReady:      "Ready",
	StatusRunning:    "Running",
	StatusPaused:     "Paused",
	StatusTerminated: "Terminated",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}

	return fmt.Sprintf("Status(%d)", int32(s))
}

// IsReachableFrom tells if an engine in status from can ever get to s.
// Terminated can be reached from anywhere and nothing else is reachable from
// it.
func (s Status) IsReachableFrom(from Status) bool {
	switch s {
	case StatusInit:
		return from == StatusInit
	case StatusReady:
		return from == StatusInit || from == StatusReady
	case StatusRunning, StatusPaused:
		return from != StatusTerminated
	case StatusTerminated:
		return true
	default:
		return false
	}
}

// ParseStatus converts a case-insensitive status name into a Status.
func ParseStatus(name string) (Status, error) {
	for s, n := range statusNames {
		if strings.EqualFold(n, name) {
			return s, nil
		}
	}

	return 0, fmt.Errorf("engine: unknown status %q", name)
}
