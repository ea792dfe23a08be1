package enums

import "fmt"

// ServiceStatus tracks the lifecycle of a service record.
type ServiceStatus string

const (
	ServiceStatusPending    ServiceStatus = "pending"
	ServiceStatusInProgress ServiceStatus = "in_progress"
	ServiceStatusCompleted  ServiceStatus = "completed"
)

var validServiceStatuses = []ServiceStatus{
	ServiceStatusPending,
	ServiceStatusInProgress,
	ServiceStatusCompleted,
}

// String implements fmt.Stringer.
func (s ServiceStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ServiceStatus.
func (s ServiceStatus) IsValid() bool {
	for _, candidate := range validServiceStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseServiceStatus converts raw input into a ServiceStatus.
func ParseServiceStatus(value string) (ServiceStatus, error) {
	for _, candidate := range validServiceStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid service status %q", value)
}

// CanTransitionTo reports whether moving from s to next keeps the lifecycle
// moving forward. Completed is terminal.
func (s ServiceStatus) CanTransitionTo(next ServiceStatus) bool {
	if !next.IsValid() {
		return false
	}
	if s == next {
		return s != ServiceStatusCompleted
	}
	return serviceStatusRank(next) > serviceStatusRank(s) && s != ServiceStatusCompleted
}

func serviceStatusRank(s ServiceStatus) int {
	switch s {
	case ServiceStatusPending:
		return 0
	case ServiceStatusInProgress:
		return 1
	case ServiceStatusCompleted:
		return 2
	}
	return -1
}
