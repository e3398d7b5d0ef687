// Package domain provides core business rules for the leads bounded context.
package domain

import (
	"fmt"

	"homeaccess_backend/platform/apperr"
)

// Status is the marketplace status of a lead.
type Status string

const (
	StatusAvailable  Status = "AVAILABLE"
	StatusLocked     Status = "LOCKED"
	StatusPurchased  Status = "PURCHASED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusArchived   Status = "ARCHIVED"
)

// terminalStatuses are statuses a lead never leaves.
var terminalStatuses = map[Status]bool{
	StatusCompleted: true,
	StatusArchived:  true,
}

// transitions is the full lead state machine. ARCHIVED is reachable from
// every non-terminal status; LOCKED -> AVAILABLE is the lock release.
var transitions = map[Status][]Status{
	StatusAvailable:  {StatusLocked, StatusArchived},
	StatusLocked:     {StatusPurchased, StatusAvailable, StatusArchived},
	StatusPurchased:  {StatusInProgress, StatusArchived},
	StatusInProgress: {StatusCompleted, StatusArchived},
}

// coordinatorTransitions carry lock bookkeeping and are only applied by the
// lock/purchase coordinator, never by a plain status update.
var coordinatorTransitions = map[[2]Status]bool{
	{StatusAvailable, StatusLocked}: true,
	{StatusLocked, StatusPurchased}: true,
	{StatusLocked, StatusAvailable}: true,
}

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (Status, error) {
	status := Status(raw)
	switch status {
	case StatusAvailable, StatusLocked, StatusPurchased, StatusInProgress, StatusCompleted, StatusArchived:
		return status, nil
	}
	return "", apperr.Validation(fmt.Sprintf("unknown lead status %q", raw))
}

// IsTerminal returns true if no transition leaves the status.
func IsTerminal(status Status) bool {
	return terminalStatuses[status]
}

// CanTransition reports whether from -> to is an edge of the state machine.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsCoordinatorTransition reports whether the edge belongs to the lock/purchase protocol.
func IsCoordinatorTransition(from, to Status) bool {
	return coordinatorTransitions[[2]Status{from, to}]
}

// ValidateTransition returns an INVALID_TRANSITION error unless from -> to is
// an edge of the state machine.
func ValidateTransition(from, to Status) error {
	if CanTransition(from, to) {
		return nil
	}
	if IsTerminal(from) {
		return apperr.Validation(fmt.Sprintf("lead is %s and can no longer change", from)).
			WithCode(apperr.CodeInvalidTransition)
	}
	return apperr.Validation(fmt.Sprintf("cannot move lead from %s to %s", from, to)).
		WithCode(apperr.CodeInvalidTransition)
}

// ValidateManualTransition is ValidateTransition for plain status updates,
// which may not perform lock, purchase or release.
func ValidateManualTransition(from, to Status) error {
	if err := ValidateTransition(from, to); err != nil {
		return err
	}
	if IsCoordinatorTransition(from, to) {
		return apperr.Validation(fmt.Sprintf("%s to %s goes through the lock and purchase endpoints", from, to)).
			WithCode(apperr.CodeInvalidTransition)
	}
	return nil
}

// RequiresHolder reports whether a lead in status must reference a contractor.
func RequiresHolder(status Status) bool {
	switch status {
	case StatusLocked, StatusPurchased, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}
