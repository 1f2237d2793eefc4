package command

import (
	"errors"

	"github.com/matheus3301/wpp-harvest/internal/store"
)

// Reason refines an outcome for the reply formatter.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonUsage            Reason = "usage"
	ReasonUnknownCommand   Reason = "unknown_command"
	ReasonGroupUnavailable Reason = "group_unavailable"
	ReasonNotGroupAdmin    Reason = "not_group_admin"
	ReasonNotHarvested     Reason = "not_harvested"
)

// Result is the structured answer to a Request. Which fields are set
// depends on Command and Outcome; formatting is left to the caller.
type Result struct {
	Command string
	Outcome store.Outcome
	Reason  Reason
	Issuer  store.AdminEntry

	Groups    []store.Group
	Contacts  []store.Contact
	Blacklist []store.BlacklistEntry
	Stats     *store.Stats

	Group   *store.Group
	Contact *store.Contact
	Entry   *store.BlacklistEntry
}

// ReasonOf picks the Reason matching a command error.
func ReasonOf(err error) Reason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, ErrUsage):
		return ReasonUsage
	case errors.Is(err, ErrGroupUnavailable):
		return ReasonGroupUnavailable
	case errors.Is(err, ErrNotGroupAdmin):
		return ReasonNotGroupAdmin
	case errors.Is(err, ErrNotHarvested):
		return ReasonNotHarvested
	}
	return ReasonNone
}

func resultOf(name string, err error) Result {
	return Result{Command: name, Outcome: store.OutcomeOf(err), Reason: ReasonOf(err)}
}

// auditOutcome is the string stored in the audit trail.
func auditOutcome(err error) string {
	if r := ReasonOf(err); r != ReasonNone {
		return string(r)
	}
	return store.OutcomeOf(err).String()
}
