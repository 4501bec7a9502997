// Package lifecycle owns the contract status graph. Transitions are the
// only way a status changes: each one is guarded, applied atomically
// (guards run before any field is touched) and reported as an Event the
// caller persists and fans out to side effects.
package lifecycle

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vittafit/contracts/internal/model"
	"github.com/vittafit/contracts/internal/placeholder"
)

type Trigger string

const (
	TriggerSend     Trigger = "SEND_FOR_SIGNATURE"
	TriggerSign     Trigger = "SIGNATURE_CAPTURED"
	TriggerActivate Trigger = "ACTIVATION_DATE_REACHED"
	TriggerExpire   Trigger = "END_DATE_PASSED"
	TriggerRenew    Trigger = "RENEWED"
	TriggerCancel   Trigger = "CANCEL"
)

// Input carries the guard data a transition may need. Callers fill only
// the fields relevant to the trigger; Now is always required.
type Input struct {
	Now                time.Time
	SignatureRef       string
	UnresolvedRequired []placeholder.Key
	NewEndAt           time.Time
}

// Event is emitted for every successful transition, including the
// renewal self-loop where From and To are both ACTIVE.
type Event struct {
	ContractID uuid.UUID
	From       model.ContractStatus
	To         model.ContractStatus
	Trigger    Trigger
	Timestamp  time.Time
}

var ErrInvalidTransition = errors.New("invalid transition")

type transition struct {
	to    model.ContractStatus
	guard func(c *model.Contract, in Input) error
	apply func(c *model.Contract, in Input)
}

var table = map[model.ContractStatus]map[Trigger]transition{
	model.ContractStatusDraft: {
		TriggerSend: {
			to:    model.ContractStatusSent,
			guard: guardResolved,
			apply: func(c *model.Contract, in Input) {
				now := in.Now
				c.SentAt = &now
			},
		},
		// Signing straight from draft skips the explicit send; both
		// signing paths converge on the same guards.
		TriggerSign: {
			to:    model.ContractStatusSigned,
			guard: guardAll(guardResolved, guardSignature),
			apply: applySignature,
		},
		TriggerCancel: {to: model.ContractStatusCancelled, guard: guardAlways, apply: applyCancelled},
	},
	model.ContractStatusSent: {
		TriggerSign: {
			to:    model.ContractStatusSigned,
			guard: guardSignature,
			apply: applySignature,
		},
		TriggerCancel: {to: model.ContractStatusCancelled, guard: guardAlways, apply: applyCancelled},
	},
	model.ContractStatusSigned: {
		TriggerActivate: {
			to: model.ContractStatusActive,
			guard: func(c *model.Contract, in Input) error {
				if c.StartAt.After(in.Now) {
					return fmt.Errorf("start date %s not reached", c.StartAt.Format(time.RFC3339))
				}
				return nil
			},
			apply: func(c *model.Contract, in Input) {
				now := in.Now
				c.ActivatedAt = &now
			},
		},
		TriggerCancel: {to: model.ContractStatusCancelled, guard: guardAlways, apply: applyCancelled},
	},
	model.ContractStatusActive: {
		TriggerExpire: {
			to: model.ContractStatusExpired,
			guard: func(c *model.Contract, in Input) error {
				if !c.EndAt.Before(in.Now) {
					return fmt.Errorf("end date %s not passed", c.EndAt.Format(time.RFC3339))
				}
				if c.AutoRenew {
					return errors.New("auto-renewal is set")
				}
				return nil
			},
			apply: func(c *model.Contract, in Input) {
				now := in.Now
				c.ExpiredAt = &now
			},
		},
		// Renewal is a self-loop: the end date moves, the status does not.
		TriggerRenew: {
			to: model.ContractStatusActive,
			guard: func(c *model.Contract, in Input) error {
				if !c.AutoRenew {
					return errors.New("auto-renewal is not set")
				}
				if !c.EndAt.Before(in.Now) {
					return fmt.Errorf("end date %s not passed", c.EndAt.Format(time.RFC3339))
				}
				if !in.NewEndAt.After(c.EndAt) {
					return errors.New("renewal must extend the end date")
				}
				return nil
			},
			apply: func(c *model.Contract, in Input) {
				c.EndAt = in.NewEndAt
			},
		},
		TriggerCancel: {to: model.ContractStatusCancelled, guard: guardAlways, apply: applyCancelled},
	},
	// EXPIRED and CANCELLED are terminal: no outbound transitions.
}

// Apply runs one transition on the contract. On any failure the contract
// is left untouched; on success status, timestamps and guard side data
// are updated together and the event tuple is returned.
func Apply(c *model.Contract, trigger Trigger, in Input) (Event, error) {
	byTrigger, ok := table[c.Status]
	var t transition
	if ok {
		t, ok = byTrigger[trigger]
	}
	if !ok {
		return Event{}, fmt.Errorf("%w: %s -> %s is not allowed", ErrInvalidTransition, c.Status, targetOf(trigger))
	}
	if err := t.guard(c, in); err != nil {
		return Event{}, fmt.Errorf("%w: %s -> %s: %v", ErrInvalidTransition, c.Status, t.to, err)
	}
	from := c.Status
	c.Status = t.to
	t.apply(c, in)
	return Event{
		ContractID: c.ID,
		From:       from,
		To:         t.to,
		Trigger:    trigger,
		Timestamp:  in.Now,
	}, nil
}

func guardAlways(*model.Contract, Input) error { return nil }

func guardResolved(c *model.Contract, in Input) error {
	if len(in.UnresolvedRequired) > 0 {
		keys := make([]string, len(in.UnresolvedRequired))
		for i, k := range in.UnresolvedRequired {
			keys[i] = string(k)
		}
		return fmt.Errorf("unresolved required placeholders: %s", strings.Join(keys, ", "))
	}
	return nil
}

func guardSignature(c *model.Contract, in Input) error {
	if strings.TrimSpace(in.SignatureRef) == "" {
		return errors.New("signature reference is required")
	}
	return nil
}

func guardAll(guards ...func(*model.Contract, Input) error) func(*model.Contract, Input) error {
	return func(c *model.Contract, in Input) error {
		for _, g := range guards {
			if err := g(c, in); err != nil {
				return err
			}
		}
		return nil
	}
}

func applySignature(c *model.Contract, in Input) {
	now := in.Now
	ref := strings.TrimSpace(in.SignatureRef)
	c.SignedAt = &now
	c.SignatureRef = &ref
}

func applyCancelled(c *model.Contract, in Input) {
	now := in.Now
	c.CancelledAt = &now
}

func targetOf(trigger Trigger) model.ContractStatus {
	switch trigger {
	case TriggerSend:
		return model.ContractStatusSent
	case TriggerSign:
		return model.ContractStatusSigned
	case TriggerActivate, TriggerRenew:
		return model.ContractStatusActive
	case TriggerExpire:
		return model.ContractStatusExpired
	case TriggerCancel:
		return model.ContractStatusCancelled
	default:
		return model.ContractStatus(string(trigger))
	}
}
