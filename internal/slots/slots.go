// Package slots decides, for a given instant, what the home screen's single
// action button should offer.
package slots

import (
	"fmt"
	"time"

	"github.com/julianstephens/moodlog/internal/constants"
	"github.com/julianstephens/moodlog/internal/errors"
	"github.com/julianstephens/moodlog/internal/models"
)

// Slot is one configured recording time anchored on a concrete date.
type Slot struct {
	Index     int
	At        time.Time
	Completed bool
}

// Actionable reports whether a capture may start for s at now: not yet done
// and now within [At, At+ActionableWindow).
func (s Slot) Actionable(now time.Time) bool {
	return !s.Completed && !now.Before(s.At) && now.Before(s.At.Add(constants.ActionableWindow))
}

type ActionKind int

const (
	ActionConfigure ActionKind = iota
	ActionStartCapture
	ActionDone
	ActionWaiting
	ActionMissed
	ActionError
)

func (k ActionKind) String() string {
	switch k {
	case ActionConfigure:
		return "configure"
	case ActionStartCapture:
		return "start"
	case ActionDone:
		return "done"
	case ActionWaiting:
		return "waiting"
	case ActionMissed:
		return "missed"
	default:
		return "error"
	}
}

// Action is the evaluated button state.
type Action struct {
	Kind    ActionKind
	Label   string
	Enabled bool
	// TargetSlot is the slot a capture would be recorded for (ActionStartCapture).
	TargetSlot int
	// MissedSlot is the most recently missed slot (ActionMissed).
	MissedSlot int
}

// Err returns a ClockSkew error for ActionError and nil otherwise.
func (a Action) Err() error {
	if a.Kind == ActionError {
		return errors.ClockSkew("evaluate slots")
	}
	return nil
}

// Build anchors each configured time of cfg on now's calendar date in now's
// location. Unconfigured slots are omitted.
func Build(cfg models.TimeSlotConfig, state models.DailyCompletionState, now time.Time) []Slot {
	var out []Slot
	for i, t := range cfg.Times {
		if t == nil {
			continue
		}
		out = append(out, Slot{
			Index:     i + 1,
			At:        t.On(now),
			Completed: state.IsCompleted(i + 1),
		})
	}
	return out
}

const waitingLabel = "not yet time for the next recording"

// Evaluate is pure: the same inputs always give the same Action.
func Evaluate(now time.Time, slots []Slot) Action {
	if len(slots) == 0 {
		return Action{Kind: ActionConfigure, Label: "set recording times", Enabled: true}
	}

	var (
		allCompleted = true
		anyCompleted bool
		anyUpcoming  bool
		lastMissed   int
	)
	for _, s := range slots {
		if s.Completed {
			anyCompleted = true
			continue
		}
		allCompleted = false

		if s.Actionable(now) {
			return Action{
				Kind:       ActionStartCapture,
				Label:      fmt.Sprintf("start recording %d", s.Index),
				Enabled:    true,
				TargetSlot: s.Index,
			}
		}
		if now.Before(s.At) {
			anyUpcoming = true
		} else {
			lastMissed = s.Index
		}
	}

	switch {
	case allCompleted:
		return Action{Kind: ActionDone, Label: "all recordings done for today"}
	case anyCompleted && lastMissed > 0 && !anyUpcoming:
		return Action{Kind: ActionWaiting, Label: waitingLabel}
	case !anyCompleted && lastMissed > 0:
		return Action{
			Kind:       ActionMissed,
			Label:      fmt.Sprintf("missed recording %d", lastMissed),
			MissedSlot: lastMissed,
		}
	case anyUpcoming:
		return Action{Kind: ActionWaiting, Label: waitingLabel}
	default:
		return Action{Kind: ActionError, Label: "schedule error"}
	}
}

// Next returns the earliest slot still ahead of now, if any.
func Next(now time.Time, slots []Slot) (Slot, bool) {
	for _, s := range slots {
		if !s.Completed && now.Before(s.At) {
			return s, true
		}
	}
	return Slot{}, false
}
