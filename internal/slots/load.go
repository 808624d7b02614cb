package slots

import (
	"fmt"
	"time"

	"github.com/julianstephens/moodlog/internal/storage"
	"github.com/julianstephens/moodlog/internal/utils"
)

// Snapshot is one evaluation together with the slots it was computed from.
type Snapshot struct {
	Now    time.Time
	Slots  []Slot
	Action Action
}

// Load reads the times and today's completion state from p and evaluates them
// at now. Today is now's calendar date in now's location.
func Load(p storage.Provider, now time.Time) (Snapshot, error) {
	cfg, err := p.GetTimeSettings()
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load recording times: %w", err)
	}
	state, err := p.LoadCompletionState(utils.DateString(now))
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load completion state: %w", err)
	}
	slots := Build(cfg, state, now)
	return Snapshot{Now: now, Slots: slots, Action: Evaluate(now, slots)}, nil
}
