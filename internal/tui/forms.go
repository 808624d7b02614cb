package tui

import (
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/moodlog/internal/constants"
	"github.com/julianstephens/moodlog/internal/models"
)

var moodLabels = map[int]string{
	1: "1 - awful",
	2: "2 - low",
	3: "3 - okay",
	4: "4 - good",
	5: "5 - great",
}

func validateClock(s string) error {
	_, err := models.ParseTimeOfDay(s)
	return err
}

// NewTimesForm edits the three recording times. Cross-slot rules are checked
// on save so the form can report them against the whole set.
func NewTimesForm(fm *TimesFormModel) *huh.Form {
	fields := make([]huh.Field, 0, constants.SlotCount)
	for i := range fm.Times {
		fields = append(fields, huh.NewInput().
			Title(fmt.Sprintf("Recording time %d (HH:MM)", i+1)).
			Value(&fm.Times[i]).
			Validate(validateClock))
	}
	return huh.NewForm(
		huh.NewGroup(fields...).
			Description(fmt.Sprintf("Each time must be at least %d hours after the previous one. Times can be set once a day.",
				int(constants.MinSlotGap.Hours()))),
	)
}

func NewMoodForm(fm *MoodFormModel) *huh.Form {
	options := make([]huh.Option[int], 0, constants.MaxMoodScore)
	for score := constants.MaxMoodScore; score >= constants.MinMoodScore; score-- {
		options = append(options, huh.NewOption(moodLabels[score], score))
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("How are you feeling?").
				Options(options...).
				Value(&fm.Score),
		),
	)
}
