package cli

import (
	"errors"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// ErrAborted is returned when the user interrupts the confirmation prompt.
var ErrAborted = errors.New("aborted by user")

// confirm asks a yes/no question on the terminal.
var confirm = surveyConfirm

func surveyConfirm(message string) (bool, error) {
	var out bool
	prompt := &survey.Confirm{
		Message: message,
		Default: false,
	}
	if err := survey.AskOne(prompt, &out); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return false, ErrAborted
		}
		return false, err
	}
	return out, nil
}
