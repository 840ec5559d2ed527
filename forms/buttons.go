package forms

import (
	"sort"
	"strings"

	"github.com/digitorus/pdf"
)

// Off is the appearance state of an unselected button.
const Off = "Off"

var truthy = map[string]bool{
	"1": true, "true": true, "yes": true, "on": true, "x": true, "checked": true, "selected": true,
}

// OnStates returns the appearance states of a button widget other than Off,
// sorted by name.
func OnStates(widget pdf.Value) []string {
	var states []string
	for _, key := range widget.Key("AP").Key("N").Keys() {
		if key != Off {
			states = append(states, key)
		}
	}
	sort.Strings(states)
	return states
}

// ButtonState returns the appearance state a widget takes for value. A state
// matching the value is selected, ignoring case. Check boxes also accept
// truthy values such as "Yes" or "true" for their single on state. Anything
// else turns the widget off.
func ButtonState(widget pdf.Value, value string, radio bool) string {
	states := OnStates(widget)
	for _, s := range states {
		if s == value {
			return s
		}
	}
	for _, s := range states {
		if strings.EqualFold(s, value) {
			return s
		}
	}
	if !radio && len(states) > 0 && truthy[strings.ToLower(strings.TrimSpace(value))] {
		return states[0]
	}
	return Off
}

// CurrentState returns the appearance state selected by the /AS entry of a
// widget, or Off.
func CurrentState(widget pdf.Value) string {
	if as := widget.Key("AS"); as.Kind() == pdf.Name {
		return as.Name()
	}
	return Off
}
