package composer

import (
	"errors"
	"strings"
)

var (
	ErrImprovementInFlight = errors.New("an improvement request is already running")
	ErrUnknownCategory     = errors.New("unknown category")
)

// ValidationError names every required field that was empty, in the
// order title, summary, body.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f == field {
			return true
		}
	}
	return false
}
