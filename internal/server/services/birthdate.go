package services

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/userkeeper/internal/server/models"
)

var errBadBirthdate = errors.New("must be YYYY-MM-DD or RFC 3339")

// parseBirthdate returns nil for an empty value. The time part of an RFC 3339
// value is dropped; only the calendar date is kept.
func parseBirthdate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}

	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, errBadBirthdate
		}
	}

	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d, nil
}

func validBirthdate(value any) error {
	s, _ := value.(string)
	_, err := parseBirthdate(s)
	return err
}
