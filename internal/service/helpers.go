package service

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/sakif/starshelf/internal/apperror"
)

func isNotFound(err error) bool {
	return errors.Is(err, apperror.ErrNotFound)
}

// requireText trims s and checks its length in characters.
func requireText(field, s string, max int) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", apperror.ValidationFailed(field, field+" is required")
	}
	if utf8.RuneCountInString(s) > max {
		return "", apperror.ValidationFailed(field, field+" is too long")
	}
	return s, nil
}

// optionalText trims s; empty becomes nil.
func optionalText(field string, s *string, max int) (*string, error) {
	if s == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(v) > max {
		return nil, apperror.ValidationFailed(field, field+" is too long")
	}
	return &v, nil
}

func requireID(field string, id int64) error {
	if id <= 0 {
		return apperror.ValidationFailed(field, field+" must be a positive integer")
	}
	return nil
}
