package common

import (
	"errors"
	"regexp"
	"strings"
)

const maxMessageLength = 2000

var courseIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_\-]+$`)

func ValidateCourseID(courseID string) error {
	courseID = strings.TrimSpace(courseID)
	if len(courseID) < 1 || len(courseID) > 64 {
		return errors.New("course ID must be between 1 and 64 characters")
	}

	if !courseIDRegex.MatchString(courseID) {
		return errors.New("course ID can only contain letters, numbers, dashes and underscores")
	}

	return nil
}

func ValidateMessageContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.New("message content cannot be empty")
	}

	if len(content) > maxMessageLength {
		return errors.New("message content is too long")
	}

	return nil
}

func ValidatePassword(password string) error {
	if len(password) < 6 {
		return errors.New("password must be at least 6 characters long")
	}

	if len(password) > 100 {
		return errors.New("password is too long")
	}

	return nil
}
