package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidQuestion marks a question that breaks the structural rules below.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrParse marks a payload line that could not be decoded into a question.
	ErrParse = errors.New("cannot parse question")
	// ErrCorruptStore is returned when the store file exists but cannot be decoded.
	ErrCorruptStore = errors.New("question store is corrupt")
	// ErrStoreIO wraps read and write failures of the store file.
	ErrStoreIO = errors.New("question store i/o failed")
	// ErrPublish wraps a failed poll delivery.
	ErrPublish = errors.New("publish failed")
)

// QuizQuestion is one quiz item. The JSON field names are the on-disk format.
type QuizQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Correct  int      `json:"correct_option_id"`
}

// Validate checks the question text, options and the correct option index.
func (q QuizQuestion) Validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return fmt.Errorf("%w: question text is empty", ErrInvalidQuestion)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: need at least 2 options, got %d", ErrInvalidQuestion, len(q.Options))
	}
	for i, option := range q.Options {
		if strings.TrimSpace(option) == "" {
			return fmt.Errorf("%w: option %d is empty", ErrInvalidQuestion, i)
		}
	}
	if q.Correct < 0 || q.Correct >= len(q.Options) {
		return fmt.Errorf("%w: correct_option_id %d is out of range [0, %d)", ErrInvalidQuestion, q.Correct, len(q.Options))
	}
	return nil
}

// ItemError ties an error to a position in a batch: a question index or a payload line.
type ItemError struct {
	Index int
	Err   error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e ItemError) Unwrap() error {
	return e.Err
}
