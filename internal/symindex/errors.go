package symindex

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedIndex is returned when serialized input is not a well-formed snapshot.
	ErrMalformedIndex = errors.New("malformed index")

	// ErrEmptyIndex is returned when a well-formed snapshot contains no entries.
	ErrEmptyIndex = errors.New("empty index")
)

// Problem is one structural defect found in a serialized snapshot.
type Problem struct {
	// Path is a JSON pointer into the document, empty for document-level problems.
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (p Problem) String() string {
	if p.Path == "" {
		return p.Message
	}
	return p.Path + ": " + p.Message
}

// MalformedError carries the problems that made a snapshot malformed.
// It matches ErrMalformedIndex with errors.Is.
type MalformedError struct {
	Problems []Problem
}

func (e *MalformedError) Error() string {
	switch len(e.Problems) {
	case 0:
		return ErrMalformedIndex.Error()
	case 1:
		return fmt.Sprintf("%s: %s", ErrMalformedIndex, e.Problems[0])
	}
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.String())
	}
	return fmt.Sprintf("%s: %d problems: %s", ErrMalformedIndex, len(e.Problems), strings.Join(parts, "; "))
}

func (e *MalformedError) Unwrap() error {
	return ErrMalformedIndex
}

func malformed(path, format string, args ...any) error {
	return &MalformedError{Problems: []Problem{{Path: path, Message: fmt.Sprintf(format, args...)}}}
}
