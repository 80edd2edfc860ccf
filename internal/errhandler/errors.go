// Package errhandler classifies processing failures, turns them into
// user-facing messages, and drives retries.
package errhandler

import (
	"context"
	"errors"
	"fmt"
)

// Category groups failures by the processing step that produced them.
type Category string

const (
	CategoryUpload     Category = "upload"
	CategoryExtraction Category = "extraction"
	CategoryModel      Category = "model"
	CategoryValidation Category = "validation"
	CategorySystem     Category = "system"
	CategoryTimeout    Category = "timeout"
)

// Categories lists every category in reporting order.
var Categories = []Category{
	CategoryUpload,
	CategoryExtraction,
	CategoryModel,
	CategoryValidation,
	CategorySystem,
	CategoryTimeout,
}

// Severity ranks how disruptive a failure is for the user.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Error is a categorized failure. Op names the operation that failed,
// e.g. "text_extraction".
type Error struct {
	Category Category
	Op       string
	Err      error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s error: %v", e.Category, e.Err)
	}
	return fmt.Sprintf("%s error in %s: %v", e.Category, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a category. A nil err yields nil.
func New(cat Category, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Category: cat, Op: op, Err: err}
}

// Upload, Extraction, Model, Validation and System build categorized errors
// from a message.
func Upload(op, msg string) error     { return New(CategoryUpload, op, errors.New(msg)) }
func Extraction(op, msg string) error { return New(CategoryExtraction, op, errors.New(msg)) }
func Model(op, msg string) error      { return New(CategoryModel, op, errors.New(msg)) }
func Validation(op, msg string) error { return New(CategoryValidation, op, errors.New(msg)) }
func System(op, msg string) error     { return New(CategorySystem, op, errors.New(msg)) }

// Classify returns the category of err. Deadline errors are timeouts and
// anything uncategorized is a system error.
func Classify(err error) Category {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return CategorySystem
}
