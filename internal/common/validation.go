package common

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ValidationError is one failed rule for one field.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%s': %s", e.Field, e.Value, e.Message)
}

// Short renders the error without the offending value, as stored on records.
func (e ValidationError) Short() string {
	return e.Field + ": " + e.Message
}

// Validator collects validation errors instead of failing on the first one.
type Validator struct {
	errors []ValidationError
}

func NewValidator() *Validator {
	return &Validator{errors: make([]ValidationError, 0)}
}

// Field runs rules against value and collects their errors
func (v *Validator) Field(fieldName, value string, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
		}
	}
	return v
}

func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// Messages returns the short form of every collected error, in rule order.
func (v *Validator) Messages() []string {
	out := make([]string, 0, len(v.errors))
	for _, err := range v.errors {
		out = append(out, err.Short())
	}
	return out
}

// Err joins the collected errors into an AppError wrapping ErrInvalidInput, or nil.
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	return NewAppError(CodeInvalidInput, strings.Join(v.Messages(), "; "), ErrInvalidInput)
}

// ValidationRule checks one field value; nil means it passed.
type ValidationRule func(fieldName, value string) *ValidationError

func Required(fieldName, value string) *ValidationError {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}
	return nil
}

// Matches builds a rule that requires a non-empty value to match re.
func Matches(re *regexp.Regexp, message string) ValidationRule {
	return func(fieldName, value string) *ValidationError {
		if value == "" || re.MatchString(value) {
			return nil
		}
		return &ValidationError{Field: fieldName, Value: value, Message: message}
	}
}

// OneOf builds a rule that accepts only the listed values.
func OneOf(allowed ...string) ValidationRule {
	set := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		set[a] = struct{}{}
	}
	return func(fieldName, value string) *ValidationError {
		if _, ok := set[value]; ok {
			return nil
		}
		return &ValidationError{Field: fieldName, Value: value, Message: "unknown value " + value}
	}
}

// ISODate requires a YYYY-MM-DD calendar date. Absent values are left to Required.
func ISODate(fieldName, value string) *ValidationError {
	if value == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", value); err != nil {
		return &ValidationError{
			Field:   fieldName,
			Value:   value,
			Message: "must be a valid date in YYYY-MM-DD format",
		}
	}
	return nil
}
