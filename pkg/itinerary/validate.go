package itinerary

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	structs      *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		structs = validator.New(validator.WithRequiredStructEnabled())
		structs.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return structs
}

// Validate enforces the P0 rules and the revision lineage rules.
// It returns an *AggregateError listing every violation, or nil.
func Validate(it *Itinerary) error {
	if it == nil {
		return &AggregateError{Errors: []error{&ValidationError{Key: "itinerary", Reason: "is required"}}}
	}

	var errs []error
	if err := structValidator().Struct(it); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("failed to validate itinerary: %w", err)
		}
		for _, fe := range fieldErrs {
			errs = append(errs, fromFieldError(fe))
		}
	}
	errs = append(errs, checkDayIndexes(it.Days)...)
	if err := checkRevisionLink(it); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

func fromFieldError(fe validator.FieldError) *ValidationError {
	key := fe.Namespace()
	if _, rest, ok := strings.Cut(key, "."); ok {
		key = rest
	}

	var reason string
	switch fe.Tag() {
	case "required":
		reason = "is required"
	case "eq":
		reason = fmt.Sprintf("must be %q", fe.Param())
	case "min":
		if fe.Kind() == reflect.Slice {
			reason = fmt.Sprintf("must have at least %s item(s)", fe.Param())
		} else {
			reason = fmt.Sprintf("must have at least %s character(s)", fe.Param())
		}
	case "gte":
		reason = fmt.Sprintf("must be >= %s", fe.Param())
	case "oneof":
		reason = fmt.Sprintf("must be one of [%s]", fe.Param())
	default:
		reason = fmt.Sprintf("failed %q rule", fe.Tag())
	}

	return &ValidationError{Key: key, Reason: reason, Value: fe.Value()}
}

func checkDayIndexes(days []Day) []error {
	var errs []error
	seen := make(map[int]bool, len(days))
	for i, d := range days {
		if seen[d.DayIndex] {
			errs = append(errs, &ValidationError{
				Key:    fmt.Sprintf("days[%d].day_index", i),
				Reason: "must be unique",
				Value:  d.DayIndex,
			})
		}
		seen[d.DayIndex] = true
	}
	return errs
}

func checkRevisionLink(it *Itinerary) error {
	if it.BaseRevisionID != nil && *it.BaseRevisionID == it.RevisionID {
		return &ValidationError{
			Key:    "base_revision_id",
			Reason: "must not equal revision_id",
			Value:  *it.BaseRevisionID,
		}
	}
	return nil
}
