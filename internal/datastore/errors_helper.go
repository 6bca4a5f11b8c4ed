package datastore

import (
	"fmt"

	"github.com/androsik2006/radmon/internal/errors"
)

// storeErr starts an error builder for operation. kv holds alternating
// context keys and values.
func storeErr(b *errors.ErrorBuilder, category errors.ErrorCategory, operation string, kv []any) *errors.ErrorBuilder {
	b = b.Component("datastore").Category(category).Context("operation", operation)
	for i := 0; i+1 < len(kv); i += 2 {
		if key, ok := kv[i].(string); ok {
			b = b.Context(key, kv[i+1])
		}
	}
	return b
}

func dbError(err error, operation, priority string, kv ...any) error {
	b := storeErr(errors.New(err), errors.CategoryDatabase, operation, kv)
	if priority != "" {
		b = b.Priority(priority)
	}
	return b.Build()
}

// persistenceError marks a failed engine write. Callers log it and go on.
func persistenceError(err error, operation string, kv ...any) error {
	return storeErr(errors.New(err), errors.CategoryPersistence, operation, kv).
		Priority(errors.PriorityHigh).
		Build()
}

func validationError(message, field string, value any) error {
	return storeErr(errors.Newf("%s", message), errors.CategoryValidation, "validate",
		[]any{"field", field, "value", fmt.Sprint(value)}).Build()
}

func notFoundError(entity, id string) error {
	return storeErr(errors.Newf("%s %s not found", entity, id), errors.CategoryNotFound, "lookup",
		[]any{"entity", entity, "id", id}).
		Priority(errors.PriorityLow).
		Build()
}
