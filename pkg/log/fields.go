package log

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// toFields turns logr style key/value pairs into zap fields.
// A bare error or zap.Field is accepted anywhere in the list. A dangling value
// without a key, or a non-string key, is kept under a synthetic key rather than dropped.
func toFields(args []any) []zap.Field {
	if len(args) == 0 {
		return nil
	}

	fields := make([]zap.Field, 0, len(args)/2+1)
	for i := 0; i < len(args); {
		switch v := args[i].(type) {
		case zap.Field:
			fields = append(fields, v)
			i++
			continue
		case error:
			fields = append(fields, zap.Error(v))
			i++
			continue
		}

		if i == len(args)-1 {
			fields = append(fields, zap.Any(fmt.Sprintf("extra_%d", i), args[i]))
			break
		}

		key, val := args[i], args[i+1]
		i += 2

		name, ok := key.(string)
		if !ok {
			name = fmt.Sprintf("key_%v", key)
		}

		switch tv := val.(type) {
		case error:
			fields = append(fields, zap.NamedError(name, tv))
		case time.Time, time.Duration:
			fields = append(fields, zap.Any(name, tv))
		case fmt.Stringer:
			fields = append(fields, zap.Stringer(name, tv))
		default:
			fields = append(fields, zap.Any(name, tv))
		}
	}

	return fields
}
