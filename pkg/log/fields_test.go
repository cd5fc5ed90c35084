package log

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestToFields(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name     string
		input    []any
		wantLen  int
		wantKeys []string
	}{
		{"empty", nil, 0, nil},
		{"pairs", []any{"route", "r1", "attempt", 3}, 2, []string{"route", "attempt"}},
		{"bare error", []any{boom}, 1, []string{"error"}},
		{"named error", []any{"cause", boom}, 1, []string{"cause"}},
		{"zap field passthrough", []any{zap.String("stop", "s1"), "kind", "photo"}, 2, []string{"stop", "kind"}},
		{"dangling value", []any{"key", "val", "orphan"}, 2, []string{"key", "extra_2"}},
		{"non-string key", []any{42, "v"}, 1, []string{"key_42"}},
		{"time and duration", []any{"at", time.Unix(0, 0), "took", time.Second}, 2, []string{"at", "took"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := toFields(tt.input)
			if len(fields) != tt.wantLen {
				t.Fatalf("expected %d fields, got %d: %+v", tt.wantLen, len(fields), fields)
			}
			for i, key := range tt.wantKeys {
				if fields[i].Key != key {
					t.Errorf("field %d: expected key %q, got %q", i, key, fields[i].Key)
				}
			}
		})
	}
}

func TestOptionsValidate(t *testing.T) {
	opts := NewOptions()
	if errs := opts.Validate(); len(errs) != 0 {
		t.Fatalf("defaults should be valid, got %v", errs)
	}

	opts.Level = "verbose"
	opts.Format = "xml"
	if errs := opts.Validate(); len(errs) != 2 {
		t.Errorf("expected 2 errors, got %v", errs)
	}
}
