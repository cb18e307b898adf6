package util

import (
	"errors"
	"strings"
	"testing"
)

func TestPreconditionError(t *testing.T) {
	err := NewPreconditionError("raise-local-pref", "r1/100.0.0.0/24", "selected route must be in equiv class", "route-map not yet applied")

	msg := err.Error()
	if !strings.Contains(msg, "raise-local-pref") {
		t.Errorf("Error message should contain operation: %s", msg)
	}
	if !strings.Contains(msg, "r1/100.0.0.0/24") {
		t.Errorf("Error message should contain resource: %s", msg)
	}
	if !strings.Contains(msg, "selected route must be in equiv class") {
		t.Errorf("Error message should contain precondition: %s", msg)
	}
	if !strings.Contains(msg, "route-map not yet applied") {
		t.Errorf("Error message should contain details: %s", msg)
	}

	if !errors.Is(err, ErrPreconditionFailed) {
		t.Errorf("PreconditionError should unwrap to ErrPreconditionFailed")
	}
}

func TestPreconditionErrorNoDetails(t *testing.T) {
	err := NewPreconditionError("create", "VRF", "VRF name required", "")
	msg := err.Error()
	if strings.HasSuffix(msg, "()") {
		t.Errorf("Error message should not have empty details: %s", msg)
	}
}

func TestValidationError(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		err := NewValidationError("field is required")
		msg := err.Error()
		if !strings.Contains(msg, "field is required") {
			t.Errorf("Error message should contain the error: %s", msg)
		}
		if !errors.Is(err, ErrValidationFailed) {
			t.Errorf("ValidationError should unwrap to ErrValidationFailed")
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		err := NewValidationError("field1 is required", "field2 is invalid", "field3 out of range")
		msg := err.Error()
		if !strings.Contains(msg, "field1") || !strings.Contains(msg, "field2") || !strings.Contains(msg, "field3") {
			t.Errorf("Error message should contain all errors: %s", msg)
		}
	})
}

func TestValidationBuilder(t *testing.T) {
	t.Run("no errors", func(t *testing.T) {
		v := &ValidationBuilder{}
		v.Add(true, "this should not appear")
		v.Add(true, "neither should this")

		if v.HasErrors() {
			t.Error("Should not have errors when all conditions are true")
		}
		if err := v.Build(); err != nil {
			t.Errorf("Build() should return nil when no errors: %v", err)
		}
	})

	t.Run("with errors", func(t *testing.T) {
		v := &ValidationBuilder{}
		v.Add(false, "first error")
		v.Add(true, "this passes")
		v.Add(false, "second error")
		v.AddError("unconditional error")
		v.AddErrorf("formatted error: %d", 42)

		if !v.HasErrors() {
			t.Error("Should have errors")
		}

		err := v.Build()
		if err == nil {
			t.Fatal("Build() should return error")
		}

		validationErr, ok := err.(*ValidationError)
		if !ok {
			t.Fatalf("Expected *ValidationError, got %T", err)
		}
		if len(validationErr.Errors) != 4 {
			t.Errorf("Expected 4 errors, got %d", len(validationErr.Errors))
		}
	})

	t.Run("chaining", func(t *testing.T) {
		err := (&ValidationBuilder{}).
			Add(false, "error1").
			Add(false, "error2").
			AddErrorf("error%d", 3).
			Build()

		if err == nil {
			t.Fatal("Expected error")
		}
		if !strings.Contains(err.Error(), "error1") {
			t.Errorf("Missing error1 in: %s", err.Error())
		}
	})
}

func TestSentinelErrorsDistinct(t *testing.T) {
	sentinels := []error{
		ErrDeviceNotFound,
		ErrLinkNotFound,
		ErrNotInternal,
		ErrNotExternal,
		ErrDuplicateEntry,
		ErrInvalidModifier,
		ErrSessionTypeMismatch,
		ErrBlackHole,
		ErrForwardingLoop,
		ErrInfeasible,
		ErrSolverTimeout,
		ErrUnsatisfiableEquivalence,
		ErrPreconditionNeverHeld,
		ErrStuck,
		ErrStepLimitExceeded,
		ErrNoConvergence,
		ErrPreconditionFailed,
		ErrValidationFailed,
	}

	for i, err1 := range sentinels {
		for j, err2 := range sentinels {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("Sentinel errors should be distinct: %v == %v", err1, err2)
			}
		}
	}
}

func TestDeviceNotFoundError(t *testing.T) {
	err := NewDeviceNotFoundError(7)
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Error("DeviceNotFoundError should unwrap to ErrDeviceNotFound")
	}
	if !strings.Contains(err.Error(), "7") {
		t.Errorf("Error message should contain router id: %s", err.Error())
	}
}

func TestLinkNotFoundError(t *testing.T) {
	err := NewLinkNotFoundError(1, 2)
	if !errors.Is(err, ErrLinkNotFound) {
		t.Error("LinkNotFoundError should unwrap to ErrLinkNotFound")
	}
}

func TestBlackHoleError(t *testing.T) {
	err := NewBlackHoleError([]int{1, 2, 3})
	if !errors.Is(err, ErrBlackHole) {
		t.Error("BlackHoleError should unwrap to ErrBlackHole")
	}
	// mutating the input slice after construction must not alter the error.
	path := []int{1, 2, 3}
	err2 := NewBlackHoleError(path)
	path[0] = 99
	if err2.PathSoFar[0] != 1 {
		t.Error("BlackHoleError should copy its path")
	}
}

func TestForwardingLoopError(t *testing.T) {
	err := NewForwardingLoopError([]int{3, 4, 3})
	if !errors.Is(err, ErrForwardingLoop) {
		t.Error("ForwardingLoopError should unwrap to ErrForwardingLoop")
	}
}

func TestStuckError(t *testing.T) {
	err := NewStuckError("Main", 2)
	if !errors.Is(err, ErrStuck) {
		t.Error("StuckError should unwrap to ErrStuck")
	}
	if !strings.Contains(err.Error(), "Main") || !strings.Contains(err.Error(), "2") {
		t.Errorf("Error message should contain stage and round: %s", err.Error())
	}
}

func TestErrorsIsWrapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"PreconditionError", NewPreconditionError("op", "res", "pre", ""), ErrPreconditionFailed},
		{"ValidationError", NewValidationError("msg"), ErrValidationFailed},
		{"DeviceNotFoundError", NewDeviceNotFoundError(1), ErrDeviceNotFound},
		{"StuckError", NewStuckError("Setup", 0), ErrStuck},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("%s should wrap %v", tt.name, tt.sentinel)
			}
		})
	}
}
