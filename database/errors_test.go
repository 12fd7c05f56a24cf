package database

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapDBError(t *testing.T) {
	if WrapDBError("SaveBars", nil) != nil {
		t.Error("expected nil for nil error")
	}

	cause := errors.New("connection reset")
	err := WrapDBError("SaveBars", cause)

	var dbErr *DBError
	if !errors.As(err, &dbErr) {
		t.Fatalf("expected *DBError, got %T", err)
	}
	if dbErr.Operation != "SaveBars" {
		t.Errorf("expected operation SaveBars, got %s", dbErr.Operation)
	}
	if !errors.Is(err, cause) {
		t.Error("expected wrapped error to match the cause")
	}
	want := "database error in SaveBars: connection reset"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundErrorWithID("symbol", "600519.SH")

	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *NotFoundError, got %T", err)
	}
	if nf.Resource != "symbol" || nf.ID != "600519.SH" {
		t.Errorf("unexpected fields: %+v", nf)
	}
	if err.Error() != "symbol not found: 600519.SH" {
		t.Errorf("unexpected message: %s", err.Error())
	}

	bare := &NotFoundError{Resource: "config"}
	if bare.Error() != "config not found" {
		t.Errorf("unexpected message: %s", bare.Error())
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("run_id", "must not be empty")

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	want := "validation failed for field 'run_id': must not be empty"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}

	// a wrapped validation error still matches errors.As
	wrapped := fmt.Errorf("SaveBacktest: %w", err)
	if !errors.As(wrapped, &ve) {
		t.Error("expected wrapped validation error to match errors.As")
	}
}
