package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestNewAndWrap(t *testing.T) {
	base := New(CodeValidation, "quantity must be positive")
	if base.Code() != CodeValidation {
		t.Fatalf("unexpected code: %s", base.Code())
	}
	if base.Error() != "VALIDATION_ERROR: quantity must be positive" {
		t.Fatalf("unexpected message: %s", base.Error())
	}

	cause := stdErrors.New("connection refused")
	wrapped := Wrap(CodeDependency, cause, "gateway unreachable")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatal("expected wrapped error to unwrap to cause")
	}
	if wrapped.Code() != CodeDependency {
		t.Fatalf("unexpected code: %s", wrapped.Code())
	}
}

func TestWrapNilCause(t *testing.T) {
	err := Wrap(CodeNotFound, nil, "order not found")
	if err.Unwrap() != nil {
		t.Fatal("expected no cause")
	}
	if err.Code() != CodeNotFound {
		t.Fatalf("unexpected code: %s", err.Code())
	}
}

func TestAsThroughChain(t *testing.T) {
	inner := New(CodeStateConflict, "cannot transition")
	outer := fmt.Errorf("handling request: %w", inner)

	typed := As(outer)
	if typed == nil {
		t.Fatal("expected typed error through wrapping")
	}
	if typed.Code() != CodeStateConflict {
		t.Fatalf("unexpected code: %s", typed.Code())
	}

	if As(stdErrors.New("plain")) != nil {
		t.Fatal("expected nil for untyped error")
	}
}

func TestMetadataFor(t *testing.T) {
	if MetadataFor(CodeConflict).HTTPStatus != http.StatusConflict {
		t.Fatal("conflict should map to 409")
	}
	if MetadataFor(Code("bogus")).HTTPStatus != http.StatusInternalServerError {
		t.Fatal("unknown codes should fall back to 500")
	}
}

func TestDumpChain(t *testing.T) {
	cause := stdErrors.New("root")
	err := Wrap(CodeInternal, cause, "top")
	dump := Dump(err)
	if dump.Code != CodeInternal {
		t.Fatalf("unexpected code: %s", dump.Code)
	}
	if len(dump.Chain) < 2 {
		t.Fatalf("expected full chain, got %v", dump.Chain)
	}
}
