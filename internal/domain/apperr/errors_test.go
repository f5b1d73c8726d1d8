package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: KindUnknown},
		{name: "plain", err: cause, want: KindUnknown},
		{name: "validation", err: NewValidationError(FieldEmail, "must be a valid email"), want: KindValidation},
		{name: "conflict", err: &ConflictError{Field: FieldUsername}, want: KindConflict},
		{name: "wrapped conflict", err: fmt.Errorf("save: %w", &ConflictError{Field: FieldEmail}), want: KindConflict},
		{name: "not found", err: &NotFoundError{Resource: "user", Key: "a@x.com"}, want: KindNotFound},
		{name: "image", err: &ImageRejectedError{Reason: "too_large"}, want: KindImageRejected},
		{name: "credentials", err: &InvalidCredentialsError{}, want: KindInvalidCredentials},
		{name: "hashing", err: &HashingError{Err: cause}, want: KindHashing},
		{name: "persistence", err: &PersistenceError{Op: "users.save", Err: cause}, want: KindPersistence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestPersistenceKeepsClassifiedErrors(t *testing.T) {
	conflict := &ConflictError{Field: FieldEmail}
	if got := Persistence("users.save", conflict); got != conflict {
		t.Fatalf("expected conflict to pass through, got %v", got)
	}
	if Persistence("users.save", nil) != nil {
		t.Fatal("expected nil for nil cause")
	}

	cause := errors.New("connection reset")
	err := Persistence("users.save", cause)
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PersistenceError, got %T", err)
	}
	if perr.Op != "users.save" || !errors.Is(err, cause) {
		t.Fatalf("unexpected persistence error %v", err)
	}
}

func TestValidationErrorKeepsFirstMessagePerField(t *testing.T) {
	verr := &ValidationError{}
	if verr.OrNil() != nil {
		t.Fatal("expected empty validation error to be nil")
	}
	verr.Add(FieldUsername, "first")
	verr.Add(FieldUsername, "second")
	verr.Add(FieldEmail, "bad email")

	if verr.Fields[FieldUsername] != "first" {
		t.Fatalf("expected first message kept, got %q", verr.Fields[FieldUsername])
	}
	if !verr.Has(FieldEmail) || verr.Has(FieldPassword) {
		t.Fatalf("unexpected fields %v", verr.Fields)
	}
	if got := verr.Error(); got != "validation failed: email: bad email; username: first" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestConflictField(t *testing.T) {
	field, ok := ConflictField(fmt.Errorf("wrapped: %w", &ConflictError{Field: FieldUsername}))
	if !ok || field != FieldUsername {
		t.Fatalf("expected username conflict, got %q %v", field, ok)
	}
	if _, ok := ConflictField(errors.New("other")); ok {
		t.Fatal("expected no conflict field")
	}
}
