package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/oksasatya/identity-core/internal/domain/apperr"
	"github.com/oksasatya/identity-core/internal/domain/entity"
	"github.com/oksasatya/identity-core/internal/domain/repository"
)

func TestRegisterCreatesCredentialsAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Register(ctx, RegisterInput{Email: " A@X.com ", Password: "longenough1", Username: "a.b.cdefgh"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.SessionEmail != "a@x.com" {
		t.Fatalf("session email = %q, want a@x.com", res.SessionEmail)
	}

	u, err := f.store.FindByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if u.ID != "user-001" {
		t.Fatalf("id = %q, want user-001", u.ID)
	}
	if u.Status != entity.StatusNotOnboarded || u.AuthMethod != entity.AuthMethodCredentials {
		t.Fatalf("unexpected status/method %s/%s", u.Status, u.AuthMethod)
	}
	if u.Avatar != nil {
		t.Fatalf("expected no avatar, got %q", *u.Avatar)
	}
	if u.Password == "longenough1" || !strings.HasPrefix(u.Password, "$2") {
		t.Fatalf("password is not a bcrypt hash: %q", u.Password)
	}
	if ok, err := f.svc.Vault.Verify(ctx, "longenough1", u.Password); err != nil || !ok {
		t.Fatalf("stored hash does not verify: %v %v", ok, err)
	}
	if !u.CreatedAt.Equal(f.now) || !u.UpdatedAt.Equal(f.now) {
		t.Fatalf("timestamps = %v/%v, want %v", u.CreatedAt, u.UpdatedAt, f.now)
	}
	if got := f.events.types(); len(got) != 1 || got[0] != EventUserRegistered {
		t.Fatalf("events = %v", got)
	}
	if _, ok := f.index.docs[u.ID]; !ok {
		t.Fatal("expected user to be indexed")
	}
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name   string
		in     RegisterInput
		fields []string
	}{
		{name: "leading dot username", in: RegisterInput{Email: "a@x.com", Password: "longenough1", Username: ".abcdefg"}, fields: []string{apperr.FieldUsername}},
		{name: "trailing dot username", in: RegisterInput{Email: "a@x.com", Password: "longenough1", Username: "abcdefg."}, fields: []string{apperr.FieldUsername}},
		{name: "short username", in: RegisterInput{Email: "a@x.com", Password: "longenough1", Username: "short1"}, fields: []string{apperr.FieldUsername}},
		{name: "21 char username", in: RegisterInput{Email: "a@x.com", Password: "longenough1", Username: strings.Repeat("a", 21)}, fields: []string{apperr.FieldUsername}},
		{name: "uppercase username", in: RegisterInput{Email: "a@x.com", Password: "longenough1", Username: "Abcdefgh"}, fields: []string{apperr.FieldUsername}},
		{name: "short password", in: RegisterInput{Email: "a@x.com", Password: "1234567", Username: "ab.cdefg"}, fields: []string{apperr.FieldPassword}},
		{name: "long password", in: RegisterInput{Email: "a@x.com", Password: strings.Repeat("p", 21), Username: "ab.cdefg"}, fields: []string{apperr.FieldPassword}},
		{name: "bad email", in: RegisterInput{Email: "not-an-email", Password: "longenough1", Username: "ab.cdefg"}, fields: []string{apperr.FieldEmail}},
		{name: "everything wrong", in: RegisterInput{Email: "", Password: "x", Username: "."}, fields: []string{apperr.FieldEmail, apperr.FieldPassword, apperr.FieldUsername}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Register(context.Background(), tt.in)
			var verr *apperr.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if len(verr.Fields) != len(tt.fields) {
				t.Fatalf("fields = %v, want %v", verr.Fields, tt.fields)
			}
			for _, field := range tt.fields {
				if !verr.Has(field) {
					t.Fatalf("expected %s to fail, got %v", field, verr.Fields)
				}
			}
			if f.ids != 0 || len(f.events.types()) != 0 {
				t.Fatal("validation failure must not have side effects")
			}
		})
	}
}

func TestRegisterBoundaryInputsAccepted(t *testing.T) {
	f := newFixture(t)
	f.register(t, "one@x.com", "ab.cdefg")
	f.register(t, "two@x.com", strings.Repeat("z", 20))

	res, err := f.svc.Register(context.Background(), RegisterInput{Email: "three@x.com", Password: strings.Repeat("p", 20), Username: "three.user"})
	if err != nil {
		t.Fatalf("20 char password rejected: %v", err)
	}
	if res.User.Username != "three.user" {
		t.Fatalf("unexpected username %q", res.User.Username)
	}
}

func TestRegisterMultibytePasswordAtUpperBound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	password := strings.Repeat("😀", 20)

	res, err := f.svc.Register(ctx, RegisterInput{Email: "emoji@x.com", Password: password, Username: "emoji.user"})
	if err != nil {
		t.Fatalf("20 character multibyte password rejected: %v", err)
	}
	if res.User.Password == password {
		t.Fatal("password stored as plaintext")
	}
	if _, err := f.svc.SignIn(ctx, "emoji@x.com", password); err != nil {
		t.Fatalf("sign in with multibyte password: %v", err)
	}
}

func TestRegisterPreCheckConflicts(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@x.com", "a.b.cdefgh")

	tests := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{name: "same email", in: RegisterInput{Email: "a@x.com", Password: "longenough1", Username: "other.name"}, field: apperr.FieldEmail},
		{name: "same email other case", in: RegisterInput{Email: "A@X.COM", Password: "longenough1", Username: "other.name"}, field: apperr.FieldEmail},
		{name: "same username", in: RegisterInput{Email: "b@x.com", Password: "longenough1", Username: "a.b.cdefgh"}, field: apperr.FieldUsername},
		{name: "both taken reports email", in: RegisterInput{Email: "a@x.com", Password: "longenough1", Username: "a.b.cdefgh"}, field: apperr.FieldEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Register(context.Background(), tt.in)
			if field, ok := apperr.ConflictField(err); !ok || field != tt.field {
				t.Fatalf("expected conflict on %s, got %v", tt.field, err)
			}
		})
	}
}

func TestRegisterLostRaceIsConflict(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@x.com", "a.b.cdefgh")
	f.svc.Repo = blindRepo{UserRepository: f.store}

	_, err := f.svc.Register(context.Background(), RegisterInput{Email: "a@x.com", Password: "longenough1", Username: "other.name"})
	if field, ok := apperr.ConflictField(err); !ok || field != apperr.FieldEmail {
		t.Fatalf("expected email conflict from the store, got %v", err)
	}
	_, err = f.svc.Register(context.Background(), RegisterInput{Email: "b@x.com", Password: "longenough1", Username: "a.b.cdefgh"})
	if field, ok := apperr.ConflictField(err); !ok || field != apperr.FieldUsername {
		t.Fatalf("expected username conflict from the store, got %v", err)
	}
}

func TestRegisterConcurrentUniqueness(t *testing.T) {
	const callers = 8
	tests := []struct {
		name  string
		input func(i int) RegisterInput
		field string
	}{
		{
			name: "same email",
			input: func(i int) RegisterInput {
				return RegisterInput{Email: "race@x.com", Password: "longenough1", Username: fmt.Sprintf("racer.%03d", i)}
			},
			field: apperr.FieldEmail,
		},
		{
			name: "same username",
			input: func(i int) RegisterInput {
				return RegisterInput{Email: fmt.Sprintf("racer%d@x.com", i), Password: "longenough1", Username: "racer.name"}
			},
			field: apperr.FieldUsername,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, blind := range []bool{false, true} {
				f := newFixture(t)
				if blind {
					f.svc.Repo = blindRepo{UserRepository: f.store}
				}
				var wins, conflicts atomic.Int32
				var g errgroup.Group
				for i := 0; i < callers; i++ {
					in := tt.input(i)
					g.Go(func() error {
						_, err := f.svc.Register(context.Background(), in)
						if err == nil {
							wins.Add(1)
							return nil
						}
						if field, ok := apperr.ConflictField(err); ok && field == tt.field {
							conflicts.Add(1)
							return nil
						}
						return err
					})
				}
				if err := g.Wait(); err != nil {
					t.Fatalf("blind=%v: unexpected error: %v", blind, err)
				}
				if wins.Load() != 1 || conflicts.Load() != callers-1 {
					t.Fatalf("blind=%v: wins=%d conflicts=%d", blind, wins.Load(), conflicts.Load())
				}
			}
		})
	}
}

func TestRegisterHashingFailure(t *testing.T) {
	f := newFixture(t)
	f.svc.Vault = failingHasher{}

	_, err := f.svc.Register(context.Background(), RegisterInput{Email: "a@x.com", Password: "longenough1", Username: "a.b.cdefgh"})
	if apperr.KindOf(err) != apperr.KindHashing {
		t.Fatalf("expected hashing failure, got %v", err)
	}
	if _, err := f.store.FindByEmail(context.Background(), "a@x.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("no user may be stored after a hashing failure, got %v", err)
	}
}

func TestRegisterPersistenceFailure(t *testing.T) {
	f := newFixture(t)
	f.svc.Repo = blindRepo{UserRepository: f.store, saveErr: errors.New("disk full")}

	_, err := f.svc.Register(context.Background(), RegisterInput{Email: "a@x.com", Password: "longenough1", Username: "a.b.cdefgh"})
	if apperr.KindOf(err) != apperr.KindPersistence {
		t.Fatalf("expected persistence failure, got %v", err)
	}
	if len(f.events.types()) != 0 {
		t.Fatal("no event may be published when the save failed")
	}
}

func TestRegisterSurvivesProjectionFailures(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("broker down")
	f.index.failing = true

	if _, err := f.svc.Register(context.Background(), RegisterInput{Email: "a@x.com", Password: "longenough1", Username: "a.b.cdefgh"}); err != nil {
		t.Fatalf("projection failures must not fail registration: %v", err)
	}
	if _, err := f.store.FindByEmail(context.Background(), "a@x.com"); err != nil {
		t.Fatalf("user should be stored: %v", err)
	}
}
