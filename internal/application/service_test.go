package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/identity-core/internal/domain/entity"
	"github.com/oksasatya/identity-core/internal/domain/repository"
	"github.com/oksasatya/identity-core/internal/infrastructure/sqlite"
	"github.com/oksasatya/identity-core/pkg/helpers"
	"github.com/oksasatya/identity-core/pkg/imagecheck"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []UserEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evt UserEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type memoryIndex struct {
	mu      sync.Mutex
	docs    map[string]UserSummary
	lastQ   string
	lastSz  int
	failing bool
}

func newMemoryIndex() *memoryIndex {
	return &memoryIndex{docs: map[string]UserSummary{}}
}

func (m *memoryIndex) Index(_ context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errors.New("index unavailable")
	}
	m.docs[u.ID] = UserSummary{ID: u.ID, Username: u.Username, Avatar: u.AvatarRef()}
	return nil
}

func (m *memoryIndex) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	return nil
}

func (m *memoryIndex) Search(_ context.Context, q string, size int) ([]UserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastQ, m.lastSz = q, size
	out := []UserSummary{}
	for _, d := range m.docs {
		if len(out) == size {
			break
		}
		if d.Username == q {
			out = append(out, d)
		}
	}
	return out, nil
}

type failingHasher struct{}

func (failingHasher) Hash(context.Context, string) (string, error) {
	return "", errors.New("entropy exhausted")
}

func (failingHasher) Verify(context.Context, string, string) (bool, error) {
	return false, errors.New("entropy exhausted")
}

// blindRepo hides existing rows from lookups so that writes race the
// constraint directly, and can inject a save failure.
type blindRepo struct {
	repository.UserRepository
	saveErr error
}

func (r blindRepo) FindByEmail(context.Context, string) (*entity.User, error) {
	return nil, repository.ErrNotFound
}

func (r blindRepo) FindByUsername(context.Context, string) (*entity.User, error) {
	return nil, repository.ErrNotFound
}

func (r blindRepo) Save(ctx context.Context, u *entity.User) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	return r.UserRepository.Save(ctx, u)
}

type fixture struct {
	svc    *Service
	store  *sqlite.Store
	events *recordingPublisher
	index  *memoryIndex
	now    time.Time
	ids    int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{
		store:  store,
		events: &recordingPublisher{},
		index:  newMemoryIndex(),
		now:    time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(
		store,
		helpers.NewCredentialVault(bcrypt.MinCost, 4),
		imagecheck.New(imagecheck.DefaultPolicy()),
		nil,
		f.events,
		f.index,
		nil,
	)
	var mu sync.Mutex
	f.svc.now = func() time.Time { return f.now }
	f.svc.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		f.ids++
		return fmt.Sprintf("user-%03d", f.ids)
	}
	return f
}

func (f *fixture) register(t *testing.T, email, username string) *entity.User {
	t.Helper()
	res, err := f.svc.Register(context.Background(), RegisterInput{Email: email, Password: "longenough1", Username: username})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return res.User
}

func patterned(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: uint8(x + y), A: 255})
		}
	}
	return img
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, patterned(w, h), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, patterned(w, h)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func gifBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := gif.Encode(&buf, patterned(w, h), nil); err != nil {
		t.Fatalf("encode gif: %v", err)
	}
	return buf.Bytes()
}
