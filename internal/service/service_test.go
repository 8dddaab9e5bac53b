package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trailheadapp/trailhead-server/internal/auth"
	"github.com/trailheadapp/trailhead-server/internal/domain"
	"github.com/trailheadapp/trailhead-server/internal/media/images"
	"github.com/trailheadapp/trailhead-server/internal/search"
	"github.com/trailheadapp/trailhead-server/internal/store/sqlite"
	"github.com/trailheadapp/trailhead-server/internal/validation"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newTestIndex(t *testing.T) *search.Index {
	t.Helper()
	dir := t.TempDir()
	idx, err := search.NewIndex(search.Options{
		IndexPath:   filepath.Join(dir, "search.bleve"),
		VersionPath: filepath.Join(dir, "search.version"),
		Logger:      testLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func newTestTokenService(t *testing.T) *auth.TokenService {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	ts, err := auth.NewTokenService(hex.EncodeToString(key), time.Hour)
	require.NoError(t, err)
	return ts
}

func newTestImageStorage(t *testing.T, subdir string) *images.Storage {
	t.Helper()
	s, err := images.NewStorage(t.TempDir(), subdir)
	require.NoError(t, err)
	return s
}

// recordingMailer captures outgoing email for assertions.
type recordingMailer struct {
	welcomes  []string // account URLs
	resets    []string // reset URLs
	failSends bool
}

func (m *recordingMailer) SendWelcome(_ context.Context, _, _, url string) error {
	if m.failSends {
		return errSendFailed
	}
	m.welcomes = append(m.welcomes, url)
	return nil
}

func (m *recordingMailer) SendPasswordReset(_ context.Context, _, _, url string) error {
	if m.failSends {
		return errSendFailed
	}
	m.resets = append(m.resets, url)
	return nil
}

var errSendFailed = errSend{}

type errSend struct{}

func (errSend) Error() string { return "smtp unavailable" }

func newTestAuthService(t *testing.T, st *sqlite.Store, mailer *recordingMailer) *AuthService {
	t.Helper()
	return NewAuthService(st.Users(), newTestTokenService(t), mailer, validation.New(), testLogger(), "https://trailhead.test")
}

func newTestTourService(t *testing.T, st *sqlite.Store) *TourService {
	t.Helper()
	return NewTourService(
		st.Tours(),
		newTestIndex(t),
		newTestImageStorage(t, images.SubdirTours),
		images.NewProcessor(testLogger()),
		validation.New(),
		testLogger(),
	)
}

func newTestUserService(t *testing.T, st *sqlite.Store) *UserService {
	t.Helper()
	return NewUserService(
		st.Users(),
		newTestImageStorage(t, images.SubdirUsers),
		images.NewProcessor(testLogger()),
		validation.New(),
		testLogger(),
	)
}

func newTestReviewService(t *testing.T, st *sqlite.Store) *ReviewService {
	t.Helper()
	return NewReviewService(st.Reviews(), st.Tours(), validation.New(), testLogger())
}

// signupUser creates an account through the real signup flow and returns it.
func signupUser(t *testing.T, svc *AuthService, name, email string) *AuthResult {
	t.Helper()
	res, err := svc.Signup(context.Background(), SignupRequest{
		Name:            name,
		Email:           email,
		Password:        "pass1234",
		PasswordConfirm: "pass1234",
	})
	require.NoError(t, err)
	return res
}

// makeTestPNG renders a small gradient as PNG bytes for upload tests.
func makeTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// validTour builds a tour that passes document validation.
func validTour(name string) *domain.Tour {
	return &domain.Tour{
		Name:         name,
		Duration:     7,
		MaxGroupSize: 12,
		Difficulty:   domain.DifficultyMedium,
		Price:        497,
		Summary:      "A breathtaking trip",
		ImageCover:   "cover.jpeg",
		StartLocation: domain.GeoPoint{
			Type:        "Point",
			Coordinates: [2]float64{-106.822318, 39.190872},
			Address:     "Aspen, CO",
		},
	}
}
