package api

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailheadapp/trailhead-server/internal/auth"
	"github.com/trailheadapp/trailhead-server/internal/domain"
	"github.com/trailheadapp/trailhead-server/internal/http/response"
	"github.com/trailheadapp/trailhead-server/internal/media/images"
	"github.com/trailheadapp/trailhead-server/internal/ratelimit"
	"github.com/trailheadapp/trailhead-server/internal/search"
	"github.com/trailheadapp/trailhead-server/internal/service"
	"github.com/trailheadapp/trailhead-server/internal/store/sqlite"
	"github.com/trailheadapp/trailhead-server/internal/validation"
)

type testApp struct {
	server *Server
	store  *sqlite.Store
}

type nullMailer struct{}

func (nullMailer) SendWelcome(context.Context, string, string, string) error       { return nil }
func (nullMailer) SendPasswordReset(context.Context, string, string, string) error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp(t *testing.T, limiter *ratelimit.KeyedRateLimiter) *testApp {
	t.Helper()

	logger := testLogger()
	validate := validation.New()

	st, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	indexDir := t.TempDir()
	idx, err := search.NewIndex(search.Options{
		IndexPath:   filepath.Join(indexDir, "search.bleve"),
		VersionPath: filepath.Join(indexDir, "search.version"),
		Logger:      logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	key := make([]byte, 32)
	_, err = rand.Read(key)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(hex.EncodeToString(key), time.Hour)
	require.NoError(t, err)

	tourStorage, err := images.NewStorage(t.TempDir(), images.SubdirTours)
	require.NoError(t, err)
	userStorage, err := images.NewStorage(t.TempDir(), images.SubdirUsers)
	require.NoError(t, err)
	processor := images.NewProcessor(logger)

	authSvc := service.NewAuthService(st.Users(), tokens, nullMailer{}, validate, logger, "https://trailhead.test")
	tourSvc := service.NewTourService(st.Tours(), idx, tourStorage, processor, validate, logger)
	userSvc := service.NewUserService(st.Users(), userStorage, processor, validate, logger)
	reviewSvc := service.NewReviewService(st.Reviews(), st.Tours(), validate, logger)

	if limiter == nil {
		limiter = ratelimit.ForWindow(1000, time.Hour)
	}
	t.Cleanup(limiter.Stop)

	srv := NewServer(Options{
		Auth:       authSvc,
		Tours:      tourSvc,
		Users:      userSvc,
		Reviews:    reviewSvc,
		Translator: &response.Translator{Logger: logger},
		Limiter:    limiter,
		Logger:     logger,
	})

	return &testApp{server: srv, store: st}
}

// do runs one request through the router, marshaling body as JSON when set.
func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "192.0.2.1:1234"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.server.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status  string         `json:"status"`
	Results *int           `json:"results"`
	Token   string         `json:"token"`
	Data    map[string]any `json:"data"`
	Message string         `json:"message"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	return env
}

// signup registers an account and returns its session token and user ID.
func (a *testApp) signup(t *testing.T, name, email string) (token, userID string) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/v1/users/signup", "", map[string]string{
		"name":             name,
		"email":            email,
		"password":         "pass1234",
		"password_confirm": "pass1234",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	env := decodeEnvelope(t, rec)
	user := env.Data["user"].(map[string]any)
	return env.Token, user["id"].(string)
}

// promote changes a user's role directly in the store.
func (a *testApp) promote(t *testing.T, userID string, role domain.Role) {
	t.Helper()
	user, err := a.store.Users().Get(context.Background(), userID)
	require.NoError(t, err)
	user.Role = role
	require.NoError(t, a.store.Users().Update(context.Background(), user))
}

func tourBody(name string) map[string]any {
	return map[string]any{
		"name":           name,
		"duration":       7,
		"max_group_size": 12,
		"difficulty":     "medium",
		"price":          497,
		"summary":        "A breathtaking trip",
		"image_cover":    "cover.jpeg",
		"start_location": map[string]any{
			"type":        "Point",
			"coordinates": []float64{-106.822318, 39.190872},
			"address":     "Aspen, CO",
		},
	}
}

func TestSignupLoginMeFlow(t *testing.T) {
	app := newTestApp(t, nil)

	token, _ := app.signup(t, "Lily Walker", "lily@example.com")
	require.NotEmpty(t, token)

	rec := app.do(t, http.MethodGet, "/api/v1/users/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "success", env.Status)
	user := env.Data["user"].(map[string]any)
	assert.Equal(t, "lily@example.com", user["email"])
	// The password hash never crosses the API boundary.
	assert.NotContains(t, rec.Body.String(), "password")

	rec = app.do(t, http.MethodPost, "/api/v1/users/login", "", map[string]string{
		"email":    "lily@example.com",
		"password": "pass1234",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	env = decodeEnvelope(t, rec)
	assert.NotEmpty(t, env.Token)

	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session" {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie)
	assert.True(t, sessionCookie.HttpOnly)
	assert.Equal(t, env.Token, sessionCookie.Value)
}

func TestLoginFailureEnvelope(t *testing.T) {
	app := newTestApp(t, nil)
	app.signup(t, "Lily Walker", "lily@example.com")

	rec := app.do(t, http.MethodPost, "/api/v1/users/login", "", map[string]string{
		"email":    "lily@example.com",
		"password": "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "fail", env.Status)
	assert.Equal(t, "Incorrect email or password", env.Message)
}

func TestProtectRejectsAnonymous(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.do(t, http.MethodGet, "/api/v1/users/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "You are not logged in! Please log in to get access.", env.Message)
}

func TestLogoutOverwritesCookie(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.do(t, http.MethodGet, "/api/v1/users/logout", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session", cookies[0].Name)
	assert.Equal(t, "loggedout", cookies[0].Value)
	assert.WithinDuration(t, time.Now().Add(10*time.Second), cookies[0].Expires, 5*time.Second)
}

func TestPolicyForbidsRegularUser(t *testing.T) {
	app := newTestApp(t, nil)
	token, _ := app.signup(t, "Lily Walker", "lily@example.com")

	rec := app.do(t, http.MethodPost, "/api/v1/tours", token, tourBody("The Forest Hiker"))
	require.Equal(t, http.StatusForbidden, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "You do not have permission to perform this action", env.Message)
}

func TestTourCRUDAsLeadGuide(t *testing.T) {
	app := newTestApp(t, nil)
	token, userID := app.signup(t, "Max Guide", "max@example.com")
	app.promote(t, userID, domain.RoleLeadGuide)

	rec := app.do(t, http.MethodPost, "/api/v1/tours", token, tourBody("The Forest Hiker"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	env := decodeEnvelope(t, rec)
	tour := env.Data["tour"].(map[string]any)
	tourID := tour["id"].(string)
	assert.Equal(t, "the-forest-hiker", tour["slug"])

	rec = app.do(t, http.MethodGet, "/api/v1/tours/"+tourID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodPatch, "/api/v1/tours/"+tourID, token, map[string]any{"price": 999})
	require.Equal(t, http.StatusOK, rec.Code)
	env = decodeEnvelope(t, rec)
	assert.EqualValues(t, 999, env.Data["tour"].(map[string]any)["price"])

	rec = app.do(t, http.MethodDelete, "/api/v1/tours/"+tourID, token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/v1/tours/"+tourID, "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTopFiveCheapAlias(t *testing.T) {
	app := newTestApp(t, nil)
	token, userID := app.signup(t, "Ada Admin", "ada@example.com")
	app.promote(t, userID, domain.RoleAdmin)

	for i := 0; i < 7; i++ {
		body := tourBody(fmt.Sprintf("Sample Tour Number %d", i))
		body["price"] = 100 + i*50
		rec := app.do(t, http.MethodPost, "/api/v1/tours", token, body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := app.do(t, http.MethodGet, "/api/v1/tours/top-5-cheap", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Results)
	assert.Equal(t, 5, *env.Results)

	tours := env.Data["tours"].([]any)
	require.Len(t, tours, 5)
	first := tours[0].(map[string]any)
	assert.Contains(t, first, "name")
	assert.Contains(t, first, "price")
	assert.NotContains(t, first, "duration")
	assert.NotContains(t, first, "id")
}

func TestListFieldsProjection(t *testing.T) {
	app := newTestApp(t, nil)
	token, userID := app.signup(t, "Ada Admin", "ada@example.com")
	app.promote(t, userID, domain.RoleAdmin)

	rec := app.do(t, http.MethodPost, "/api/v1/tours", token, tourBody("The Forest Hiker"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/v1/tours?fields=name,price", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	tours := env.Data["tours"].([]any)
	require.Len(t, tours, 1)
	tour := tours[0].(map[string]any)
	assert.Len(t, tour, 2)
	assert.Contains(t, tour, "name")
	assert.Contains(t, tour, "price")
}

func TestListProjectionHidesVersion(t *testing.T) {
	app := newTestApp(t, nil)
	token, userID := app.signup(t, "Ada Admin", "ada@example.com")
	app.promote(t, userID, domain.RoleAdmin)

	rec := app.do(t, http.MethodPost, "/api/v1/tours", token, tourBody("The Forest Hiker"))
	require.Equal(t, http.StatusCreated, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.NotContains(t, env.Data["tour"].(map[string]any), "version")
}

func TestNestedReviews(t *testing.T) {
	app := newTestApp(t, nil)
	adminToken, adminID := app.signup(t, "Ada Admin", "ada@example.com")
	app.promote(t, adminID, domain.RoleAdmin)
	userToken, _ := app.signup(t, "Lily Walker", "lily@example.com")

	rec := app.do(t, http.MethodPost, "/api/v1/tours", adminToken, tourBody("The Forest Hiker"))
	require.Equal(t, http.StatusCreated, rec.Code)
	tourID := decodeEnvelope(t, rec).Data["tour"].(map[string]any)["id"].(string)

	rec = app.do(t, http.MethodPost, "/api/v1/tours/"+tourID+"/reviews", userToken, map[string]any{
		"review": "Absolutely breathtaking views.",
		"rating": 5,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	review := decodeEnvelope(t, rec).Data["review"].(map[string]any)
	assert.Equal(t, tourID, review["tour_id"])

	// Admins may not author reviews.
	rec = app.do(t, http.MethodPost, "/api/v1/tours/"+tourID+"/reviews", adminToken, map[string]any{
		"review": "Great.",
		"rating": 4,
	})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/v1/tours/"+tourID+"/reviews", userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Results)
	assert.Equal(t, 1, *env.Results)

	// The write already shows up on the tour aggregate.
	rec = app.do(t, http.MethodGet, "/api/v1/tours/"+tourID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tour := decodeEnvelope(t, rec).Data["tour"].(map[string]any)
	assert.EqualValues(t, 5, tour["ratings_average"])
	assert.EqualValues(t, 1, tour["ratings_quantity"])
}

func TestSearchEndpoint(t *testing.T) {
	app := newTestApp(t, nil)
	token, userID := app.signup(t, "Ada Admin", "ada@example.com")
	app.promote(t, userID, domain.RoleAdmin)

	rec := app.do(t, http.MethodPost, "/api/v1/tours", token, tourBody("The Forest Hiker"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/v1/tours/search?q=forest", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Results)
	assert.Equal(t, 1, *env.Results)
}

func TestToursWithinBadLatLng(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.do(t, http.MethodGet, "/api/v1/tours/tours-within/200/center/garbage/unit/mi", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "Please provide latitude and longitude in the format lat,lng.", env.Message)
}

func TestMonthlyPlanRequiresElevatedRole(t *testing.T) {
	app := newTestApp(t, nil)
	token, _ := app.signup(t, "Lily Walker", "lily@example.com")

	rec := app.do(t, http.MethodGet, "/api/v1/tours/monthly-plan/2026", token, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRateLimitReturns429(t *testing.T) {
	app := newTestApp(t, ratelimit.ForWindow(3, time.Hour))

	for i := 0; i < 3; i++ {
		rec := app.do(t, http.MethodGet, "/api/v1/tours", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := app.do(t, http.MethodGet, "/api/v1/tours", "", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "Too many requests from this IP, please try again in an hour!", env.Message)
}

func TestUnknownAPIRouteEnvelope(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.do(t, http.MethodGet, "/api/v1/bookings", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "fail", env.Status)
	assert.Equal(t, "Can't find /api/v1/bookings on this server!", env.Message)
}

func TestUserCreateRouteDisabled(t *testing.T) {
	app := newTestApp(t, nil)
	token, userID := app.signup(t, "Ada Admin", "ada@example.com")
	app.promote(t, userID, domain.RoleAdmin)

	rec := app.do(t, http.MethodPost, "/api/v1/users", token, map[string]string{"name": "x"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeEnvelope(t, rec).Message, "/signup")
}

// testPNG renders a small gradient as PNG bytes for upload tests.
func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestTourMultipartUpdateMergesFields(t *testing.T) {
	app := newTestApp(t, nil)
	token, userID := app.signup(t, "Ada Admin", "ada@example.com")
	app.promote(t, userID, domain.RoleAdmin)

	rec := app.do(t, http.MethodPost, "/api/v1/tours", token, tourBody("The Forest Hiker"))
	require.Equal(t, http.StatusCreated, rec.Code)
	tourID := decodeEnvelope(t, rec).Data["tour"].(map[string]any)["id"].(string)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("imageCover", "cover.png")
	require.NoError(t, err)
	_, err = part.Write(testPNG(t))
	require.NoError(t, err)
	require.NoError(t, form.WriteField("price", "1299"))
	require.NoError(t, form.WriteField("summary", "An even more breathtaking trip"))
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/tours/"+tourID, &body)
	req.RemoteAddr = "192.0.2.1:1234"
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tour := decodeEnvelope(t, rec).Data["tour"].(map[string]any)
	assert.EqualValues(t, 1299, tour["price"])
	assert.Equal(t, "An even more breathtaking trip", tour["summary"])
	assert.NotEqual(t, "cover.jpeg", tour["image_cover"])
}

func TestOverviewPageRenders(t *testing.T) {
	app := newTestApp(t, nil)
	token, userID := app.signup(t, "Ada Admin", "ada@example.com")
	app.promote(t, userID, domain.RoleAdmin)

	rec := app.do(t, http.MethodPost, "/api/v1/tours", token, tourBody("The Forest Hiker"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = app.do(t, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "The Forest Hiker")
	assert.Contains(t, rec.Body.String(), "Log in")
}

func TestTourPageRendersReviews(t *testing.T) {
	app := newTestApp(t, nil)
	adminToken, adminID := app.signup(t, "Ada Admin", "ada@example.com")
	app.promote(t, adminID, domain.RoleAdmin)
	userToken, _ := app.signup(t, "Lily Walker", "lily@example.com")

	rec := app.do(t, http.MethodPost, "/api/v1/tours", adminToken, tourBody("The Forest Hiker"))
	require.Equal(t, http.StatusCreated, rec.Code)
	tourID := decodeEnvelope(t, rec).Data["tour"].(map[string]any)["id"].(string)

	rec = app.do(t, http.MethodPost, "/api/v1/tours/"+tourID+"/reviews", userToken, map[string]any{
		"review": "Absolutely breathtaking views.",
		"rating": 5,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = app.do(t, http.MethodGet, "/tour/the-forest-hiker", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Absolutely breathtaking views.")
	assert.Contains(t, rec.Body.String(), "Lily Walker")
}

func TestUnknownPageRendersErrorView(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.do(t, http.MethodGet, "/no-such-page", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Page not found.")
}
