package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"merabuchpan/internal/controller"
	"merabuchpan/internal/domain"
	"merabuchpan/internal/http/handlers"
	"merabuchpan/internal/infra"
	"merabuchpan/internal/session"
)

// fakeGenerator returns out/err, optionally waiting for release first.
type fakeGenerator struct {
	mu      sync.Mutex
	out     string
	mime    string
	err     error
	release chan struct{}
	calls   int
}

func (f *fakeGenerator) Generate(ctx context.Context, child, adult domain.Photo) (domain.GeneratedImage, error) {
	f.mu.Lock()
	f.calls++
	release := f.release
	f.mu.Unlock()
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return domain.GeneratedImage{}, ctx.Err()
		}
	}
	if f.err != nil {
		return domain.GeneratedImage{}, f.err
	}
	mime := f.mime
	if mime == "" {
		mime = "image/png"
	}
	return domain.GeneratedImage{B64: f.out, MIMEType: mime}, nil
}

func (f *fakeGenerator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type harness struct {
	t      *testing.T
	server *httptest.Server
	client *http.Client
	app    *handlers.App
}

func newHarness(t *testing.T, gen controller.Generator, stats handlers.StatsReader, opts ...session.Option) *harness {
	t.Helper()
	cfg := &infra.Config{
		GeminiModel:    "test-model",
		MaxUploadBytes: 32 << 10,
		SessionTTL:     time.Hour,
	}
	store := session.NewStore(cfg.SessionTTL, func() *controller.Controller { return controller.New(gen) }, opts...)
	app := handlers.NewApp(cfg, zerolog.Nop(), store, stats)
	router := NewRouter(app, zerolog.Nop(), Options{DefaultLocale: "en", GeneratePerMinute: 100})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &harness{t: t, server: server, client: client, app: app}
}

func (h *harness) do(req *http.Request) *http.Response {
	h.t.Helper()
	resp, err := h.client.Do(req)
	require.NoError(h.t, err)
	h.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (h *harness) get(path string) *http.Response {
	h.t.Helper()
	req, err := http.NewRequest(http.MethodGet, h.server.URL+path, nil)
	require.NoError(h.t, err)
	return h.do(req)
}

func (h *harness) post(path string) *http.Response {
	h.t.Helper()
	req, err := http.NewRequest(http.MethodPost, h.server.URL+path, nil)
	require.NoError(h.t, err)
	return h.do(req)
}

func (h *harness) upload(slot, filename string, data []byte) *http.Response {
	h.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if data != nil {
		part, err := mw.CreateFormFile("photo", filename)
		require.NoError(h.t, err)
		_, err = part.Write(data)
		require.NoError(h.t, err)
	}
	require.NoError(h.t, mw.Close())
	req, err := http.NewRequest(http.MethodPost, h.server.URL+"/photos/"+slot, &body)
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return h.do(req)
}

type stateBody struct {
	State        string `json:"state"`
	HasChild     bool   `json:"has_child"`
	HasAdult     bool   `json:"has_adult"`
	CanGenerate  bool   `json:"can_generate"`
	ErrorMessage string `json:"error_message"`
	DownloadURL  string `json:"download_url"`
}

func (h *harness) state() stateBody {
	h.t.Helper()
	resp := h.get("/v1/state")
	require.Equal(h.t, http.StatusOK, resp.StatusCode)
	var s stateBody
	require.NoError(h.t, json.NewDecoder(resp.Body).Decode(&s))
	return s
}

func (h *harness) body(resp *http.Response) string {
	h.t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	return string(raw)
}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 6, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			img.Set(x, y, color.RGBA{R: uint8(40 * x), G: uint8(60 * y), B: 90, A: 255})
		}
	}
	return img
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))
	return buf.Bytes()
}

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(), nil))
	return buf.Bytes()
}

func TestFullReunionFlow(t *testing.T) {
	generated := []byte("\x89PNG merged")
	gen := &fakeGenerator{out: base64.StdEncoding.EncodeToString(generated), release: make(chan struct{})}
	h := newHarness(t, gen, nil)

	resp := h.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Set-Cookie"), "viewing the page starts no session")
	page := h.body(resp)
	assert.Contains(t, page, "Your Childhood Photo")
	assert.Contains(t, page, " disabled>")
	assert.Zero(t, h.app.Sessions.Len())

	resp = h.upload("child", "kid.png", pngBytes(t))
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	assert.NotEmpty(t, resp.Header.Get("Set-Cookie"), "first accepted photo starts a session")
	assert.False(t, h.state().CanGenerate)

	resp = h.upload("adult", "me.jpg", jpegBytes(t))
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Set-Cookie"), "cookie reused")
	assert.Equal(t, 1, h.app.Sessions.Len())
	st := h.state()
	assert.True(t, st.HasChild)
	assert.True(t, st.HasAdult)
	assert.True(t, st.CanGenerate)

	resp = h.get("/photos/child/preview")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	resp = h.post("/generate")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "loading", h.state().State)
	assert.Contains(t, h.body(h.get("/")), "Creating your moment...")

	resp = h.post("/generate")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = h.get("/download")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	close(gen.release)
	require.Eventually(t, func() bool { return h.state().State == "result" }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "/download", h.state().DownloadURL)
	assert.Contains(t, h.body(h.get("/")), "Your Memory, Reimagined")

	resp = h.get("/download")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename=merabuchpan_reunion.png`, resp.Header.Get("Content-Disposition"))
	assert.Equal(t, string(generated), h.body(resp))

	resp = h.post("/generate")
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "result requires reset first")

	resp = h.post("/reset")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	st = h.state()
	assert.Equal(t, "initial", st.State)
	assert.False(t, st.HasChild)
	assert.False(t, st.HasAdult)
	assert.Equal(t, 1, gen.Calls())

	require.NoError(t, h.app.Drain(context.Background()))
}

func TestGenerateWithoutPhotos(t *testing.T) {
	gen := &fakeGenerator{out: "QUJD"}
	h := newHarness(t, gen, nil)

	h.upload("child", "kid.png", pngBytes(t))
	resp := h.post("/generate")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	st := h.state()
	assert.Equal(t, "error", st.State)
	assert.Equal(t, domain.MessageMissingPhotos, st.ErrorMessage)
	assert.Zero(t, gen.Calls())

	page := h.body(h.get("/"))
	assert.Contains(t, page, "Oops!")
	assert.Contains(t, page, domain.MessageMissingPhotos)
}

func TestGenerateFailureShowsFixedMessage(t *testing.T) {
	gen := &fakeGenerator{err: domain.NewGenerationError(errors.New("SAFETY: blocked by policy"))}
	h := newHarness(t, gen, nil)

	h.upload("child", "kid.png", pngBytes(t))
	h.upload("adult", "me.jpg", jpegBytes(t))
	h.post("/generate")

	require.Eventually(t, func() bool { return h.state().State == "error" }, 2*time.Second, 10*time.Millisecond)
	st := h.state()
	assert.Equal(t, domain.MessageGenerationFailed, st.ErrorMessage)
	assert.NotContains(t, h.body(h.get("/")), "SAFETY")
}

func TestResetWhileLoadingDiscardsResult(t *testing.T) {
	gen := &fakeGenerator{out: "QUJD", release: make(chan struct{})}
	h := newHarness(t, gen, nil)

	h.upload("child", "kid.png", pngBytes(t))
	h.upload("adult", "me.jpg", jpegBytes(t))
	h.post("/generate")
	require.Equal(t, "loading", h.state().State)

	h.post("/reset")
	close(gen.release)
	require.NoError(t, h.app.Drain(context.Background()))

	assert.Equal(t, "initial", h.state().State)
}

func TestUploadRejections(t *testing.T) {
	h := newHarness(t, &fakeGenerator{}, nil)

	resp := h.upload("child", "notes.txt", []byte("just some text, not an image"))
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)

	resp = h.upload("child", "huge.png", bytes.Repeat([]byte{0xAB}, 40<<10))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	resp = h.upload("teen", "kid.png", pngBytes(t))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = h.upload("child", "", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode, "no file is a no-op")

	assert.False(t, h.state().HasChild)
	assert.Equal(t, http.StatusNotFound, h.get("/photos/child/preview").StatusCode)
	assert.Zero(t, h.app.Sessions.Len(), "rejected uploads start no session")
}

func TestReadOnlyRequestsStartNoSession(t *testing.T) {
	h := newHarness(t, &fakeGenerator{}, nil)
	h.client.Jar = nil

	for _, path := range []string{"/", "/v1/state", "/download", "/photos/child/preview", "/v1/healthz"} {
		resp := h.get(path)
		assert.Empty(t, resp.Header.Get("Set-Cookie"), path)
	}
	resp := h.post("/reset")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Set-Cookie"))

	assert.Zero(t, h.app.Sessions.Len())
	assert.Equal(t, "initial", h.state().State)
}

func TestCookielessUploadsAreCapped(t *testing.T) {
	h := newHarness(t, &fakeGenerator{}, nil, session.WithMaxSessions(3))
	h.client.Jar = nil

	for i := 0; i < 3; i++ {
		resp := h.upload("child", "kid.png", pngBytes(t))
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		h.get("/")
	}
	assert.Equal(t, 3, h.app.Sessions.Len(), "redirected page views add nothing")

	resp := h.upload("child", "kid.png", pngBytes(t))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.Empty(t, resp.Header.Get("Set-Cookie"))

	resp = h.post("/generate")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, 3, h.app.Sessions.Len())
}

func TestGenerateRateLimitIgnoresForwardedFor(t *testing.T) {
	cfg := &infra.Config{MaxUploadBytes: 1 << 20, SessionTTL: time.Hour}
	store := session.NewStore(cfg.SessionTTL, func() *controller.Controller { return controller.New(&fakeGenerator{}) })
	app := handlers.NewApp(cfg, zerolog.Nop(), store, nil)
	router := NewRouter(app, zerolog.Nop(), Options{DefaultLocale: "en", GeneratePerMinute: 1})

	codes := make([]int, 0, 3)
	for _, forwarded := range []string{"192.0.2.1", "192.0.2.2", "192.0.2.3"} {
		req := httptest.NewRequest(http.MethodPost, "/generate", nil)
		req.RemoteAddr = "203.0.113.9:41000"
		req.Header.Set("X-Forwarded-For", forwarded)
		req.Header.Set("X-Real-IP", forwarded)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusSeeOther, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
}

func TestDownloadUsesReportedMIME(t *testing.T) {
	gen := &fakeGenerator{out: base64.StdEncoding.EncodeToString([]byte("jpeg merged")), mime: "image/jpeg"}
	h := newHarness(t, gen, nil)

	h.upload("child", "kid.png", pngBytes(t))
	h.upload("adult", "me.jpg", jpegBytes(t))
	h.post("/generate")
	require.Eventually(t, func() bool { return h.state().State == "result" }, 2*time.Second, 10*time.Millisecond)

	resp := h.get("/download")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "merabuchpan_reunion.png")
	assert.Contains(t, h.body(h.get("/")), `src="data:image/jpeg;base64,`)
}

func TestUploadJSONResponse(t *testing.T) {
	h := newHarness(t, &fakeGenerator{}, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("photo", "kid.png")
	require.NoError(t, err)
	_, _ = part.Write(pngBytes(t))
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, h.server.URL+"/photos/child", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	resp := h.do(req)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st stateBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.True(t, st.HasChild)
	assert.Equal(t, "initial", st.State)
}

func TestLocaleFromAcceptLanguage(t *testing.T) {
	h := newHarness(t, &fakeGenerator{}, nil)

	req, err := http.NewRequest(http.MethodGet, h.server.URL+"/", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Language", "id-ID,id;q=0.9,en;q=0.5")
	page := h.body(h.do(req))
	assert.Contains(t, page, "Ciptakan Keajaiban")
}

type fakeStats struct {
	daily     []domain.DailyStats
	countries []domain.CountryCount
	err       error
	lastLimit int
}

func (f *fakeStats) Daily(_ context.Context, limit int) ([]domain.DailyStats, error) {
	f.lastLimit = limit
	return f.daily, f.err
}

func (f *fakeStats) TopCountries(context.Context, int, int) ([]domain.CountryCount, error) {
	return f.countries, f.err
}

func TestStatsEndpoint(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		h := newHarness(t, &fakeGenerator{}, nil)
		assert.Equal(t, http.StatusNotFound, h.get("/v1/stats").StatusCode)
	})

	t.Run("enabled", func(t *testing.T) {
		stats := &fakeStats{
			daily:     []domain.DailyStats{{Day: time.Date(2026, 5, 6, 0, 0, 0, 0, time.UTC), Attempts: 3, Successes: 2, Failures: 1}},
			countries: []domain.CountryCount{{Country: "ID", Attempts: 3}},
		}
		h := newHarness(t, &fakeGenerator{}, stats)

		resp := h.get("/v1/stats?days=7")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := h.body(resp)
		assert.Contains(t, body, `"day":"2026-05-06"`)
		assert.Contains(t, body, `"country":"ID"`)
		assert.Equal(t, 7, stats.lastLimit)

		assert.Equal(t, http.StatusBadRequest, h.get("/v1/stats?days=abc").StatusCode)
	})

	t.Run("store failure", func(t *testing.T) {
		h := newHarness(t, &fakeGenerator{}, &fakeStats{err: errors.New("db down")})
		resp := h.get("/v1/stats")
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.False(t, strings.Contains(h.body(resp), "db down"))
	})
}

func TestHealth(t *testing.T) {
	h := newHarness(t, &fakeGenerator{}, nil)
	resp := h.get("/v1/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test-model", body["model"])
}

func TestErrorMessageFollowsLocale(t *testing.T) {
	h := newHarness(t, &fakeGenerator{}, nil)
	h.upload("child", "kid.png", pngBytes(t))
	h.post("/generate")

	req, err := http.NewRequest(http.MethodGet, h.server.URL+"/v1/state", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Language", "id")
	var st stateBody
	require.NoError(t, json.NewDecoder(h.do(req).Body).Decode(&st))
	assert.Equal(t, "error", st.State)
	assert.Equal(t, "Silakan unggah kedua foto sebelum membuat gambar.", st.ErrorMessage)

	req, err = http.NewRequest(http.MethodGet, h.server.URL+"/", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Language", "id")
	page := h.body(h.do(req))
	assert.Contains(t, page, "Silakan unggah kedua foto sebelum membuat gambar.")
	assert.NotContains(t, page, domain.MessageMissingPhotos)
}
