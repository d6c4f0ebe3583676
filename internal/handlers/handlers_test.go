package handlers

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/lehigh-university-libraries/passport/internal/export"
	"github.com/lehigh-university-libraries/passport/internal/models"
	"github.com/lehigh-university-libraries/passport/internal/providers"
	"github.com/lehigh-university-libraries/passport/internal/rasterizer"
	"github.com/lehigh-university-libraries/passport/internal/session"
	"github.com/lehigh-university-libraries/passport/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type failingRasterizer struct{}

func (failingRasterizer) Rasterize(context.Context, rasterizer.Request) (image.Image, error) {
	return nil, errors.New("browser crashed")
}

type testEnv struct {
	t      *testing.T
	store  *storage.SessionStore
	server *httptest.Server
	client *http.Client
}

func newTestEnv(t *testing.T, editor providers.Editor, r rasterizer.Rasterizer) *testEnv {
	t.Helper()

	store := storage.New()
	h := New(store, Options{
		Editor:      editor,
		Exporter:    export.New(r),
		UploadLimit: 1024 * 1024,

		AllowPrivateURLs: true,
	})
	server := httptest.NewServer(h.Routes())
	h.publicURL = server.URL

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		server.Close()
		store.CloseAll()
	})

	return &testEnv{
		t:      t,
		store:  store,
		server: server,
		client: &http.Client{Jar: jar},
	}
}

func okEditor(t *testing.T) providers.Editor {
	edited := pngBytes(t, 30, 40, color.RGBA{0, 0, 255, 255})
	return providers.EditorFunc(func(ctx context.Context, req providers.EditRequest) (*providers.EditResult, error) {
		return &providers.EditResult{Data: edited, MIMEType: "image/png", Provider: "test"}, nil
	})
}

func (e *testEnv) get(path string) (*http.Response, string) {
	e.t.Helper()
	resp, err := e.client.Get(e.server.URL + path)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	return resp, string(body)
}

func (e *testEnv) postForm(path string, values url.Values) (*http.Response, string) {
	e.t.Helper()
	resp, err := e.client.PostForm(e.server.URL+path, values)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	return resp, string(body)
}

func (e *testEnv) upload(data []byte) (*http.Response, string) {
	e.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "portrait.png")
	require.NoError(e.t, err)
	_, err = fw.Write(data)
	require.NoError(e.t, err)
	require.NoError(e.t, mw.Close())

	resp, err := e.client.Post(e.server.URL+"/api/upload", mw.FormDataContentType(), &buf)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	return resp, string(body)
}

func (e *testEnv) status() models.SessionStatus {
	e.t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.server.URL+"/api/session", nil)
	require.NoError(e.t, err)
	req.Header.Set("Accept", "application/json")
	resp, err := e.client.Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	require.Equal(e.t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	var status models.SessionStatus
	require.NoError(e.t, sonic.Unmarshal(body, &status))
	return status
}

func (e *testEnv) generateAndWait() {
	e.t.Helper()
	resp, _ := e.postForm("/api/generate", nil)
	require.Equal(e.t, http.StatusOK, resp.StatusCode)
	require.Eventually(e.t, func() bool {
		return !e.status().IsProcessing
	}, 5*time.Second, 10*time.Millisecond)
}

func TestIndexCreatesSession(t *testing.T) {
	env := newTestEnv(t, okEditor(t), rasterizer.NewNative())

	resp, body := env.get("/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Upload Your Portrait")
	assert.Equal(t, 1, env.store.Len())

	// Same cookie, same session.
	env.get("/")
	assert.Equal(t, 1, env.store.Len())
	assert.Equal(t, "empty", env.status().State)
}

func TestUploadGenerateAndPreview(t *testing.T) {
	env := newTestEnv(t, okEditor(t), rasterizer.NewNative())

	resp, body := env.upload(pngBytes(t, 60, 80, color.RGBA{255, 0, 0, 255}))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "GENERATE 4K PORTRAIT")
	assert.Contains(t, body, "Original Input")

	status := env.status()
	assert.Equal(t, "loaded", status.State)
	require.NotNil(t, status.OriginalImage)
	assert.Equal(t, 60, status.OriginalImage.ImageWidth)

	env.generateAndWait()

	status = env.status()
	assert.Equal(t, "ready", status.State)
	assert.Equal(t, "preview", status.View)
	require.NotNil(t, status.EditedImage)

	_, body = env.get("/")
	assert.Contains(t, body, `id="printable-area"`)
	assert.Contains(t, body, "Photo Spacing (mm)")
	assert.Equal(t, 6, strings.Count(body, `alt="Passport"`))

	_, body = env.postForm("/api/view", url.Values{"view": {"editor"}})
	assert.Contains(t, body, "4K AI Result")
	assert.Contains(t, body, "DOWNLOAD PNG")
}

func TestUploadUnreadableFilePostsNotice(t *testing.T) {
	env := newTestEnv(t, okEditor(t), rasterizer.NewNative())

	_, body := env.upload([]byte("definitely not an image"))
	assert.Contains(t, body, session.UploadFailureMessage)
	assert.Equal(t, "empty", env.status().State)

	// The notice is shown once.
	_, body = env.get("/")
	assert.NotContains(t, body, session.UploadFailureMessage)
}

func TestUploadTooLarge(t *testing.T) {
	env := newTestEnv(t, okEditor(t), rasterizer.NewNative())

	_, body := env.upload(make([]byte, 1024*1024+512*1024))
	assert.Contains(t, body, "File too large (max 1MB)")
	assert.Equal(t, "empty", env.status().State)
}

func TestUploadFromURL(t *testing.T) {
	portrait := pngBytes(t, 20, 20, color.White)
	src := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/portrait.png" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(portrait)
	}))
	defer src.Close()

	env := newTestEnv(t, okEditor(t), rasterizer.NewNative())

	post := func(body string) *http.Response {
		resp, err := env.client.Post(env.server.URL+"/api/upload", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}

	assert.Equal(t, http.StatusBadRequest, post(`{}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(`{"image_url":"`+src.URL+`/missing.png"}`).StatusCode)
	assert.Equal(t, http.StatusOK, post(`{"image_url":"`+src.URL+`/portrait.png"}`).StatusCode)
	assert.Equal(t, "loaded", env.status().State)
}

func TestUploadFromURLRejectsScheme(t *testing.T) {
	env := newTestEnv(t, okEditor(t), rasterizer.NewNative())

	for _, u := range []string{"file:///etc/passwd", "ftp://example.com/portrait.png", "gopher://example.com/"} {
		resp, err := env.client.Post(env.server.URL+"/api/upload", "application/json",
			strings.NewReader(`{"image_url":"`+u+`"}`))
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, u)
		assert.Contains(t, string(body), "http or https", u)
	}
	assert.Equal(t, "empty", env.status().State)
}

func TestDownloadRefusesPrivateAddresses(t *testing.T) {
	var hits atomic.Int32
	src := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write(pngBytes(t, 4, 4, color.White))
	}))
	defer src.Close()

	h := New(storage.New(), Options{})
	_, err := h.downloadImageFromURL(context.Background(), src.URL+"/portrait.png")
	assert.ErrorIs(t, err, errBlockedAddress)
	assert.Zero(t, hits.Load(), "no request reaches the loopback server")

	h = New(storage.New(), Options{AllowPrivateURLs: true})
	data, err := h.downloadImageFromURL(context.Background(), src.URL+"/portrait.png")
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestRefusePrivate(t *testing.T) {
	for _, addr := range []string{"127.0.0.1:80", "[::1]:443", "10.1.2.3:80", "192.168.0.10:80",
		"172.16.5.4:80", "169.254.169.254:80", "0.0.0.0:80", "[fe80::1]:80", "[::ffff:127.0.0.1]:80"} {
		assert.ErrorIs(t, refusePrivate("tcp", addr, nil), errBlockedAddress, addr)
	}
	for _, addr := range []string{"93.184.216.34:443", "[2606:2800:220:1::1]:80"} {
		assert.NoError(t, refusePrivate("tcp", addr, nil), addr)
	}
}

func TestViewingKeepsSessionAlive(t *testing.T) {
	env := newTestEnv(t, okEditor(t), rasterizer.NewNative())
	env.upload(pngBytes(t, 10, 10, color.White))

	ctrl, ok := env.store.Get(env.status().ID)
	require.True(t, ok)

	for _, path := range []string{"/", "/print", "/api/session"} {
		before := ctrl.LastActive()
		time.Sleep(5 * time.Millisecond)
		env.get(path)
		assert.True(t, ctrl.LastActive().After(before), path)
	}

	// A sweep just past the last view keeps the session.
	assert.Zero(t, env.store.Sweep(time.Second, ctrl.LastActive().Add(500*time.Millisecond)))
	assert.Equal(t, 1, env.store.Len())
}

func TestGenerateFailureShowsError(t *testing.T) {
	editor := providers.EditorFunc(func(ctx context.Context, req providers.EditRequest) (*providers.EditResult, error) {
		return nil, errors.New("quota exceeded")
	})
	env := newTestEnv(t, editor, rasterizer.NewNative())

	env.upload(pngBytes(t, 10, 10, color.White))
	env.generateAndWait()

	status := env.status()
	assert.Equal(t, "error", status.State)
	assert.Equal(t, session.EditFailureMessage, status.Error)
	assert.NotNil(t, status.OriginalImage)

	_, body := env.get("/")
	assert.Contains(t, body, session.EditFailureMessage)
}

func TestGenerateWithoutImageIsNoop(t *testing.T) {
	env := newTestEnv(t, okEditor(t), rasterizer.NewNative())

	resp, _ := env.postForm("/api/generate", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "empty", env.status().State)
}

func TestProcessingPageRefreshes(t *testing.T) {
	release := make(chan struct{})
	editor := providers.EditorFunc(func(ctx context.Context, req providers.EditRequest) (*providers.EditResult, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil, errors.New("released")
	})
	env := newTestEnv(t, editor, rasterizer.NewNative())
	defer close(release)

	env.upload(pngBytes(t, 10, 10, color.White))
	_, body := env.postForm("/api/generate", nil)
	assert.Contains(t, body, `http-equiv="refresh"`)
	assert.Contains(t, body, "AI Retouching...")
	assert.NotContains(t, body, "GENERATE 4K PORTRAIT")
	assert.Equal(t, "processing", env.status().State)
}

func TestSpacing(t *testing.T) {
	env := newTestEnv(t, okEditor(t), rasterizer.NewNative())

	resp, _ := env.postForm("/api/spacing", url.Values{"spacing": {"4"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	status := env.status()
	assert.Equal(t, 4, status.SpacingMM)
	require.NotNil(t, status.Sheet)
	assert.Equal(t, 230.0, status.Sheet.RowWidthMM)

	for _, bad := range []string{"11", "-1", "wide"} {
		resp, _ = env.postForm("/api/spacing", url.Values{"spacing": {bad}})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, bad)
	}
	assert.Equal(t, 4, env.status().SpacingMM)
}

func TestViewNeedsEditedImage(t *testing.T) {
	env := newTestEnv(t, okEditor(t), rasterizer.NewNative())
	env.upload(pngBytes(t, 10, 10, color.White))

	env.postForm("/api/view", url.Values{"view": {"preview"}})
	assert.Equal(t, "editor", env.status().View)

	resp, _ := env.postForm("/api/view", url.Values{"view": {"gallery"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReset(t *testing.T) {
	env := newTestEnv(t, okEditor(t), rasterizer.NewNative())
	env.upload(pngBytes(t, 10, 10, color.White))
	env.generateAndWait()
	env.postForm("/api/spacing", url.Values{"spacing": {"7"}})

	_, body := env.postForm("/api/reset", nil)
	assert.Contains(t, body, "Upload Your Portrait")

	status := env.status()
	assert.Equal(t, "empty", status.State)
	assert.Equal(t, "editor", status.View)
	assert.Zero(t, status.SpacingMM)
	assert.Nil(t, status.EditedImage)
}

func TestDownloadPhoto(t *testing.T) {
	env := newTestEnv(t, okEditor(t), rasterizer.NewNative())

	// Nothing to download yet.
	resp, body := env.get("/download/photo")
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, body, "Upload Your Portrait")

	env.upload(pngBytes(t, 10, 10, color.White))
	env.generateAndWait()

	resp, body = env.get("/download/photo")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), `attachment; filename=passport-4k-photo-`)

	cfg, err := png.DecodeConfig(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Width)
	assert.Equal(t, 40, cfg.Height)
}

func TestDownloadSheet(t *testing.T) {
	env := newTestEnv(t, okEditor(t), rasterizer.NewNative())
	env.upload(pngBytes(t, 10, 10, color.White))
	env.generateAndWait()

	resp, body := env.get("/download/sheet")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "passport-a4-layout-")

	cfg, err := png.DecodeConfig(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, 2381, cfg.Width)
	assert.Equal(t, 3368, cfg.Height)
}

func TestDownloadSheetFailurePostsNotice(t *testing.T) {
	env := newTestEnv(t, okEditor(t), failingRasterizer{})
	env.upload(pngBytes(t, 10, 10, color.White))
	env.generateAndWait()
	before := env.status()

	_, body := env.get("/download/sheet")
	assert.Contains(t, body, export.SheetFailureNotice)

	after := env.status()
	assert.Equal(t, before.State, after.State)
	assert.Equal(t, before.View, after.View)
	assert.Equal(t, before.SpacingMM, after.SpacingMM)
	assert.Equal(t, before.EditedImage, after.EditedImage)
}

func TestPrintAndRender(t *testing.T) {
	env := newTestEnv(t, okEditor(t), rasterizer.NewNative())

	_, body := env.get("/print")
	assert.Contains(t, body, "Upload Your Portrait")

	env.upload(pngBytes(t, 10, 10, color.White))
	env.generateAndWait()
	env.postForm("/api/spacing", url.Values{"spacing": {"3"}})
	id := env.status().ID

	_, body = env.get("/print")
	assert.Contains(t, body, "size: A4")
	assert.Contains(t, body, "window.print()")
	assert.Contains(t, body, `id="printable-area"`)
	assert.Contains(t, body, "gap: 3mm")
	assert.NotContains(t, body, "Professional Layout")

	// The rasterizer has no cookie.
	resp, err := http.Get(env.server.URL + "/render/" + id)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 6, strings.Count(string(raw), "/image/"+id+"/edited"))
	assert.Contains(t, string(raw), "border:0.1mm solid #f0f0f0")

	resp, err = http.Get(env.server.URL + "/render/unknown")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestImage(t *testing.T) {
	env := newTestEnv(t, okEditor(t), rasterizer.NewNative())
	original := pngBytes(t, 10, 10, color.White)
	env.upload(original)
	id := env.status().ID

	resp, body := env.get("/image/" + id + "/original")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, original, []byte(body))

	resp, _ = env.get("/image/" + id + "/edited")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = env.get("/image/" + id + "/thumbnail")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = env.get("/image/nope/original")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStaticAndHealthcheck(t *testing.T) {
	env := newTestEnv(t, okEditor(t), rasterizer.NewNative())

	resp, body := env.get("/static/app.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/css", resp.Header.Get("Content-Type"))
	assert.Contains(t, body, ".sheet-row")

	resp, _ = env.get("/static/missing.css")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = env.get("/healthcheck")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", body)
}
