package server_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/alkime/scribe/internal/app"
	"github.com/alkime/scribe/internal/config"
	"github.com/alkime/scribe/internal/notify"
	"github.com/alkime/scribe/internal/provider/providertest"
	"github.com/alkime/scribe/internal/secret"
	"github.com/alkime/scribe/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodKey = "good-key"

type fixture struct {
	provider *providertest.Server
	app      *app.App
	srv      *server.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fake := providertest.New(t, goodKey)

	cfg := &config.Config{
		Env:             "test",
		Port:            "0",
		HSTSMaxAge:      31536000,
		CSPMode:         "relaxed",
		LogLevel:        "error",
		ProviderBaseURL: fake.URL,
		LanguageCode:    "pt",
		ListLimit:       100,
		PollInterval:    time.Hour,
		SecretBackend:   config.SecretBackendFile,
		MaxUploadBytes:  1 << 20,
	}
	logger := slog.New(slog.DiscardHandler)

	a, err := app.New(cfg, logger,
		app.WithSecretBackend(secret.NewFileBackend(t.TempDir())),
		app.WithHTTPClient(fake.Client()),
	)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	return &fixture{provider: fake, app: a, srv: server.New(cfg, logger, a)}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.srv.Router().ServeHTTP(w, req)

	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code, "Health endpoint should return 200 OK")
	assert.Contains(t, w.Body.String(), "healthy")
	assert.Contains(t, w.Body.String(), "scribe")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "default-src 'self'")
}

func TestRequestIDReused(t *testing.T) {
	f := newFixture(t)
	id := "3f1c6a52-8f3e-4f5e-9a43-5a0b2f1d9c11"

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", id)
	w := httptest.NewRecorder()
	f.srv.Router().ServeHTTP(w, req)

	assert.Equal(t, id, w.Header().Get("X-Request-ID"))
}

func TestCredential(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/credential", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"configured":false}`, w.Body.String())

	t.Run("invalid key is not persisted", func(t *testing.T) {
		w := f.do(t, http.MethodPut, "/api/credential", map[string]string{"key": "bad-key"})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "invalid credential")
		assert.False(t, f.app.Secrets.Has())
	})

	t.Run("blank key rejected without a provider call", func(t *testing.T) {
		before := f.provider.Calls("GET /v2/transcript")
		w := f.do(t, http.MethodPut, "/api/credential", map[string]string{"key": "   "})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, before, f.provider.Calls("GET /v2/transcript"))
	})

	t.Run("valid key is stored and masked", func(t *testing.T) {
		w := f.do(t, http.MethodPut, "/api/credential", map[string]string{"key": goodKey})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		got := decode[map[string]any](t, w)
		assert.Equal(t, true, got["configured"])
		assert.NotContains(t, w.Body.String(), goodKey)

		key, ok := f.app.Secrets.Get()
		require.True(t, ok)
		assert.Equal(t, goodKey, key)
	})

	t.Run("delete", func(t *testing.T) {
		w := f.do(t, http.MethodDelete, "/api/credential", nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.False(t, f.app.Secrets.Has())
	})
}

func TestTranscripts_NoCredential(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/transcripts/refresh", nil)

	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
	assert.Zero(t, f.provider.Calls("GET /v2/transcript"), "no network call without a key")
}

func TestTranscripts_ListAndSelect(t *testing.T) {
	f := newFixture(t)
	f.app.Secrets.Set(goodKey)
	f.provider.AddJob(providertest.Job{
		ID: "t_1", Status: "completed", Text: "hello world",
		AudioURL: "https://cdn.example/upload/memo.m4a",
		Created:  time.Now().Add(-3 * time.Minute),
	})
	f.provider.AddJob(providertest.Job{ID: "t_2", Status: "processing"})

	w := f.do(t, http.MethodPost, "/api/transcripts/refresh", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var list struct {
		Jobs []struct {
			ID         string `json:"id"`
			Status     string `json:"status"`
			Label      string `json:"label"`
			FileName   string `json:"fileName"`
			CreatedAgo string `json:"createdAgo"`
		} `json:"jobs"`
		LastRefreshedAt *time.Time `json:"lastRefreshedAt"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Jobs, 2)
	assert.Equal(t, "t_2", list.Jobs[0].ID, "newest first")
	assert.Equal(t, "memo.m4a", list.Jobs[1].FileName)
	assert.Equal(t, "Completed", list.Jobs[1].Label)
	assert.Equal(t, "3 minutes ago", list.Jobs[1].CreatedAgo)
	assert.NotNil(t, list.LastRefreshedAt)

	w = f.do(t, http.MethodPost, "/api/transcripts/t_1/select", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	sel := decode[map[string]any](t, w)
	assert.Equal(t, "t_1", sel["id"])
	assert.Equal(t, "completed", sel["status"])
	assert.Equal(t, "hello world", sel["text"])
	assert.Equal(t, false, sel["polling"])

	w = f.do(t, http.MethodGet, "/api/selection", nil)
	assert.Equal(t, "hello world", decode[map[string]any](t, w)["text"])

	w = f.do(t, http.MethodPost, "/api/transcripts/missing/select", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSelection_RetryWithoutSelection(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/selection/retry", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func multipartUpload(t *testing.T, name, contentType string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("language", "en"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUpload(t *testing.T) {
	f := newFixture(t)
	f.app.Secrets.Set(goodKey)

	w := httptest.NewRecorder()
	f.srv.Router().ServeHTTP(w, multipartUpload(t, "memo.mp3", "audio/mpeg", []byte("ID3 fake")))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	jobID := decode[map[string]string](t, w)["jobId"]
	require.NotEmpty(t, jobID)

	job, ok := f.provider.Job(jobID)
	require.True(t, ok)
	assert.Equal(t, "en", job.Language)
	assert.Equal(t, [][]byte{[]byte("ID3 fake")}, f.provider.Uploaded())

	st := f.app.Transcripts.State()
	assert.Equal(t, jobID, st.SelectedID, "submitted job becomes the selection")
	assert.True(t, st.Polling)
	require.Len(t, st.Jobs, 1, "list refreshed after submit")

	w = f.do(t, http.MethodGet, "/api/uploads/progress", nil)
	assert.Equal(t, float64(100), decode[map[string]any](t, w)["percent"])
}

func TestUpload_NotAudio(t *testing.T) {
	f := newFixture(t)
	f.app.Secrets.Set(goodKey)

	w := httptest.NewRecorder()
	f.srv.Router().ServeHTTP(w, multipartUpload(t, "notes.txt", "text/plain", []byte("hi")))

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	assert.Zero(t, f.provider.Calls("POST"), "no network call for non-audio files")
}

func TestUpload_MissingFile(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/uploads", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStaticPage(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<title>Scribe</title>")

	w = f.do(t, http.MethodGet, "/app.js", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "EventSource")

	w = f.do(t, http.MethodGet, "/nope.js", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEvents(t *testing.T) {
	f := newFixture(t)

	ts := httptest.NewServer(f.srv.Router())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	lines := bufio.NewScanner(resp.Body)
	waitFor := func(prefix string) string {
		for lines.Scan() {
			if strings.HasPrefix(lines.Text(), prefix) {
				return lines.Text()
			}
		}
		t.Fatalf("stream ended before %q: %v", prefix, lines.Err())
		return ""
	}

	waitFor("event:ready")
	f.app.Events.Notify(notify.Success("Transcription complete", "memo.m4a").ForJob("t_1"))

	waitFor("event:notification")
	data := strings.TrimPrefix(waitFor("data:"), "data:")

	var n notify.Notification
	require.NoError(t, json.Unmarshal([]byte(data), &n))
	assert.Equal(t, notify.KindSuccess, n.Kind)
	assert.Equal(t, "t_1", n.JobID)
}

// openEvents opens an event stream and waits until it is subscribed.
func openEvents(t *testing.T, ts *httptest.Server) *bufio.Scanner {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	lines := bufio.NewScanner(resp.Body)
	for lines.Scan() {
		if strings.HasPrefix(lines.Text(), "event:ready") {
			return lines
		}
	}
	t.Fatalf("stream never became ready: %v", lines.Err())
	return nil
}

// drained reads the stream to EOF in the background.
func drained(lines *bufio.Scanner) <-chan error {
	done := make(chan error, 1)
	go func() {
		for lines.Scan() {
		}
		done <- lines.Err()
	}()
	return done
}

func TestEvents_EndOnShutdown(t *testing.T) {
	f := newFixture(t)

	ts := httptest.NewServer(f.srv.Router())
	defer ts.Close()

	runCtx, stop := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- f.srv.Run(runCtx) }()

	lines := openEvents(t, ts)
	stop()

	select {
	case err := <-drained(lines):
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("event stream still open after shutdown")
	}

	select {
	case err := <-runErr:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestEvents_EndOnAppClose(t *testing.T) {
	f := newFixture(t)

	ts := httptest.NewServer(f.srv.Router())
	defer ts.Close()

	lines := openEvents(t, ts)
	f.app.Close()

	select {
	case err := <-drained(lines):
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("event stream still open after the app closed")
	}
}
