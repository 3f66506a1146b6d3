// Package providertest runs an in-memory transcription provider for tests.
package providertest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// Job is a transcript held by the fake provider.
type Job struct {
	ID       string
	Status   string
	Text     string
	Error    string
	AudioURL string
	Language string
	Created  time.Time
}

// Server is an httptest server speaking the provider's REST shape.
// Requests must carry Key in the Authorization header.
type Server struct {
	*httptest.Server

	Key string

	mu       sync.Mutex
	jobs     map[string]*Job
	order    []string
	uploads  map[string][]byte
	calls    []string
	failNext int
}

// New starts a fake provider accepting key. It is closed with t.Cleanup.
func New(t testing.TB, key string) *Server {
	t.Helper()

	s := &Server{
		Key:     key,
		jobs:    map[string]*Job{},
		uploads: map[string][]byte{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v2/transcript", s.list)
	mux.HandleFunc("POST /v2/transcript", s.create)
	mux.HandleFunc("GET /v2/transcript/{id}", s.get)
	mux.HandleFunc("POST /v2/upload", s.upload)

	s.Server = httptest.NewServer(s.authorize(mux))
	t.Cleanup(s.Close)

	return s
}

// AddJob registers a job, newest last.
func (s *Server) AddJob(j Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if j.Created.IsZero() {
		j.Created = time.Now().UTC()
	}
	s.jobs[j.ID] = &j
	s.order = append(s.order, j.ID)
}

// SetStatus moves a job to status, with text for completed jobs.
func (s *Server) SetStatus(id, status, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if j, ok := s.jobs[id]; ok {
		j.Status = status
		j.Text = text
	}
}

// FailNext makes the next n authorized requests answer 500.
func (s *Server) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
}

// Job returns a copy of a stored job.
func (s *Server) Job(id string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// Calls counts requests whose "METHOD path" starts with prefix.
func (s *Server) Calls(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, c := range s.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// Uploaded returns the bytes of every upload in order.
func (s *Server) Uploaded() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([][]byte, 0, len(s.uploads))
	for i := 1; i <= len(s.uploads); i++ {
		out = append(out, s.uploads[strconv.Itoa(i)])
	}
	return out
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls = append(s.calls, r.Method+" "+r.URL.Path)
		s.mu.Unlock()

		if r.Header.Get("Authorization") != s.Key {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Authentication error, API token missing/invalid"})
			return
		}

		s.mu.Lock()
		fail := s.failNext > 0
		if fail {
			s.failNext--
		}
		s.mu.Unlock()

		if fail {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 10
	}

	s.mu.Lock()
	out := make([]map[string]any, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, payload(s.jobs[s.order[i]]))
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"transcripts": out})
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	j, ok := s.jobs[r.PathValue("id")]
	var p map[string]any
	if ok {
		p = payload(j)
	}
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Transcript not found"})
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	s.mu.Lock()
	key := strconv.Itoa(len(s.uploads) + 1)
	s.uploads[key] = body
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{
		"upload_url": s.URL + "/cdn/upload/" + key + ".bin",
	})
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AudioURL     string `json:"audio_url"`
		LanguageCode string `json:"language_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AudioURL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "audio_url is required"})
		return
	}

	s.mu.Lock()
	j := &Job{
		ID:       fmt.Sprintf("t_%d", len(s.order)+1),
		Status:   "queued",
		AudioURL: req.AudioURL,
		Language: req.LanguageCode,
		Created:  time.Now().UTC(),
	}
	for s.jobs[j.ID] != nil {
		j.ID += "x"
	}
	s.jobs[j.ID] = j
	s.order = append(s.order, j.ID)
	p := payload(j)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, p)
}

func payload(j *Job) map[string]any {
	p := map[string]any{
		"id":        j.ID,
		"status":    j.Status,
		"audio_url": j.AudioURL,
		"created":   j.Created.UTC().Format("2006-01-02T15:04:05.000000"),
		"text":      nil,
		"error":     nil,
	}
	if j.Text != "" {
		p["text"] = j.Text
	}
	if j.Error != "" {
		p["error"] = j.Error
	}
	return p
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
