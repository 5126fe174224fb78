// Package upstreamtest provides an in-memory stand-in for the upstream
// object store, for use in tests.
package upstreamtest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Object is the stored upstream representation.
type Object struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Data      map[string]any `json:"data"`
	CreatedAt *time.Time     `json:"createdAt,omitempty"`
	UpdatedAt *time.Time     `json:"updatedAt,omitempty"`
}

// RecordedRequest is one call the server received.
type RecordedRequest struct {
	Method      string
	Path        string
	EscapedPath string
	RawQuery    string
	Header      http.Header
	Body        string
}

// Server serves /objects from memory. Objects keep insertion order.
type Server struct {
	*httptest.Server

	mu             sync.Mutex
	objects        []*Object
	requests       []RecordedRequest
	forcedStatus   int
	collectionBody *string
}

func NewServer() *Server {
	s := &Server{}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /objects", s.list)
	mux.HandleFunc("POST /objects", s.create)
	mux.HandleFunc("GET /objects/{id}", s.get)
	mux.HandleFunc("PUT /objects/{id}", s.replace)
	mux.HandleFunc("PATCH /objects/{id}", s.patch)
	mux.HandleFunc("DELETE /objects/{id}", s.delete)

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method:      r.Method,
			Path:        r.URL.Path,
			EscapedPath: r.URL.EscapedPath(),
			RawQuery:    r.URL.RawQuery,
			Header:      r.Header.Clone(),
			Body:        string(body),
		})
		forced := s.forcedStatus
		s.mu.Unlock()

		if forced != 0 {
			writeJSON(w, forced, map[string]string{"error": http.StatusText(forced)})
			return
		}
		mux.ServeHTTP(w, r)
	}))
	return s
}

// Seed appends objects with the given names and returns their ids in order.
func (s *Server) Seed(names ...string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(names))
	for _, name := range names {
		obj := newObject(name, map[string]any{})
		s.objects = append(s.objects, obj)
		ids = append(ids, obj.ID)
	}
	return ids
}

// Put stores obj as given, keeping its id.
func (s *Server) Put(obj Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := obj
	s.objects = append(s.objects, &cp)
}

// FailWith makes every subsequent call answer with status. Zero restores
// normal behavior.
func (s *Server) FailWith(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forcedStatus = status
}

// SetCollectionBody makes GET /objects answer 200 with body verbatim.
func (s *Server) SetCollectionBody(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collectionBody = &body
}

// Requests returns a copy of every recorded call.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestCount returns the number of calls received so far.
func (s *Server) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.collectionBody != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(*s.collectionBody))
		return
	}

	ids := r.URL.Query()["id"]
	if len(ids) == 0 {
		writeJSON(w, http.StatusOK, s.objects)
		return
	}

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	out := []*Object{}
	for _, obj := range s.objects {
		if wanted[obj.ID] {
			out = append(out, obj)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, _ := s.find(r.PathValue("id"))
	if obj == nil {
		writeNotFound(w, r.PathValue("id"))
		return
	}
	writeJSON(w, http.StatusOK, obj)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var in Object
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	obj := newObject(in.Name, in.Data)
	s.objects = append(s.objects, obj)
	writeJSON(w, http.StatusOK, obj)
}

func (s *Server) replace(w http.ResponseWriter, r *http.Request) {
	var in Object
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	obj, _ := s.find(r.PathValue("id"))
	if obj == nil {
		writeNotFound(w, r.PathValue("id"))
		return
	}
	now := time.Now().UTC()
	obj.Name = in.Name
	obj.Data = in.Data
	obj.UpdatedAt = &now
	writeJSON(w, http.StatusOK, obj)
}

func (s *Server) patch(w http.ResponseWriter, r *http.Request) {
	var in map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	obj, _ := s.find(r.PathValue("id"))
	if obj == nil {
		writeNotFound(w, r.PathValue("id"))
		return
	}
	if raw, ok := in["name"]; ok {
		_ = json.Unmarshal(raw, &obj.Name)
	}
	if raw, ok := in["data"]; ok {
		var data map[string]any
		_ = json.Unmarshal(raw, &data)
		obj.Data = data
	}
	now := time.Now().UTC()
	obj.UpdatedAt = &now
	writeJSON(w, http.StatusOK, obj)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := r.PathValue("id")
	_, idx := s.find(id)
	if idx < 0 {
		writeNotFound(w, id)
		return
	}
	s.objects = append(s.objects[:idx], s.objects[idx+1:]...)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Object with id = " + id + " has been deleted.",
	})
}

func (s *Server) find(id string) (*Object, int) {
	for i, obj := range s.objects {
		if obj.ID == id {
			return obj, i
		}
	}
	return nil, -1
}

func newObject(name string, data map[string]any) *Object {
	now := time.Now().UTC()
	return &Object{
		ID:        uuid.NewString(),
		Name:      name,
		Data:      data,
		CreatedAt: &now,
	}
}

func writeNotFound(w http.ResponseWriter, id string) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "Object with id=" + id + " was not found.",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
