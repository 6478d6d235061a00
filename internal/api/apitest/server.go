// Package apitest provides an in-memory fake of the service API for tests.
package apitest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/firebolt-db/firebolt-cli/internal/domain"
)

// Default credentials accepted by the fake token endpoint.
const (
	ClientID     = "test-client"
	ClientSecret = "test-secret"
	Account      = "acme"
)

// QueryFunc answers one statement sent to the query endpoint.
// The body is returned verbatim with the given status.
type QueryFunc func(database, sql string) (status int, body string)

// Server is a fake resource, auth, and query API.
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	databases     map[string]*domain.Database
	engines       map[string]*domain.Engine
	pendingStatus map[string][]domain.EngineStatus

	// QueryFn handles query endpoint requests; nil answers every statement with an empty body.
	QueryFn QueryFunc
	// FailAttach makes engine attachment fail with HTTP 500.
	FailAttach bool

	Queries       []string
	TokenRequests int
	Requests      []string
}

// NewServer starts a fake API server that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		databases:     map[string]*domain.Database{},
		engines:       map[string]*domain.Engine{},
		pendingStatus: map[string][]domain.EngineStatus{},
	}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Post("/oauth/token", s.token)
	r.Post("/query/", s.query)
	r.Route("/v1/accounts/{account}", func(r chi.Router) {
		r.Use(s.requireBearer)
		r.Get("/databases", s.listDatabases)
		r.Post("/databases", s.createDatabase)
		r.Get("/databases/{name}", s.getDatabase)
		r.Patch("/databases/{name}", s.updateDatabase)
		r.Delete("/databases/{name}", s.deleteDatabase)
		r.Get("/databases/{name}/engines", s.listDatabaseEngines)
		r.Post("/databases/{name}/engines", s.attachEngine)
		r.Get("/engines", s.listEngines)
		r.Post("/engines", s.createEngine)
		r.Get("/engines/{name}", s.getEngine)
		r.Patch("/engines/{name}", s.updateEngine)
		r.Delete("/engines/{name}", s.deleteEngine)
		r.Post("/engines/{name}/{action}", s.engineAction)
	})

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// QueryEndpoint is the endpoint assigned to every engine.
func (s *Server) QueryEndpoint() string { return s.URL + "/query" }

// AddDatabase seeds a database.
func (s *Server) AddDatabase(db domain.Database) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if db.CreateTime.IsZero() {
		db.CreateTime = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	s.databases[db.Name] = &db
}

// AddEngine seeds an engine; its endpoint defaults to QueryEndpoint.
func (s *Server) AddEngine(e domain.Engine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.Endpoint == "" {
		e.Endpoint = s.QueryEndpoint()
	}
	s.engines[e.Name] = &e
}

// Database returns a copy of a stored database.
func (s *Server) Database(name string) (domain.Database, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, ok := s.databases[name]
	if !ok {
		return domain.Database{}, false
	}
	return *db, true
}

// Engine returns a copy of a stored engine.
func (s *Server) Engine(name string) (domain.Engine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.engines[name]
	if !ok {
		return domain.Engine{}, false
	}
	return *e, true
}

// QueueStatus makes subsequent GETs of the engine report the given statuses in order.
func (s *Server) QueueStatus(engine string, statuses ...domain.EngineStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingStatus[engine] = append(s.pendingStatus[engine], statuses...)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.Requests = append(s.Requests, r.Method+" "+r.URL.Path)
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	s.TokenRequests++
	s.mu.Unlock()

	if r.PostForm.Get("grant_type") != "client_credentials" ||
		r.PostForm.Get("client_id") != ClientID || r.PostForm.Get("client_secret") != ClientSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "access_denied"})
		return
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   ClientID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := tok.SignedString([]byte("apitest"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"access_token": signed, "expires_in": 3600})
}

func (s *Server) query(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	sql := string(body)
	database := r.URL.Query().Get("database")

	s.mu.Lock()
	s.Queries = append(s.Queries, sql)
	fn := s.QueryFn
	s.mu.Unlock()

	if fn == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	status, out := fn(database, sql)
	w.WriteHeader(status)
	_, _ = io.WriteString(w, out)
}

// === Databases ===

func (s *Server) listDatabases(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Database, 0, len(s.databases))
	for _, db := range s.databases {
		out = append(out, *db)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	writeJSON(w, http.StatusOK, map[string]interface{}{"databases": out})
}

func (s *Server) createDatabase(w http.ResponseWriter, r *http.Request) {
	var req domain.Database
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.databases[req.Name]; ok {
		writeError(w, http.StatusConflict, "database "+req.Name+" already exists")
		return
	}
	req.CreateTime = time.Now().UTC()
	s.databases[req.Name] = &req
	writeJSON(w, http.StatusCreated, req)
}

func (s *Server) getDatabase(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, ok := s.databases[chi.URLParam(r, "name")]
	if !ok {
		writeError(w, http.StatusNotFound, "database "+chi.URLParam(r, "name")+" not found")
		return
	}
	writeJSON(w, http.StatusOK, db)
}

func (s *Server) updateDatabase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	db, ok := s.databases[chi.URLParam(r, "name")]
	if !ok {
		writeError(w, http.StatusNotFound, "database "+chi.URLParam(r, "name")+" not found")
		return
	}
	db.Description = req.Description
	writeJSON(w, http.StatusOK, db)
}

func (s *Server) deleteDatabase(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := chi.URLParam(r, "name")
	if _, ok := s.databases[name]; !ok {
		writeError(w, http.StatusNotFound, "database "+name+" not found")
		return
	}
	delete(s.databases, name)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listDatabaseEngines(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := chi.URLParam(r, "name")
	if _, ok := s.databases[name]; !ok {
		writeError(w, http.StatusNotFound, "database "+name+" not found")
		return
	}
	out := []domain.Engine{}
	for _, e := range s.engines {
		if e.Database == name {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	writeJSON(w, http.StatusOK, map[string]interface{}{"engines": out})
}

func (s *Server) attachEngine(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Engine  string `json:"engine"`
		Default bool   `json:"default"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAttach {
		writeError(w, http.StatusInternalServerError, "attach failed")
		return
	}
	db, ok := s.databases[chi.URLParam(r, "name")]
	if !ok {
		writeError(w, http.StatusNotFound, "database "+chi.URLParam(r, "name")+" not found")
		return
	}
	e, ok := s.engines[req.Engine]
	if !ok {
		writeError(w, http.StatusNotFound, "engine "+req.Engine+" not found")
		return
	}
	e.Database = db.Name
	db.AttachedEngines = append(db.AttachedEngines, e.Name)
	if req.Default {
		db.DefaultEngine = e.Name
	}
	w.WriteHeader(http.StatusNoContent)
}

// === Engines ===

func (s *Server) listEngines(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Engine, 0, len(s.engines))
	for _, e := range s.engines {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	writeJSON(w, http.StatusOK, map[string]interface{}{"engines": out})
}

func (s *Server) createEngine(w http.ResponseWriter, r *http.Request) {
	var req domain.EngineSettings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.engines[req.Name]; ok {
		writeError(w, http.StatusConflict, "engine "+req.Name+" already exists")
		return
	}
	e := &domain.Engine{
		Name:       req.Name,
		Status:     domain.EngineStatusStopped,
		Region:     req.Region,
		Endpoint:   s.QueryEndpoint(),
		CreateTime: time.Now().UTC(),
	}
	applySettings(e, req)
	s.engines[e.Name] = e
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) getEngine(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := chi.URLParam(r, "name")
	e, ok := s.engines[name]
	if !ok {
		writeError(w, http.StatusNotFound, "engine "+name+" not found")
		return
	}
	// Transitional states settle on the next read unless statuses are queued.
	if q := s.pendingStatus[name]; len(q) > 0 {
		e.Status, s.pendingStatus[name] = q[0], q[1:]
	} else if e.Status == domain.EngineStatusStarting {
		e.Status = domain.EngineStatusRunning
	} else if e.Status == domain.EngineStatusStopping {
		e.Status = domain.EngineStatusStopped
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) updateEngine(w http.ResponseWriter, r *http.Request) {
	var req domain.EngineSettings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	name := chi.URLParam(r, "name")
	e, ok := s.engines[name]
	if !ok {
		writeError(w, http.StatusNotFound, "engine "+name+" not found")
		return
	}
	applySettings(e, req)
	if req.NewName != nil && *req.NewName != name {
		delete(s.engines, name)
		e.Name = *req.NewName
		s.engines[e.Name] = e
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) deleteEngine(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := chi.URLParam(r, "name")
	if _, ok := s.engines[name]; !ok {
		writeError(w, http.StatusNotFound, "engine "+name+" not found")
		return
	}
	delete(s.engines, name)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) engineAction(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := chi.URLParam(r, "name")
	e, ok := s.engines[name]
	if !ok {
		writeError(w, http.StatusNotFound, "engine "+name+" not found")
		return
	}
	switch chi.URLParam(r, "action") {
	case "start", "restart":
		e.Status = domain.EngineStatusStarting
	case "stop":
		e.Status = domain.EngineStatusStopping
	default:
		writeError(w, http.StatusNotFound, "unknown action")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func applySettings(e *domain.Engine, req domain.EngineSettings) {
	if req.Spec != nil {
		e.Spec = *req.Spec
	}
	if req.Description != nil {
		e.Description = *req.Description
	}
	if req.Type != nil {
		e.Type = *req.Type
	}
	if req.Scale != nil {
		e.Scale = *req.Scale
	}
	if req.AutoStop != nil {
		e.AutoStop = *req.AutoStop
	}
	if req.Warmup != nil {
		e.Warmup = *req.Warmup
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{"code": status, "message": msg})
}
