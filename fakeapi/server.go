// Package fakeapi is an in-memory stand-in for the revenue API. It implements every endpoint
// the acceptance suite calls, with the business rules the suite asserts on, so the suite can
// be exercised without the real backend.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jestrada-applaudo/bdd-mroh/servicedef"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
)

// DefaultPathPrefix matches the path of the default API_BASE_URL.
const DefaultPathPrefix = "/mroh-backend-hms/api"

const listenerTimeout = time.Second * 10

// Server is the fake backend. It is safe for concurrent use.
type Server struct {
	token  string
	prefix string
	store  *store
	logger *log.Logger
}

type Option func(*Server)

// WithPathPrefix mounts the API under prefix instead of DefaultPathPrefix.
func WithPathPrefix(prefix string) Option {
	return func(s *Server) { s.prefix = strings.TrimRight(prefix, "/") }
}

// WithLogger logs every request at debug level.
func WithLogger(logger *log.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer returns a fake backend that accepts only "Bearer <token>".
func NewServer(token string, opts ...Option) *Server {
	s := &Server{
		token:  token,
		prefix: DefaultPathPrefix,
		store:  newStore(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Server) PathPrefix() string {
	return s.prefix
}

// Handler returns the router for every endpoint.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Methods(http.MethodHead).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK) // liveness probe for Start
	})

	api := r.PathPrefix(s.prefix).Subrouter()
	api.Use(s.logRequests, s.requireToken)

	api.HandleFunc(servicedef.RevisionsPath, s.createRevision).Methods(http.MethodPost)

	for _, resource := range []string{servicedef.RatesResource, servicedef.LaborResource} {
		h := &resourceHandler{server: s, resource: resource}
		api.HandleFunc(servicedef.CreatePath(resource), h.create).Methods(http.MethodPost)
		// registered before the {id} route so "delete" is not taken for an id
		api.HandleFunc(servicedef.DeletePath(resource), h.delete).Methods(http.MethodPut)
		api.HandleFunc(servicedef.RecordPath(resource, "{id}"), h.update).Methods(http.MethodPut)
		api.HandleFunc(servicedef.ExportPath("{revisionId}", resource), h.export).Methods(http.MethodGet)
		api.HandleFunc(servicedef.SearchPath("{revisionId}", resource), h.search).Methods(http.MethodGet)
		api.HandleFunc(servicedef.FetchPath("{revisionId}", resource, "{id}"), h.fetch).Methods(http.MethodGet)
	}

	api.HandleFunc(servicedef.ReferenceEntityPath("{collection}", "{id}"), s.getReferenceEntity).Methods(http.MethodGet)
	return r
}

// Start serves the fake backend on addr in the background and waits until it is listening.
// The returned server's Addr is the actual listening address, so addr may use port 0.
func (s *Server) Start(addr string) (*http.Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	server := &http.Server{Addr: listener.Addr().String(), Handler: s.Handler()}
	errCh := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	probeURL := "http://" + server.Addr
	deadline := time.NewTimer(listenerTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(time.Millisecond * 10)
	defer ticker.Stop()
	for {
		select {
		case err := <-errCh:
			return nil, err
		case <-deadline.C:
			_ = server.Close()
			return nil, fmt.Errorf("could not detect own listener at %s", server.Addr)
		case <-ticker.C:
			resp, err := http.DefaultClient.Head(probeURL)
			if err == nil {
				resp.Body.Close()
				if resp.StatusCode == http.StatusOK {
					return server, nil
				}
			}
		}
	}
}

// AddReferenceEntity registers a reference entity, e.g. ("Customer", id, "CUST-001").
func (s *Server) AddReferenceEntity(entityType, id, name string) {
	collection := strings.ToLower(entityType) + "s"
	s.store.lock.Lock()
	defer s.store.lock.Unlock()
	if s.store.references[collection] == nil {
		s.store.references[collection] = make(map[string]referenceEntity)
	}
	s.store.references[collection][id] = referenceEntity{ID: id, Name: name}
}

// SeedDefaultReferences registers DefaultReferenceEntities.
func (s *Server) SeedDefaultReferences() {
	for _, e := range DefaultReferenceEntities {
		s.AddReferenceEntity(e.Type, e.ID, e.Name)
	}
}

// Count returns the number of stored records of a resource.
func (s *Server) Count(resource string) int {
	s.store.lock.Lock()
	defer s.store.lock.Unlock()
	return len(s.store.collection(resource).order)
}

// Has reports whether a record of a resource exists.
func (s *Server) Has(resource, id string) bool {
	s.store.lock.Lock()
	defer s.store.lock.Unlock()
	_, ok := s.store.collection(resource).get(id)
	return ok
}

// RevisionCount returns the number of revisions created.
func (s *Server) RevisionCount() int {
	s.store.lock.Lock()
	defer s.store.lock.Unlock()
	return len(s.store.revisions)
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+s.token {
			writeMessage(w, http.StatusUnauthorized, "missing or invalid bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.logger != nil {
			s.logger.Debug("fake API request", "method", r.Method, "path", r.URL.Path)
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{"status": status, "message": message})
}
