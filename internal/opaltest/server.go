// Package opaltest provides an in-memory OPAL server for package tests. It
// implements the resource conventions the client consumes — schema
// endpoints, episode list/detail, item create/update/delete — and records
// every request so tests can assert on paths and bodies.
package opaltest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"
)

// Request is one captured request.
type Request struct {
	Method string
	Path   string
	Body   map[string]any
}

// Server holds the canned data and failure switches for one test.
type Server struct {
	mu sync.Mutex

	// Columns is the raw descriptor sequence served by every schema
	// endpoint.
	Columns []map[string]any

	episodes map[int64]map[string]any
	requests []Request
	nextID   int64

	// Conflict makes every update respond 409.
	Conflict bool
	// FailSchema makes the schema endpoints respond 500.
	FailSchema bool
	// FailDelete makes deletes respond 500.
	FailDelete bool

	echo *echo.Echo
}

// New builds an empty server. Seed Columns and AddEpisode, then mount
// Handler() in an httptest.Server.
func New() *Server {
	s := &Server{
		episodes: make(map[int64]map[string]any),
		nextID:   1000,
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(s.capture)

	e.GET("/schema/", s.getSchema)
	e.GET("/schema/list/", s.getSchema)
	e.GET("/schema/extract/", s.getSchema)
	e.GET("/episode", s.listEpisodes)
	e.GET("/episode/:id", s.getEpisode)
	e.PUT("/episode/:id/", s.updateEpisode)
	e.POST("/:column/", s.createRecord)
	e.PUT("/:column/:id/", s.updateRecord)
	e.DELETE("/:column/:id/", s.deleteRecord)

	s.echo = e
	return s
}

// Handler returns the HTTP handler to mount in an httptest.Server.
func (s *Server) Handler() http.Handler { return s.echo }

// AddEpisode seeds one raw episode payload; the payload must carry a
// numeric id.
func (s *Server) AddEpisode(raw map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := int64(raw["id"].(float64))
	s.episodes[id] = raw
}

// SetNextID fixes the id the next created record receives.
func (s *Server) SetNextID(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = id
}

// Requests returns the captured requests in arrival order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest returns the most recent request, or a zero Request when none
// arrived.
func (s *Server) LastRequest() Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}
	}
	return s.requests[len(s.requests)-1]
}

func (s *Server) capture(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body map[string]any
		if c.Request().Body != nil {
			raw, _ := io.ReadAll(c.Request().Body)
			c.Request().Body = io.NopCloser(bytes.NewReader(raw))
			if len(raw) > 0 {
				_ = json.Unmarshal(raw, &body)
			}
		}
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: c.Request().Method,
			Path:   c.Request().URL.Path,
			Body:   body,
		})
		s.mu.Unlock()
		return next(c)
	}
}

func (s *Server) getSchema(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSchema {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "schema unavailable"})
	}
	return c.JSON(http.StatusOK, s.Columns)
}

func (s *Server) listEpisodes(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, 0, len(s.episodes))
	for _, raw := range s.episodes {
		out = append(out, raw)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) getEpisode(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad id"})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.episodes[id]
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no such episode"})
	}
	return c.JSON(http.StatusOK, raw)
}

// updateEpisode and updateRecord echo the submitted attributes back as the
// persisted state, the way the real server responds to a successful PUT.
func (s *Server) updateEpisode(c echo.Context) error {
	return s.update(c)
}

func (s *Server) updateRecord(c echo.Context) error {
	return s.update(c)
}

func (s *Server) update(c echo.Context) error {
	s.mu.Lock()
	conflict := s.Conflict
	s.mu.Unlock()
	if conflict {
		return c.JSON(http.StatusConflict, map[string]string{"error": "stale version"})
	}
	var body map[string]any
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad body"})
	}
	return c.JSON(http.StatusOK, body)
}

func (s *Server) createRecord(c echo.Context) error {
	var body map[string]any
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad body"})
	}
	s.mu.Lock()
	body["id"] = s.nextID
	s.nextID++
	s.mu.Unlock()
	return c.JSON(http.StatusCreated, body)
}

func (s *Server) deleteRecord(c echo.Context) error {
	s.mu.Lock()
	fail := s.FailDelete
	s.mu.Unlock()
	if fail {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
