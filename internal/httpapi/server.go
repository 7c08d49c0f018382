// Package httpapi is glovebox's HTTP front end: routing, 404 rendering,
// content-type guessing, and HEAD→GET rewriting, built with
// github.com/gin-gonic/gin (gin.New, Recovery+logging middleware, route
// groups).
package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/EngineHub/remote-glovebox/internal/jarmanager"
	"github.com/EngineHub/remote-glovebox/internal/logger"
)

// Server wraps the gin engine serving /javadoc/*.
type Server struct {
	engine  *gin.Engine
	manager *jarmanager.Manager
	log     *logger.Logger
}

// New builds a Server around manager. Call Engine().Run(addr) or use the
// returned engine as an http.Handler directly (e.g. from httptest).
func New(manager *jarmanager.Manager, log *logger.Logger) *Server {
	s := &Server{
		engine:  gin.New(),
		manager: manager,
		log:     log,
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(s.requestLogger())

	javadoc := s.engine.Group("/javadoc")
	javadoc.GET("/:group/:name/:version", s.redirectTrailingSlash)
	javadoc.GET("/:group/:name/:version/*path", s.getJavadoc)
	javadoc.HEAD("/:group/:name/:version/*path", s.getJavadoc)

	return s
}

// Engine returns the underlying gin engine, e.g. for http.ListenAndServe
// or httptest.NewServer.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// requestLogger tags every request with a correlation id and logs method,
// path, status, and duration once the handler completes.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := uuid.New().String()
		c.Set("request_id", requestID)

		c.Next()

		s.log.Info("request",
			"id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}

// redirectTrailingSlash implements GET /javadoc/{group}/{name}/{version}
// -> 308 redirect to the same path with a trailing slash.
func (s *Server) redirectTrailingSlash(c *gin.Context) {
	target := c.Request.URL.Path + "/"
	c.Redirect(http.StatusPermanentRedirect, target)
}

// getJavadoc implements GET|HEAD /javadoc/{group}/{name}/{version}/{path:.*}.
// An empty path is rewritten to index.html. HEAD is treated identically to
// GET except the body is not written.
func (s *Server) getJavadoc(c *gin.Context) {
	group := c.Param("group")
	name := c.Param("name")
	version := c.Param("version")
	path := strings.TrimPrefix(c.Param("path"), "/")
	if path == "" {
		path = "index.html"
	}

	data, err := s.manager.Handle(c.Request.Context(), jarmanager.Request{
		Group:   group,
		Name:    name,
		Version: version,
		Path:    path,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.Header("Content-Type", guessContentType(path))
	if c.Request.Method == http.MethodHead {
		c.Status(http.StatusOK)
		return
	}
	c.Data(http.StatusOK, guessContentType(path), data)
}

func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, jarmanager.ErrNotFound):
		c.Status(http.StatusNotFound)
	case errors.Is(err, jarmanager.ErrMailboxFull):
		c.Status(http.StatusServiceUnavailable)
	default:
		s.log.Error("jar manager request failed", err)
		c.Status(http.StatusInternalServerError)
	}
}

// guessContentType maps the suffix after the last "." in path to a
// content-type. Anything unrecognized falls back to
// application/octet-stream.
func guessContentType(path string) string {
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		return "application/octet-stream"
	}
	switch path[idx+1:] {
	case "html":
		return "text/html"
	case "js":
		return "application/javascript"
	case "css":
		return "text/css"
	default:
		return "application/octet-stream"
	}
}
