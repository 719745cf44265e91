// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const (
	baseURL              = "/ext"
	maxConcurrentStreams = 64
)

var errRouteExists = errors.New("route already exists")

type HTTPConfig struct {
	ReadTimeout       time.Duration `json:"readTimeout"`
	ReadHeaderTimeout time.Duration `json:"readHeaderTimeout"`
	WriteTimeout      time.Duration `json:"writeTimeout"`
	IdleTimeout       time.Duration `json:"idleTimeout"`
}

// Server maintains the HTTP router
type Server struct {
	// log this server writes to
	log log.Logger

	shutdownTimeout time.Duration
	tracer          trace.Tracer
	metrics         *serverMetrics

	lock   sync.Mutex
	routes map[string]struct{}
	router *mux.Router

	handler http.Handler
	srv     *http.Server

	// Listener used to serve traffic
	listener net.Listener
}

// New returns a server that will serve routes added with AddRoute on
// listener once Dispatch is called. A nil tracer disables tracing.
func New(
	log log.Logger,
	listener net.Listener,
	allowedOrigins []string,
	shutdownTimeout time.Duration,
	tracer trace.Tracer,
	registerer metric.Registerer,
	httpConfig HTTPConfig,
) (*Server, error) {
	m, err := newMetrics(registerer)
	if err != nil {
		return nil, err
	}

	router := mux.NewRouter()
	handler := wrapHandler(router, allowedOrigins)

	httpServer := &http.Server{
		Handler: h2c.NewHandler(
			handler,
			&http2.Server{
				MaxConcurrentStreams: maxConcurrentStreams,
			}),
		ReadTimeout:       httpConfig.ReadTimeout,
		ReadHeaderTimeout: httpConfig.ReadHeaderTimeout,
		WriteTimeout:      httpConfig.WriteTimeout,
		IdleTimeout:       httpConfig.IdleTimeout,
	}

	log.Info("API created with allowed origins: " + strings.Join(allowedOrigins, ","))

	return &Server{
		log:             log,
		shutdownTimeout: shutdownTimeout,
		tracer:          tracer,
		metrics:         m,
		routes:          make(map[string]struct{}),
		router:          router,
		handler:         handler,
		srv:             httpServer,
		listener:        listener,
	}, nil
}

// AddRoute serves handler at /ext/<endpoint>.
func (s *Server) AddRoute(handler http.Handler, endpoint string) error {
	url := fmt.Sprintf("%s/%s", baseURL, endpoint)

	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.routes[url]; ok {
		return fmt.Errorf("%w: %s", errRouteExists, url)
	}
	s.routes[url] = struct{}{}

	s.log.Info("adding route",
		log.String("url", url),
	)
	if s.tracer != nil {
		handler = traceHandler(handler, url, s.tracer)
	}
	handler = s.metrics.wrapHandler(endpoint, handler)
	s.router.Handle(url, handler)
	return nil
}

// Handler returns the root handler, including CORS handling.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Dispatch serves until Shutdown is called.
func (s *Server) Dispatch() error {
	err := s.srv.Serve(s.listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	err := s.srv.Shutdown(ctx)
	cancel()

	// If shutdown times out, make sure the server is still shutdown.
	_ = s.srv.Close()
	return err
}

func wrapHandler(handler http.Handler, allowedOrigins []string) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowCredentials: true,
	}).Handler(handler)
}

func traceHandler(handler http.Handler, name string, tracer trace.Tracer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), name)
		defer span.End()

		handler.ServeHTTP(w, r.WithContext(ctx))
	})
}
