// Package server exposes the oracle pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/yitech/harbinger/metrics"
	"github.com/yitech/harbinger/oracle"
)

// Pipeline is the part of *oracle.Service the server needs.
type Pipeline interface {
	Oracle(ctx context.Context) (*oracle.Response, error)
	Revoke(ctx context.Context) (string, error)
	Info() oracle.Info
}

type Server struct {
	pipeline Pipeline
	log      logrus.FieldLogger
	metrics  *metrics.Metrics
	router   *mux.Router
}

func New(p Pipeline, log logrus.FieldLogger, m *metrics.Metrics) *Server {
	s := &Server{pipeline: p, log: log, metrics: m, router: mux.NewRouter()}

	s.router.Use(requestID, accessLog(log), instrument(m))
	s.router.HandleFunc("/oracle", s.handleOracle).Methods(http.MethodGet)
	s.router.HandleFunc("/revoke", s.handleRevoke).Methods(http.MethodGet)
	s.router.HandleFunc("/info", s.handleInfo).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	if m != nil {
		s.router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// Serve accepts connections on l until ctx is done, then drains in-flight
// requests for up to 10 seconds.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(l) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleOracle(w http.ResponseWriter, r *http.Request) {
	resp, err := s.pipeline.Oracle(r.Context())
	if err != nil {
		s.fail(w, r, "oracle", err)
		return
	}
	writeJSON(w, resp)
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	sig, err := s.pipeline.Revoke(r.Context())
	if err != nil {
		s.fail(w, r, "revoke", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(sig))
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.pipeline.Info())
}

// fail reports err to the caller as a 500 carrying its message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.log.WithFields(logrus.Fields{
		"request_id": RequestID(r.Context()),
		"op":         op,
		"error":      err,
	}).Error("request failed")

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte("Error: " + err.Error()))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
