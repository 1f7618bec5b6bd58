// Package api exposes the HTTP interface for the acquisition service.
package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/openneta/netawatch/internal/metrics"
	"github.com/openneta/netawatch/internal/resolve"
	"github.com/openneta/netawatch/internal/service"
)

// Server wires HTTP handlers to the service facade.
type Server struct {
	router chi.Router
	svc    *service.Service
	logger *zap.Logger
	// imageClient streams proxied image bytes from the origin.
	imageClient *http.Client
	userAgent   string
}

// NewServer constructs a Server with middleware and routes.
func NewServer(svc *service.Service, userAgent string, logger *zap.Logger) *Server {
	s := &Server{
		svc:    svc,
		logger: logger,
		imageClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		userAgent: userAgent,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(90 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/img/{image_id}", s.proxyImage)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/member", s.getMember)
		r.Get("/affidavit", s.getAffidavit)
		r.Post("/member/invalidate", s.invalidateMember)
		r.Get("/stats", s.getStats)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) getMember(w http.ResponseWriter, r *http.Request) {
	q := service.MemberQuery{
		Name:         r.URL.Query().Get("name"),
		Role:         resolve.Role(r.URL.Query().Get("role")),
		Constituency: r.URL.Query().Get("constituency"),
		Party:        r.URL.Query().Get("party"),
	}
	if q.Name == "" || !q.Role.Valid() {
		writeError(w, http.StatusBadRequest, "name and role=MP|MLA are required")
		return
	}

	res, err := s.svc.ResolveMember(r.Context(), q)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	status := http.StatusOK
	if res.Outcome == resolve.OutcomeNotFound {
		status = http.StatusNotFound
	}
	writeJSON(w, status, res)
}

func (s *Server) getAffidavit(w http.ResponseWriter, r *http.Request) {
	q := service.AffidavitQuery{
		Name:         r.URL.Query().Get("name"),
		Constituency: r.URL.Query().Get("constituency"),
		Party:        r.URL.Query().Get("party"),
	}
	if q.Name == "" || q.Constituency == "" || q.Party == "" {
		writeError(w, http.StatusBadRequest, "name, constituency and party are required")
		return
	}

	res, err := s.svc.ResolveAffidavit(r.Context(), q)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	status := http.StatusOK
	if res.Outcome == resolve.OutcomeNotFound {
		status = http.StatusNotFound
	}
	writeJSON(w, status, res)
}

func (s *Server) invalidateMember(w http.ResponseWriter, r *http.Request) {
	var q service.MemberQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if q.Name == "" || !q.Role.Valid() {
		writeError(w, http.StatusBadRequest, "name and role=MP|MLA are required")
		return
	}
	s.svc.Invalidate(q)
	writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Stats(r.Context()))
}

// proxyImage streams the origin image behind an opaque id so clients never
// learn or hit the source host.
func (s *Server) proxyImage(w http.ResponseWriter, r *http.Request) {
	imageID := chi.URLParam(r, "image_id")
	srcURL, err := s.svc.ImageURL(r.Context(), imageID)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown image id")
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, srcURL, nil)
	if err != nil {
		writeError(w, http.StatusBadGateway, "bad source url")
		return
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.imageClient.Do(req)
	if err != nil {
		writeError(w, http.StatusBadGateway, "image fetch failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		writeError(w, http.StatusBadGateway, "image fetch failed")
		return
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, resp.Body); err != nil {
		s.logger.Debug("image stream aborted", zap.String("image_id", imageID), zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
