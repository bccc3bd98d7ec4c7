package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/domain/draw"
	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/domain/rating"
	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/domain/recommendation"
	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/domain/round"
	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/notify"
)

// Server wires HTTP handlers over the domain services.
type Server struct {
	rounds          *round.Service
	recommendations *recommendation.Service
	ratings         *rating.Service
	hub             *notify.Hub
	logger          *slog.Logger

	// inviteBaseURL is the public URL clients join through; the invite QR
	// encodes it.
	inviteBaseURL string
}

// NewServer creates an HTTP server router with middleware.
func NewServer(
	rounds *round.Service,
	recommendations *recommendation.Service,
	ratings *rating.Service,
	hub *notify.Hub,
	logger *slog.Logger,
	inviteBaseURL string,
	authMiddleware func(http.Handler) http.Handler,
) *chi.Mux {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	srv := &Server{
		rounds:          rounds,
		recommendations: recommendations,
		ratings:         ratings,
		hub:             hub,
		logger:          logger,
		inviteBaseURL:   inviteBaseURL,
	}

	r := chi.NewRouter()
	r.Get("/health", srv.handleHealth)

	r.Group(func(r chi.Router) {
		if authMiddleware != nil {
			r.Use(authMiddleware)
		}

		r.Get("/ws", srv.handleWebsocket)

		r.Route("/rounds", func(r chi.Router) {
			r.Post("/", srv.handleCreateRound)
			r.Get("/current", srv.handleCurrentRound)

			r.Route("/{roundID}", func(r chi.Router) {
				r.Get("/", srv.handleGetRound)
				r.Patch("/", srv.handleForceUpdate)
				r.Delete("/", srv.handleDeleteRound)
				r.Get("/invite.png", srv.handleInviteQR)

				r.Post("/participants", srv.handleAddParticipant)
				r.Delete("/participants/{userID}", srv.handleRemoveParticipant)
				r.Post("/exclusions", srv.handleAddExclusion)
				r.Delete("/exclusions/{userA}/{userB}", srv.handleRemoveExclusion)

				r.Post("/draw", srv.handleDraw)
				r.Post("/reveal", srv.handleReveal)
				r.Post("/indication", srv.handleStartIndication)
				r.Post("/close", srv.handleClose)
				r.Post("/reopen", srv.handleReopen)
				r.Post("/finalize", srv.handleFinalize)

				r.Get("/recommendations", srv.handleListRecommendations)
				r.Put("/recommendation", srv.handleSaveRecommendation)
				r.Get("/ratings", srv.handleListRatings)
				r.Put("/rating", srv.handleSaveRating)
				r.Delete("/rating", srv.handleClearRating)
			})
		})

		r.Post("/recommendations/{recommendationID}/comments", srv.handleAddComment)
		r.Patch("/comments/{commentID}", srv.handleUpdateComment)
		r.Delete("/comments/{commentID}", srv.handleDeleteComment)
		r.Put("/comments/{commentID}/like", srv.handleLikeComment)
		r.Delete("/comments/{commentID}/like", srv.handleUnlikeComment)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// actor pulls the resolved actor off the request. The auth middleware
// guarantees it; a miss means the route was wired without it.
func (s *Server) actor(w http.ResponseWriter, r *http.Request) (round.Actor, bool) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return round.Actor{}, false
	}
	return actor, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, fmt.Errorf("%w: malformed request body", round.ErrValidation))
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response", "error", err)
	}
}

// writeError maps the domain error taxonomy onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, round.ErrValidation), errors.Is(err, draw.ErrUnknownMember):
		status = http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, round.ErrPermission):
		status = http.StatusForbidden
	case errors.Is(err, round.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, round.ErrPhaseConflict),
		errors.Is(err, round.ErrDuplicate),
		errors.Is(err, round.ErrActiveRoundExists):
		status = http.StatusConflict
	case errors.Is(err, draw.ErrInfeasible):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
		// Internal details stay out of the response body.
		s.writeJSON(w, status, map[string]string{"error": "internal error"})
		return
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleCreateRound(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	snap, err := s.rounds.Create(r.Context(), actor)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleCurrentRound(w http.ResponseWriter, r *http.Request) {
	snap, err := s.rounds.Current(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleGetRound(w http.ResponseWriter, r *http.Request) {
	snap, err := s.rounds.Get(r.Context(), chi.URLParam(r, "roundID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDeleteRound(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	if err := s.rounds.Delete(r.Context(), actor, chi.URLParam(r, "roundID")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleInviteQR renders the join link for the round as a QR code, for
// passing around on a shared screen.
func (s *Server) handleInviteQR(w http.ResponseWriter, r *http.Request) {
	roundID := chi.URLParam(r, "roundID")
	if _, err := s.rounds.Get(r.Context(), roundID); err != nil {
		s.writeError(w, err)
		return
	}

	url := fmt.Sprintf("%s/rounds/%s", s.inviteBaseURL, roundID)
	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		s.writeError(w, fmt.Errorf("encoding invite qr: %w", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (s *Server) handleAddParticipant(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req struct {
		UserID int64 `json:"userId"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	snap, err := s.rounds.AddParticipant(r.Context(), actor, chi.URLParam(r, "roundID"), req.UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleRemoveParticipant(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: user id must be numeric", round.ErrValidation))
		return
	}
	snap, err := s.rounds.RemoveParticipant(r.Context(), actor, chi.URLParam(r, "roundID"), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleAddExclusion(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req struct {
		UserA int64 `json:"userA"`
		UserB int64 `json:"userB"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	snap, err := s.rounds.AddExclusion(r.Context(), actor, chi.URLParam(r, "roundID"), req.UserA, req.UserB)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleRemoveExclusion(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	userA, errA := strconv.ParseInt(chi.URLParam(r, "userA"), 10, 64)
	userB, errB := strconv.ParseInt(chi.URLParam(r, "userB"), 10, 64)
	if errA != nil || errB != nil {
		s.writeError(w, fmt.Errorf("%w: user ids must be numeric", round.ErrValidation))
		return
	}
	snap, err := s.rounds.RemoveExclusion(r.Context(), actor, chi.URLParam(r, "roundID"), userA, userB)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDraw(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	snap, err := s.rounds.Draw(r.Context(), actor, chi.URLParam(r, "roundID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req struct {
		GiverID int64 `json:"giverId"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	snap, err := s.rounds.Reveal(r.Context(), actor, chi.URLParam(r, "roundID"), req.GiverID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleStartIndication(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req struct {
		RatingStartsAt time.Time `json:"ratingStartsAt"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	snap, err := s.rounds.StartIndication(r.Context(), actor, chi.URLParam(r, "roundID"), req.RatingStartsAt)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	snap, err := s.rounds.Close(r.Context(), actor, chi.URLParam(r, "roundID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleReopen(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	snap, err := s.rounds.Reopen(r.Context(), actor, chi.URLParam(r, "roundID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	snap, err := s.rounds.Finalize(r.Context(), actor, chi.URLParam(r, "roundID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleForceUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req struct {
		Status         string     `json:"status"`
		RatingStartsAt *time.Time `json:"ratingStartsAt"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	snap, err := s.rounds.ForceUpdate(r.Context(), actor, chi.URLParam(r, "roundID"), req.Status, req.RatingStartsAt)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}
