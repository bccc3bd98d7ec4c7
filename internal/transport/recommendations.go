package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/domain/rating"
	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/domain/recommendation"
)

func (s *Server) handleSaveRecommendation(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req struct {
		Title string `json:"title"`
		Notes string `json:"notes"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	result, err := s.recommendations.Save(r.Context(), actor, recommendation.SaveRequest{
		RoundID: chi.URLParam(r, "roundID"),
		Title:   req.Title,
		Notes:   req.Notes,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListRecommendations(w http.ResponseWriter, r *http.Request) {
	recs, err := s.recommendations.ForRound(r.Context(), chi.URLParam(r, "roundID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"recommendations": recs})
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req struct {
		Body string `json:"body"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	c, err := s.recommendations.AddComment(r.Context(), actor, chi.URLParam(r, "recommendationID"), req.Body)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleUpdateComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req struct {
		Body string `json:"body"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	c, err := s.recommendations.UpdateComment(r.Context(), actor, chi.URLParam(r, "commentID"), req.Body)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	if err := s.recommendations.DeleteComment(r.Context(), actor, chi.URLParam(r, "commentID")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLikeComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	if err := s.recommendations.LikeComment(r.Context(), actor, chi.URLParam(r, "commentID")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnlikeComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	if err := s.recommendations.UnlikeComment(r.Context(), actor, chi.URLParam(r, "commentID")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSaveRating(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req struct {
		Score  int    `json:"score"`
		Review string `json:"review"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	result, err := s.ratings.Save(r.Context(), actor, rating.SaveRequest{
		RoundID: chi.URLParam(r, "roundID"),
		Score:   req.Score,
		Review:  req.Review,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleClearRating(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	if err := s.ratings.Clear(r.Context(), actor, chi.URLParam(r, "roundID")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListRatings(w http.ResponseWriter, r *http.Request) {
	ratings, err := s.ratings.ForRound(r.Context(), chi.URLParam(r, "roundID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"ratings": ratings})
}
