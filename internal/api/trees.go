package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/QTest-hq/cast/internal/ast"
	"github.com/QTest-hq/cast/internal/db"
	"github.com/QTest-hq/cast/internal/source"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	defaultBodyBytes = 4 << 20
	defaultListLimit = 20
	maxListLimit     = 100
)

// ParseRequest is the body of POST /api/v1/parse
type ParseRequest struct {
	Name         string `json:"name"`
	Content      string `json:"content"`
	IncludeIndex bool   `json:"include_index"`
	Save         bool   `json:"save"`
}

// ParseResponse carries the parsed tree
type ParseResponse struct {
	ID     *uuid.UUID           `json:"id,omitempty"`
	Name   string               `json:"name"`
	Digest string               `json:"digest"`
	Lines  int                  `json:"lines"`
	Counts map[ast.NodeType]int `json:"counts"`
	Tree   json.RawMessage      `json:"tree"`
}

func (s *Server) bodyLimit() int64 {
	if s.cfg != nil && s.cfg.MaxBodyBytes > 0 {
		return s.cfg.MaxBodyBytes
	}
	return defaultBodyBytes
}

func (s *Server) parse(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.bodyLimit())

	var req ParseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Save && s.store == nil {
		respondError(w, http.StatusServiceUnavailable, "no store configured")
		return
	}
	if req.Name == "" {
		req.Name = "input"
	}

	src := source.New(req.Name, []byte(req.Content))
	tree, err := ast.Parse(r.Context(), src.Lines())
	if err != nil {
		log.Error().Err(err).Str("name", req.Name).Msg("parse failed")
		if errors.Is(err, ast.ErrInvariant) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := db.NewTreeRecord(req.Name, src.Digest, tree, ast.SnapshotOptions{SkipIndex: !req.IncludeIndex})
	if err != nil {
		log.Error().Err(err).Msg("failed to snapshot tree")
		respondError(w, http.StatusInternalServerError, "failed to encode tree")
		return
	}

	resp := ParseResponse{
		Name:   rec.Name,
		Digest: rec.Digest,
		Lines:  rec.Lines,
		Counts: rec.Counts,
		Tree:   rec.Tree,
	}

	status := http.StatusOK
	if req.Save {
		if err := s.store.SaveTree(r.Context(), rec); err != nil {
			log.Error().Err(err).Str("name", req.Name).Msg("failed to save tree")
			respondError(w, http.StatusInternalServerError, "failed to save tree")
			return
		}
		resp.ID = &rec.ID
		status = http.StatusCreated

		log.Info().
			Str("tree_id", rec.ID.String()).
			Str("name", rec.Name).
			Int("lines", rec.Lines).
			Msg("tree saved")
	}

	respondJSON(w, status, resp)
}

func (s *Server) listTrees(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, "no store configured")
		return
	}

	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxListLimit)
	}

	recs, err := s.store.ListTrees(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list trees")
		respondError(w, http.StatusInternalServerError, "failed to list trees")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"trees": recs,
		"count": len(recs),
	})
}

func (s *Server) getTree(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, "no store configured")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "treeID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid tree ID")
		return
	}

	rec, err := s.store.GetTree(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusNotFound, "tree not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("tree_id", id.String()).Msg("failed to get tree")
		respondError(w, http.StatusInternalServerError, "failed to get tree")
		return
	}

	respondJSON(w, http.StatusOK, rec)
}
