package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sealor/closet-whisperer/pkg/store"
	"github.com/sealor/closet-whisperer/pkg/wardrobe"
)

type generateOutfitRequest struct {
	Prompt   string `json:"prompt"`
	Occasion string `json:"occasion"`
	Season   string `json:"season"`
}

type validatedSuggestion struct {
	wardrobe.OutfitSuggestion
	Garments []wardrobe.Garment `json:"garments"`
}

type generateOutfitResponse struct {
	Suggestions []validatedSuggestion `json:"suggestions"`
	Reasoning   string                `json:"reasoning"`
}

// stylistPrompt appends the optional occasion and season hints to the user's prompt.
func (req *generateOutfitRequest) stylistPrompt() string {
	prompt := strings.TrimSpace(req.Prompt)
	if req.Occasion != "" {
		prompt += "\nOccasion: " + req.Occasion
	}
	if req.Season != "" {
		prompt += "\nSeason: " + req.Season
	}
	return prompt
}

func (s *Server) handleGenerateOutfit(w http.ResponseWriter, r *http.Request) {
	var req generateOutfitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequestBodyJSON)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" || len(req.Prompt) > maxPromptLength {
		writeError(w, http.StatusBadRequest, "prompt must be between 1 and 500 characters")
		return
	}
	if req.Season != "" {
		if _, err := wardrobe.ParseSeason(req.Season); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if len(req.Occasion) > maxOccasionLength {
		writeError(w, http.StatusBadRequest, "occasion must be at most 50 characters")
		return
	}

	ctx := r.Context()
	result, err := s.stylist.Suggest(ctx, req.stylistPrompt())
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, msgFailedGenerateOutfit, err)
		return
	}

	suggestions, err := s.validateSuggestions(ctx, result.Suggestions)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, msgFailedGenerateOutfit, err)
		return
	}

	writeJSON(w, http.StatusOK, generateOutfitResponse{Suggestions: suggestions, Reasoning: result.Reasoning})
}

// validateSuggestions keeps only suggestions whose garments all exist and are still available.
// A suggestion naming no garments passes with an empty garment list.
func (s *Server) validateSuggestions(ctx context.Context, suggestions []wardrobe.OutfitSuggestion) ([]validatedSuggestion, error) {
	validated := []validatedSuggestion{}
	for _, suggestion := range suggestions {
		if len(suggestion.GarmentIDs) == 0 {
			suggestion.GarmentIDs = []string{}
			validated = append(validated, validatedSuggestion{OutfitSuggestion: suggestion, Garments: []wardrobe.Garment{}})
			continue
		}
		garments, err := s.wardrobe.FindGarments(ctx, store.GarmentQuery{
			IDs:    suggestion.GarmentIDs,
			Status: wardrobe.StatusAvailable,
		})
		if err != nil {
			return nil, err
		}
		if len(garments) != len(suggestion.GarmentIDs) {
			continue
		}
		validated = append(validated, validatedSuggestion{
			OutfitSuggestion: suggestion,
			Garments:         orderByIDs(garments, suggestion.GarmentIDs),
		})
	}
	return validated, nil
}

func orderByIDs(garments []wardrobe.Garment, ids []string) []wardrobe.Garment {
	byID := make(map[string]wardrobe.Garment, len(garments))
	for _, g := range garments {
		byID[g.ID] = g
	}
	ordered := make([]wardrobe.Garment, 0, len(ids))
	for _, id := range ids {
		if g, ok := byID[id]; ok {
			ordered = append(ordered, g)
		}
	}
	return ordered
}

type createOutfitRequest struct {
	Name         string         `json:"name"`
	GarmentIDs   []string       `json:"garmentIds"`
	AISuggestion bool           `json:"aiSuggestion"`
	Prompt       string         `json:"prompt"`
	Metadata     map[string]any `json:"metadata"`
}

func (s *Server) handleCreateOutfit(w http.ResponseWriter, r *http.Request) {
	var req createOutfitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequestBodyJSON)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if len(req.GarmentIDs) == 0 {
		writeError(w, http.StatusBadRequest, "garmentIds must contain at least one id")
		return
	}

	ctx := r.Context()
	garments, err := s.wardrobe.FindGarments(ctx, store.GarmentQuery{IDs: req.GarmentIDs})
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, msgFailedCreateOutfit, err)
		return
	}
	if len(garments) != len(req.GarmentIDs) {
		writeError(w, http.StatusBadRequest, msgSomeGarmentsNotFound)
		return
	}

	outfit, err := s.wardrobe.CreateOutfit(ctx, store.NewOutfit{
		Name:         req.Name,
		GarmentIDs:   req.GarmentIDs,
		AISuggestion: req.AISuggestion,
		Prompt:       req.Prompt,
		Metadata:     req.Metadata,
	})
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, msgFailedCreateOutfit, err)
		return
	}
	writeJSON(w, http.StatusCreated, outfit)
}

func (s *Server) handleListOutfits(w http.ResponseWriter, r *http.Request) {
	outfits, err := s.wardrobe.ListOutfits(r.Context())
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, msgFailedListOutfits, err)
		return
	}
	writeJSON(w, http.StatusOK, outfits)
}

func (s *Server) handleGetOutfit(w http.ResponseWriter, r *http.Request) {
	outfit, err := s.wardrobe.GetOutfit(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgOutfitNotFound)
		return
	}
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, msgFailedGetOutfit, err)
		return
	}
	writeJSON(w, http.StatusOK, outfit)
}

func (s *Server) handleDeleteOutfit(w http.ResponseWriter, r *http.Request) {
	err := s.wardrobe.DeleteOutfit(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgOutfitNotFound)
		return
	}
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, msgFailedDeleteOutfit, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
