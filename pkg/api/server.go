// Package api exposes the wardrobe over a JSON REST API
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sealor/closet-whisperer/pkg/store"
	"github.com/sealor/closet-whisperer/pkg/wardrobe"
	"go.uber.org/zap"
)

const (
	maxColorLength    = 50
	maxOccasionLength = 50
	maxPromptLength   = 500
)

const (
	msgNoFileUploaded         = "No file uploaded"
	msgInvalidFileType        = "Invalid file type. Only JPEG, PNG, GIF, and WebP images are allowed."
	msgFileTooLarge           = "File size exceeds 10MB limit"
	msgGarmentNotFound        = "Garment not found"
	msgOutfitNotFound         = "Outfit not found"
	msgSomeGarmentsNotFound   = "Some garments not found"
	msgFailedCreateGarment    = "Failed to create garment"
	msgFailedUpdateGarment    = "Failed to update garment"
	msgFailedDeleteGarment    = "Failed to delete garment"
	msgFailedListGarments     = "Failed to list garments"
	msgFailedAddToLaundry     = "Failed to add to laundry"
	msgFailedRemoveLaundry    = "Failed to remove from laundry"
	msgFailedGenerateOutfit   = "Failed to generate outfit suggestions"
	msgFailedCreateOutfit     = "Failed to create outfit"
	msgFailedDeleteOutfit     = "Failed to delete outfit"
	msgFailedListLaundry      = "Failed to list laundry"
	msgFailedListOutfits      = "Failed to list outfits"
	msgFailedGetOutfit        = "Failed to get outfit"
	msgFailedGetGarment       = "Failed to get garment"
	msgImageNotFound          = "Image not found"
	msgInternalServerError    = "Internal server error"
	msgInvalidRequestBodyJSON = "Invalid JSON body"
)

// Wardrobe is the persistent garment, laundry and outfit store.
type Wardrobe interface {
	CreateGarment(ctx context.Context, in store.NewGarment) (*wardrobe.Garment, error)
	GetGarment(ctx context.Context, id string) (*wardrobe.Garment, error)
	FindGarments(ctx context.Context, q store.GarmentQuery) ([]wardrobe.Garment, error)
	UpdateGarment(ctx context.Context, id string, patch store.GarmentPatch) (*wardrobe.Garment, error)
	DeleteGarment(ctx context.Context, id string) error
	AddToLaundry(ctx context.Context, garmentID string, estimatedAvailableAt *time.Time) (*wardrobe.LaundryEntry, error)
	RemoveFromLaundry(ctx context.Context, garmentID string) error
	ListLaundry(ctx context.Context) ([]wardrobe.LaundryEntry, error)
	CreateOutfit(ctx context.Context, in store.NewOutfit) (*wardrobe.Outfit, error)
	GetOutfit(ctx context.Context, id string) (*wardrobe.Outfit, error)
	ListOutfits(ctx context.Context) ([]wardrobe.Outfit, error)
	DeleteOutfit(ctx context.Context, id string) error
}

type Images interface {
	Upload(ctx context.Context, data []byte, mimeType string) (string, error)
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

type Analyzer interface {
	AnalyzeGarment(ctx context.Context, imageURL string) (*wardrobe.GarmentAnalysis, error)
}

type Stylist interface {
	Suggest(ctx context.Context, prompt string) (*wardrobe.SuggestionSet, error)
}

type Deps struct {
	Wardrobe Wardrobe
	Images   Images
	Analyzer Analyzer
	Stylist  Stylist
}

type Options struct {
	Log *zap.Logger
	// DevMode allows every CORS origin, otherwise only AllowedOrigin.
	DevMode       bool
	AllowedOrigin string
	// PublicBaseURL prefixes image URLs; empty keeps them relative to the API.
	PublicBaseURL string
}

type Server struct {
	wardrobe      Wardrobe
	images        Images
	analyzer      Analyzer
	stylist       Stylist
	log           *zap.Logger
	publicBaseURL string
	now           func() time.Time
}

func NewServer(deps Deps, opts Options) http.Handler {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		wardrobe:      deps.Wardrobe,
		images:        deps.Images,
		analyzer:      deps.Analyzer,
		stylist:       deps.Stylist,
		log:           log,
		publicBaseURL: strings.TrimRight(opts.PublicBaseURL, "/"),
		now:           time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /api/garments", s.handleCreateGarment)
	mux.HandleFunc("GET /api/garments", s.handleListGarments)
	mux.HandleFunc("GET /api/garments/{id}", s.handleGetGarment)
	mux.HandleFunc("PUT /api/garments/{id}", s.handleUpdateGarment)
	mux.HandleFunc("DELETE /api/garments/{id}", s.handleDeleteGarment)
	mux.HandleFunc("POST /api/garments/{id}/laundry", s.handleAddToLaundry)
	mux.HandleFunc("DELETE /api/garments/{id}/laundry", s.handleRemoveFromLaundry)
	mux.HandleFunc("GET /api/laundry", s.handleListLaundry)

	mux.HandleFunc("POST /api/outfits/generate", s.handleGenerateOutfit)
	mux.HandleFunc("POST /api/outfits", s.handleCreateOutfit)
	mux.HandleFunc("GET /api/outfits", s.handleListOutfits)
	mux.HandleFunc("GET /api/outfits/{id}", s.handleGetOutfit)
	mux.HandleFunc("DELETE /api/outfits/{id}", s.handleDeleteOutfit)

	mux.HandleFunc("GET /api/images/{key}", s.handleGetImage)

	return chainMiddlewares(mux,
		withRecover(log),
		withCORS(opts.DevMode, opts.AllowedOrigin),
		withLogging(log),
	)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339Nano),
	})
}

// ─────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads an optional JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// fail logs err and answers with status and the public message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, msg string, err error) {
	s.log.Error(msg, zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	writeError(w, status, msg)
}

func (s *Server) imageURL(key string) string {
	return s.publicBaseURL + "/api/images/" + key
}
