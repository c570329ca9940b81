package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/sealor/closet-whisperer/pkg/gateway"
	"github.com/sealor/closet-whisperer/pkg/imagestore"
	"github.com/sealor/closet-whisperer/pkg/store"
	"github.com/sealor/closet-whisperer/pkg/wardrobe"
	"go.uber.org/zap"
)

// handleCreateGarment stores the uploaded photo, lets the model classify it and creates the garment.
func (s *Server) handleCreateGarment(w http.ResponseWriter, r *http.Request) {
	data, mimeType, err := readUpload(w, r)
	var bodyTooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, errNoFile):
		writeError(w, http.StatusBadRequest, msgNoFileUploaded)
		return
	case errors.Is(err, imagestore.ErrTooLarge), errors.As(err, &bodyTooLarge):
		writeError(w, http.StatusBadRequest, msgFileTooLarge)
		return
	case err != nil:
		s.fail(w, r, http.StatusBadRequest, msgNoFileUploaded, err)
		return
	}
	if !imagestore.ValidType(mimeType) {
		writeError(w, http.StatusBadRequest, msgInvalidFileType)
		return
	}

	ctx := r.Context()
	key, err := s.images.Upload(ctx, data, mimeType)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, msgFailedCreateGarment, err)
		return
	}

	analysis, err := s.analyzer.AnalyzeGarment(ctx, gateway.DataURL(mimeType, data))
	if err != nil {
		s.discardImage(r, key)
		s.fail(w, r, http.StatusInternalServerError, msgFailedCreateGarment, err)
		return
	}

	in := store.NewGarment{
		ImageURL:    s.imageURL(key),
		Type:        analysis.Type,
		Color:       analysis.Color,
		Season:      analysis.Season,
		Occasion:    analysis.Occasion,
		Description: analysis.Description,
		Status:      wardrobe.StatusAvailable,
		Metadata:    wardrobe.Metadata{AIAnalysis: analysis, StorageKey: key},
	}
	if analysis.Brand != nil {
		in.Brand = *analysis.Brand
	}

	garment, err := s.wardrobe.CreateGarment(ctx, in)
	if err != nil {
		s.discardImage(r, key)
		s.fail(w, r, http.StatusInternalServerError, msgFailedCreateGarment, err)
		return
	}

	writeJSON(w, http.StatusCreated, garment)
}

var errNoFile = errors.New("no file part")

// readUpload returns the first file part of a multipart request and its declared mime type.
func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, imagestore.MaxFileSize+1<<20)

	reader, err := r.MultipartReader()
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", errNoFile, err)
	}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, "", errNoFile
		}
		if err != nil {
			return nil, "", err
		}
		if part.FileName() == "" {
			_, err := io.Copy(io.Discard, part)
			part.Close()
			if err != nil {
				return nil, "", err
			}
			continue
		}

		data, err := io.ReadAll(io.LimitReader(part, imagestore.MaxFileSize+1))
		part.Close()
		if err != nil {
			return nil, "", err
		}
		if len(data) > imagestore.MaxFileSize {
			return nil, "", imagestore.ErrTooLarge
		}

		mimeType, _, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err != nil {
			mimeType = http.DetectContentType(data)
		}
		return data, mimeType, nil
	}
}

func (s *Server) discardImage(r *http.Request, key string) {
	if err := s.images.Delete(r.Context(), key); err != nil {
		s.log.Warn("failed to delete image", zap.String("key", key), zap.Error(err))
	}
}

func (s *Server) handleListGarments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var (
		q   store.GarmentQuery
		err error
	)

	if v := query.Get("type"); v != "" {
		if q.Type, err = wardrobe.ParseGarmentType(v); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if v := query.Get("season"); v != "" {
		season, err := wardrobe.ParseSeason(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		q.Seasons = []wardrobe.Season{season}
	}
	if v := query.Get("status"); v != "" {
		if q.Status, err = wardrobe.ParseStatus(v); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	q.Color = query.Get("color")
	q.Occasion = query.Get("occasion")
	if len(q.Color) > maxColorLength || len(q.Occasion) > maxOccasionLength {
		writeError(w, http.StatusBadRequest, "color and occasion must be at most 50 characters")
		return
	}

	garments, err := s.wardrobe.FindGarments(r.Context(), q)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, msgFailedListGarments, err)
		return
	}
	writeJSON(w, http.StatusOK, garments)
}

func (s *Server) handleGetGarment(w http.ResponseWriter, r *http.Request) {
	garment, err := s.wardrobe.GetGarment(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgGarmentNotFound)
		return
	}
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, msgFailedGetGarment, err)
		return
	}
	writeJSON(w, http.StatusOK, garment)
}

type updateGarmentRequest struct {
	Type        *string  `json:"type"`
	Color       *string  `json:"color"`
	Season      []string `json:"season"`
	Occasion    []string `json:"occasion"`
	Description *string  `json:"description"`
	Brand       *string  `json:"brand"`
}

func (req *updateGarmentRequest) toPatch() (store.GarmentPatch, error) {
	var patch store.GarmentPatch
	if req.Type != nil {
		t, err := wardrobe.ParseGarmentType(*req.Type)
		if err != nil {
			return patch, err
		}
		patch.Type = &t
	}
	if req.Season != nil {
		patch.Season = []wardrobe.Season{}
		for _, v := range req.Season {
			season, err := wardrobe.ParseSeason(v)
			if err != nil {
				return patch, err
			}
			patch.Season = append(patch.Season, season)
		}
	}
	patch.Color = req.Color
	patch.Occasion = req.Occasion
	patch.Description = req.Description
	patch.Brand = req.Brand
	return patch, nil
}

func (s *Server) handleUpdateGarment(w http.ResponseWriter, r *http.Request) {
	var req updateGarmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequestBodyJSON)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	garment, err := s.wardrobe.UpdateGarment(r.Context(), r.PathValue("id"), patch)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgGarmentNotFound)
		return
	}
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, msgFailedUpdateGarment, err)
		return
	}
	writeJSON(w, http.StatusOK, garment)
}

func (s *Server) handleDeleteGarment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	garment, err := s.wardrobe.GetGarment(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgGarmentNotFound)
		return
	}
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, msgFailedDeleteGarment, err)
		return
	}

	if key := garment.Metadata.StorageKey; key != "" {
		if err := s.images.Delete(ctx, key); err != nil && !errors.Is(err, imagestore.ErrNotFound) {
			s.fail(w, r, http.StatusInternalServerError, msgFailedDeleteGarment, err)
			return
		}
	}

	if err := s.wardrobe.DeleteGarment(ctx, id); err != nil {
		s.fail(w, r, http.StatusInternalServerError, msgFailedDeleteGarment, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addToLaundryRequest struct {
	EstimatedAvailableAt *string `json:"estimatedAvailableAt"`
}

func (s *Server) handleAddToLaundry(w http.ResponseWriter, r *http.Request) {
	var req addToLaundryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequestBodyJSON)
		return
	}

	var eta *time.Time
	if req.EstimatedAvailableAt != nil {
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(*req.EstimatedAvailableAt))
		if err != nil {
			writeError(w, http.StatusBadRequest, "estimatedAvailableAt must be an RFC 3339 datetime")
			return
		}
		eta = &t
	}

	entry, err := s.wardrobe.AddToLaundry(r.Context(), r.PathValue("id"), eta)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgGarmentNotFound)
		return
	}
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, msgFailedAddToLaundry, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleRemoveFromLaundry(w http.ResponseWriter, r *http.Request) {
	err := s.wardrobe.RemoveFromLaundry(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgGarmentNotFound)
		return
	}
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, msgFailedRemoveLaundry, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListLaundry(w http.ResponseWriter, r *http.Request) {
	entries, err := s.wardrobe.ListLaundry(r.Context())
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, msgFailedListLaundry, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	data, err := s.images.Download(r.Context(), key)
	if errors.Is(err, imagestore.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgImageNotFound)
		return
	}
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, msgImageNotFound, err)
		return
	}
	w.Header().Set("Content-Type", imagestore.ContentType(key))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
