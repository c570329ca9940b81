package tooling

import (
	"context"
	"errors"

	"github.com/sealor/closet-whisperer/pkg/store"
	"github.com/sealor/closet-whisperer/pkg/wardrobe"
)

// GarmentFinder is the read side of the garment store.
type GarmentFinder interface {
	FindGarments(ctx context.Context, q store.GarmentQuery) ([]wardrobe.Garment, error)
	GetGarment(ctx context.Context, id string) (*wardrobe.Garment, error)
}

// GarmentSummary is the reduced garment record handed to the model.
type GarmentSummary struct {
	ID          string               `json:"id"`
	Type        wardrobe.GarmentType `json:"type"`
	Color       string               `json:"color"`
	Season      []wardrobe.Season    `json:"season"`
	Occasion    []string             `json:"occasion"`
	Status      wardrobe.Status      `json:"status,omitempty"`
	Description string               `json:"description"`
	ImageURL    string               `json:"imageUrl"`
	Brand       string               `json:"brand,omitempty"`
}

// Facade is the read-only wardrobe query surface exposed to the stylist model.
type Facade struct {
	garments GarmentFinder
}

func NewFacade(garments GarmentFinder) *Facade {
	return &Facade{garments: garments}
}

// GarmentFilter selects garments for SearchGarments. Without a Status only available garments match.
type GarmentFilter struct {
	Type     wardrobe.GarmentType
	Color    string
	Season   wardrobe.Season
	Occasion string
	Status   wardrobe.Status
}

func (f *Facade) SearchGarments(ctx context.Context, filter GarmentFilter) ([]GarmentSummary, error) {
	q := store.GarmentQuery{
		Type:     filter.Type,
		Color:    filter.Color,
		Occasion: filter.Occasion,
		Status:   filter.Status,
	}
	if filter.Season != "" {
		q.Seasons = []wardrobe.Season{filter.Season}
	}
	if q.Status == "" {
		q.Status = wardrobe.StatusAvailable
	}

	garments, err := f.garments.FindGarments(ctx, q)
	if err != nil {
		return nil, err
	}
	return summarize(garments, func(s *GarmentSummary, g *wardrobe.Garment) {
		s.Status = g.Status
	}), nil
}

// GetGarmentByID returns the full garment including its laundry entry, or nil if there is none.
func (f *Facade) GetGarmentByID(ctx context.Context, id string) (*wardrobe.Garment, error) {
	garment, err := f.garments.GetGarment(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return garment, err
}

func (f *Facade) GetAvailableGarments(ctx context.Context) ([]GarmentSummary, error) {
	garments, err := f.garments.FindGarments(ctx, store.GarmentQuery{Status: wardrobe.StatusAvailable})
	if err != nil {
		return nil, err
	}
	return summarize(garments, func(s *GarmentSummary, g *wardrobe.Garment) {
		s.Brand = g.Brand
	}), nil
}

// GetGarmentsBySeason matches available garments tagged with season or with ALL_SEASON.
func (f *Facade) GetGarmentsBySeason(ctx context.Context, season wardrobe.Season) ([]GarmentSummary, error) {
	garments, err := f.garments.FindGarments(ctx, store.GarmentQuery{
		Status:  wardrobe.StatusAvailable,
		Seasons: []wardrobe.Season{season, wardrobe.SeasonAll},
	})
	if err != nil {
		return nil, err
	}
	return summarize(garments, nil), nil
}

func (f *Facade) GetGarmentsByType(ctx context.Context, garmentType wardrobe.GarmentType) ([]GarmentSummary, error) {
	return f.SearchGarments(ctx, GarmentFilter{Type: garmentType, Status: wardrobe.StatusAvailable})
}

func (f *Facade) GetGarmentsByOccasion(ctx context.Context, occasion string) ([]GarmentSummary, error) {
	return f.SearchGarments(ctx, GarmentFilter{Occasion: occasion, Status: wardrobe.StatusAvailable})
}

func summarize(garments []wardrobe.Garment, extra func(*GarmentSummary, *wardrobe.Garment)) []GarmentSummary {
	summaries := make([]GarmentSummary, 0, len(garments))
	for i := range garments {
		g := &garments[i]
		s := GarmentSummary{
			ID:          g.ID,
			Type:        g.Type,
			Color:       g.Color,
			Season:      g.Season,
			Occasion:    g.Occasion,
			Description: g.Description,
			ImageURL:    g.ImageURL,
		}
		if extra != nil {
			extra(&s, g)
		}
		summaries = append(summaries, s)
	}
	return summaries
}
