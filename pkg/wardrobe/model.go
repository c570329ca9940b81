// Package wardrobe holds the garment, laundry and outfit model
package wardrobe

import (
	"fmt"
	"time"
)

type GarmentType string

const (
	TypeTop       GarmentType = "TOP"
	TypeBottom    GarmentType = "BOTTOM"
	TypeDress     GarmentType = "DRESS"
	TypeOuterwear GarmentType = "OUTERWEAR"
	TypeShoes     GarmentType = "SHOES"
	TypeAccessory GarmentType = "ACCESSORY"
)

var GarmentTypes = []GarmentType{TypeTop, TypeBottom, TypeDress, TypeOuterwear, TypeShoes, TypeAccessory}

type Season string

const (
	SeasonSpring Season = "SPRING"
	SeasonSummer Season = "SUMMER"
	SeasonFall   Season = "FALL"
	SeasonWinter Season = "WINTER"
	// SeasonAll matches every season query.
	SeasonAll Season = "ALL_SEASON"
)

var Seasons = []Season{SeasonSpring, SeasonSummer, SeasonFall, SeasonWinter, SeasonAll}

type Status string

const (
	StatusAvailable   Status = "AVAILABLE"
	StatusInLaundry   Status = "IN_LAUNDRY"
	StatusUnavailable Status = "UNAVAILABLE"
)

var Statuses = []Status{StatusAvailable, StatusInLaundry, StatusUnavailable}

func ParseGarmentType(s string) (GarmentType, error) {
	for _, t := range GarmentTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("invalid garment type %q", s)
}

func ParseSeason(s string) (Season, error) {
	for _, season := range Seasons {
		if string(season) == s {
			return season, nil
		}
	}
	return "", fmt.Errorf("invalid season %q", s)
}

func ParseStatus(s string) (Status, error) {
	for _, status := range Statuses {
		if string(status) == s {
			return status, nil
		}
	}
	return "", fmt.Errorf("invalid status %q", s)
}

type Metadata struct {
	AIAnalysis *GarmentAnalysis `json:"aiAnalysis,omitempty"`
	StorageKey string           `json:"storageKey,omitempty"`
}

type Garment struct {
	ID          string        `json:"id"`
	ImageURL    string        `json:"imageUrl"`
	Type        GarmentType   `json:"type"`
	Color       string        `json:"color"`
	Season      []Season      `json:"season"`
	Occasion    []string      `json:"occasion"`
	Description string        `json:"description,omitempty"`
	Brand       string        `json:"brand,omitempty"`
	Status      Status        `json:"status"`
	Metadata    Metadata      `json:"metadata"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	Laundry     *LaundryEntry `json:"laundryQueue"`
}

// HasSeason reports whether the garment is tagged with season.
func (g *Garment) HasSeason(season Season) bool {
	for _, s := range g.Season {
		if s == season {
			return true
		}
	}
	return false
}

type LaundryEntry struct {
	ID                   string     `json:"id"`
	GarmentID            string     `json:"garmentId"`
	AddedAt              time.Time  `json:"addedAt"`
	EstimatedAvailableAt *time.Time `json:"estimatedAvailableAt"`
	Garment              *Garment   `json:"garment,omitempty"`
}

type Outfit struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	AISuggestion bool           `json:"aiSuggestion"`
	Prompt       string         `json:"prompt,omitempty"`
	Metadata     map[string]any `json:"metadata"`
	CreatedAt    time.Time      `json:"createdAt"`
	Garments     []Garment      `json:"garments"`
}

// GarmentAnalysis is the classification the model returns for an uploaded photo.
type GarmentAnalysis struct {
	Type        GarmentType `json:"type"`
	Color       string      `json:"color"`
	Season      []Season    `json:"season"`
	Occasion    []string    `json:"occasion"`
	Description string      `json:"description"`
	Brand       *string     `json:"brand"`
}
