package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sealor/closet-whisperer/pkg/wardrobe"
)

// GarmentQuery narrows FindGarments. Zero fields are ignored, so an empty Status means any status.
type GarmentQuery struct {
	Type     wardrobe.GarmentType
	Color    string
	Seasons  []wardrobe.Season // garment must carry at least one of them
	Occasion string
	Status   wardrobe.Status
	IDs      []string
}

type NewGarment struct {
	ImageURL    string
	Type        wardrobe.GarmentType
	Color       string
	Season      []wardrobe.Season
	Occasion    []string
	Description string
	Brand       string
	Status      wardrobe.Status
	Metadata    wardrobe.Metadata
}

// GarmentPatch updates only the non-nil fields.
type GarmentPatch struct {
	Type        *wardrobe.GarmentType
	Color       *string
	Season      []wardrobe.Season
	Occasion    []string
	Description *string
	Brand       *string
	Status      *wardrobe.Status
}

const garmentColumns = `g.id, g.image_url, g.type, g.color, g.season, g.occasion, g.description, g.brand,
	g.status, g.metadata, g.created_at, g.updated_at, l.id, l.added_at, l.estimated_available_at`

const garmentFrom = ` FROM garments g LEFT JOIN laundry_queue l ON l.garment_id = g.id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGarment(row rowScanner) (*wardrobe.Garment, error) {
	var (
		g                      wardrobe.Garment
		season, occasion, meta string
		createdAt, updatedAt   int64
		laundryID              sql.NullString
		addedAt, eta           sql.NullInt64
	)
	err := row.Scan(&g.ID, &g.ImageURL, &g.Type, &g.Color, &season, &occasion, &g.Description, &g.Brand,
		&g.Status, &meta, &createdAt, &updatedAt, &laundryID, &addedAt, &eta)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(season), &g.Season); err != nil {
		return nil, fmt.Errorf("failed to decode season of garment %s: %w", g.ID, err)
	}
	if err := json.Unmarshal([]byte(occasion), &g.Occasion); err != nil {
		return nil, fmt.Errorf("failed to decode occasion of garment %s: %w", g.ID, err)
	}
	if err := json.Unmarshal([]byte(meta), &g.Metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata of garment %s: %w", g.ID, err)
	}
	g.CreatedAt = fromUnix(createdAt)
	g.UpdatedAt = fromUnix(updatedAt)

	if laundryID.Valid {
		g.Laundry = &wardrobe.LaundryEntry{ID: laundryID.String, GarmentID: g.ID, AddedAt: fromUnix(addedAt.Int64)}
		if eta.Valid {
			t := fromUnix(eta.Int64)
			g.Laundry.EstimatedAvailableAt = &t
		}
	}
	return &g, nil
}

func (s *Store) CreateGarment(ctx context.Context, in NewGarment) (*wardrobe.Garment, error) {
	if in.Status == "" {
		in.Status = wardrobe.StatusAvailable
	}
	if in.Season == nil {
		in.Season = []wardrobe.Season{}
	}
	if in.Occasion == nil {
		in.Occasion = []string{}
	}

	season, err := encodeJSON(in.Season)
	if err != nil {
		return nil, err
	}
	occasion, err := encodeJSON(in.Occasion)
	if err != nil {
		return nil, err
	}
	meta, err := encodeJSON(in.Metadata)
	if err != nil {
		return nil, err
	}

	id := s.newID()
	now := toUnix(s.now())
	_, err = s.db.ExecContext(ctx, `INSERT INTO garments
		(id, image_url, type, color, season, occasion, description, brand, status, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.ImageURL, in.Type, in.Color, season, occasion, in.Description, in.Brand, in.Status, meta, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert garment: %w", err)
	}

	return s.GetGarment(ctx, id)
}

// GetGarment returns the garment with its laundry entry, or ErrNotFound.
func (s *Store) GetGarment(ctx context.Context, id string) (*wardrobe.Garment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+garmentColumns+garmentFrom+` WHERE g.id = ?`, id)
	g, err := scanGarment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get garment: %w", err)
	}
	return g, nil
}

// FindGarments returns the garments matching every field of q, newest first.
func (s *Store) FindGarments(ctx context.Context, q GarmentQuery) ([]wardrobe.Garment, error) {
	var (
		where []string
		args  []any
	)
	if q.Type != "" {
		where = append(where, "g.type = ?")
		args = append(args, q.Type)
	}
	if q.Color != "" {
		where = append(where, "contains_fold(g.color, ?)")
		args = append(args, q.Color)
	}
	if len(q.Seasons) > 0 {
		where = append(where, "EXISTS (SELECT 1 FROM json_each(g.season) WHERE json_each.value IN ("+placeholders(len(q.Seasons))+"))")
		for _, season := range q.Seasons {
			args = append(args, season)
		}
	}
	if q.Occasion != "" {
		where = append(where, "EXISTS (SELECT 1 FROM json_each(g.occasion) WHERE json_each.value = ?)")
		args = append(args, q.Occasion)
	}
	if q.Status != "" {
		where = append(where, "g.status = ?")
		args = append(args, q.Status)
	}
	if q.IDs != nil {
		if len(q.IDs) == 0 {
			return []wardrobe.Garment{}, nil
		}
		where = append(where, "g.id IN ("+placeholders(len(q.IDs))+")")
		for _, id := range q.IDs {
			args = append(args, id)
		}
	}

	query := `SELECT ` + garmentColumns + garmentFrom
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY g.created_at DESC, g.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query garments: %w", err)
	}
	defer rows.Close()

	garments := []wardrobe.Garment{}
	for rows.Next() {
		g, err := scanGarment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan garment: %w", err)
		}
		garments = append(garments, *g)
	}
	return garments, rows.Err()
}

func (s *Store) UpdateGarment(ctx context.Context, id string, patch GarmentPatch) (*wardrobe.Garment, error) {
	var (
		set  []string
		args []any
	)
	if patch.Type != nil {
		set = append(set, "type = ?")
		args = append(args, *patch.Type)
	}
	if patch.Color != nil {
		set = append(set, "color = ?")
		args = append(args, *patch.Color)
	}
	if patch.Season != nil {
		season, err := encodeJSON(patch.Season)
		if err != nil {
			return nil, err
		}
		set = append(set, "season = ?")
		args = append(args, season)
	}
	if patch.Occasion != nil {
		occasion, err := encodeJSON(patch.Occasion)
		if err != nil {
			return nil, err
		}
		set = append(set, "occasion = ?")
		args = append(args, occasion)
	}
	if patch.Description != nil {
		set = append(set, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Brand != nil {
		set = append(set, "brand = ?")
		args = append(args, *patch.Brand)
	}
	if patch.Status != nil {
		set = append(set, "status = ?")
		args = append(args, *patch.Status)
	}
	set = append(set, "updated_at = ?")
	args = append(args, toUnix(s.now()), id)

	res, err := s.db.ExecContext(ctx, "UPDATE garments SET "+strings.Join(set, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update garment: %w", err)
	}
	if err := expectAffected(res); err != nil {
		return nil, err
	}
	return s.GetGarment(ctx, id)
}

// DeleteGarment removes the garment; laundry entries and outfit memberships cascade.
func (s *Store) DeleteGarment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM garments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete garment: %w", err)
	}
	return expectAffected(res)
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
