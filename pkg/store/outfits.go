package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sealor/closet-whisperer/pkg/wardrobe"
)

type NewOutfit struct {
	Name         string
	GarmentIDs   []string
	AISuggestion bool
	Prompt       string
	Metadata     map[string]any
}

func (s *Store) CreateOutfit(ctx context.Context, in NewOutfit) (*wardrobe.Outfit, error) {
	if in.Metadata == nil {
		in.Metadata = map[string]any{}
	}
	meta, err := encodeJSON(in.Metadata)
	if err != nil {
		return nil, err
	}

	id := s.newID()
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO outfits (id, name, ai_suggestion, prompt, metadata, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`, id, in.Name, in.AISuggestion, in.Prompt, meta, toUnix(s.now()))
		if err != nil {
			return fmt.Errorf("failed to insert outfit: %w", err)
		}
		for i, garmentID := range in.GarmentIDs {
			_, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO outfit_garments (outfit_id, garment_id, position)
				VALUES (?, ?, ?)`, id, garmentID, i)
			if err != nil {
				return fmt.Errorf("failed to link garment %s: %w", garmentID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetOutfit(ctx, id)
}

func (s *Store) GetOutfit(ctx context.Context, id string) (*wardrobe.Outfit, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, ai_suggestion, prompt, metadata, created_at
		FROM outfits WHERE id = ?`, id)
	outfit, err := scanOutfit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get outfit: %w", err)
	}
	if err := s.loadOutfitGarments(ctx, outfit); err != nil {
		return nil, err
	}
	return outfit, nil
}

// ListOutfits returns all outfits with their garments, newest first.
func (s *Store) ListOutfits(ctx context.Context) ([]wardrobe.Outfit, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, ai_suggestion, prompt, metadata, created_at
		FROM outfits ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query outfits: %w", err)
	}
	outfits := []wardrobe.Outfit{}
	for rows.Next() {
		outfit, err := scanOutfit(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan outfit: %w", err)
		}
		outfits = append(outfits, *outfit)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	// the single connection is free again once rows is closed
	for i := range outfits {
		if err := s.loadOutfitGarments(ctx, &outfits[i]); err != nil {
			return nil, err
		}
	}
	return outfits, nil
}

func (s *Store) DeleteOutfit(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM outfits WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete outfit: %w", err)
	}
	return expectAffected(res)
}

func scanOutfit(row rowScanner) (*wardrobe.Outfit, error) {
	var (
		outfit    wardrobe.Outfit
		meta      string
		createdAt int64
	)
	if err := row.Scan(&outfit.ID, &outfit.Name, &outfit.AISuggestion, &outfit.Prompt, &meta, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(meta), &outfit.Metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata of outfit %s: %w", outfit.ID, err)
	}
	outfit.CreatedAt = fromUnix(createdAt)
	return &outfit, nil
}

func (s *Store) loadOutfitGarments(ctx context.Context, outfit *wardrobe.Outfit) error {
	rows, err := s.db.QueryContext(ctx, `SELECT `+garmentColumns+garmentFrom+`
		JOIN outfit_garments og ON og.garment_id = g.id
		WHERE og.outfit_id = ? ORDER BY og.position`, outfit.ID)
	if err != nil {
		return fmt.Errorf("failed to query outfit garments: %w", err)
	}
	defer rows.Close()

	outfit.Garments = []wardrobe.Garment{}
	for rows.Next() {
		g, err := scanGarment(rows)
		if err != nil {
			return fmt.Errorf("failed to scan outfit garment: %w", err)
		}
		outfit.Garments = append(outfit.Garments, *g)
	}
	return rows.Err()
}
