package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sealor/closet-whisperer/pkg/wardrobe"
)

// AddToLaundry marks the garment IN_LAUNDRY and queues it. Re-adding a queued garment refreshes its entry.
func (s *Store) AddToLaundry(ctx context.Context, garmentID string, estimatedAvailableAt *time.Time) (*wardrobe.LaundryEntry, error) {
	now := s.now()
	var eta sql.NullInt64
	if estimatedAvailableAt != nil {
		eta = sql.NullInt64{Int64: toUnix(*estimatedAvailableAt), Valid: true}
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "UPDATE garments SET status = ?, updated_at = ? WHERE id = ?",
			wardrobe.StatusInLaundry, toUnix(now), garmentID)
		if err != nil {
			return fmt.Errorf("failed to update garment status: %w", err)
		}
		if err := expectAffected(res); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO laundry_queue (id, garment_id, added_at, estimated_available_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(garment_id) DO UPDATE SET added_at = excluded.added_at,
				estimated_available_at = excluded.estimated_available_at`,
			s.newID(), garmentID, toUnix(now), eta)
		if err != nil {
			return fmt.Errorf("failed to queue garment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	garment, err := s.GetGarment(ctx, garmentID)
	if err != nil {
		return nil, err
	}
	// the entry may be gone again if the garment left the queue after the commit
	return detachLaundry(garment)
}

// detachLaundry turns a queued garment into its laundry entry carrying the garment.
func detachLaundry(garment *wardrobe.Garment) (*wardrobe.LaundryEntry, error) {
	if garment.Laundry == nil {
		return nil, ErrNotFound
	}
	entry := *garment.Laundry
	garment.Laundry = nil
	entry.Garment = garment
	return &entry, nil
}

// RemoveFromLaundry makes the garment AVAILABLE again and drops its queue entry.
func (s *Store) RemoveFromLaundry(ctx context.Context, garmentID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "UPDATE garments SET status = ?, updated_at = ? WHERE id = ?",
			wardrobe.StatusAvailable, toUnix(s.now()), garmentID)
		if err != nil {
			return fmt.Errorf("failed to update garment status: %w", err)
		}
		if err := expectAffected(res); err != nil {
			return err
		}
		res, err = tx.ExecContext(ctx, "DELETE FROM laundry_queue WHERE garment_id = ?", garmentID)
		if err != nil {
			return fmt.Errorf("failed to dequeue garment: %w", err)
		}
		return expectAffected(res)
	})
}

// ListLaundry returns the queue, most recently added first.
func (s *Store) ListLaundry(ctx context.Context) ([]wardrobe.LaundryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+garmentColumns+garmentFrom+`
		WHERE l.id IS NOT NULL ORDER BY l.added_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query laundry: %w", err)
	}
	defer rows.Close()

	entries := []wardrobe.LaundryEntry{}
	for rows.Next() {
		g, err := scanGarment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan laundry entry: %w", err)
		}
		entry, err := detachLaundry(g)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}
