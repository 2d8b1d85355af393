package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/Shivanand-hulikatti/club-events/internal/model"
	"github.com/google/uuid"
)

// Fixtures is reference data owned by other systems (identity, club
// management) that this service only reads.
type Fixtures struct {
	Users       []model.User       `json:"users"`
	Clubs       []model.Club       `json:"clubs"`
	Memberships []model.Membership `json:"memberships"`
	Resources   []model.Resource   `json:"resources"`
}

// LoadFixtures reads a JSON fixtures file.
func LoadFixtures(path string) (*Fixtures, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	var f Fixtures
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	return &f, nil
}

// Seed upserts fixtures in one transaction. Resources whose hall number
// already exists are skipped.
func Seed(ctx context.Context, store Store, f *Fixtures) error {
	return store.InTx(ctx, func(tx Store) error {
		for i := range f.Users {
			if err := tx.Users().Put(ctx, &f.Users[i]); err != nil {
				return err
			}
		}
		for i := range f.Clubs {
			if err := tx.Clubs().Put(ctx, &f.Clubs[i]); err != nil {
				return err
			}
		}
		for i := range f.Memberships {
			if err := tx.Clubs().PutMembership(ctx, &f.Memberships[i]); err != nil {
				return err
			}
		}
		existing, err := tx.Resources().List(ctx, false)
		if err != nil {
			return err
		}
		taken := make(map[string]bool, len(existing))
		for _, r := range existing {
			taken[r.HallNo] = true
		}
		for i := range f.Resources {
			res := f.Resources[i]
			if taken[res.HallNo] {
				continue
			}
			if res.ID == "" {
				res.ID = uuid.New().String()
			}
			if res.CreatedAt.IsZero() {
				res.CreatedAt = time.Now().UTC()
				res.UpdatedAt = res.CreatedAt
			}
			if err := tx.Resources().Create(ctx, &res); err != nil {
				return err
			}
		}
		return nil
	})
}
