package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/club-events/internal/lifecycle"
	"github.com/Shivanand-hulikatti/club-events/internal/model"
	"github.com/Shivanand-hulikatti/club-events/internal/repository"
)

var (
	clubOrAdmin = []lifecycle.Party{lifecycle.Club, lifecycle.Admin}
	adminOnly   = []lifecycle.Party{lifecycle.Admin}
	clubOnly    = []lifecycle.Party{lifecycle.Club}
)

// authorize succeeds when actor counts as any of parties for the given
// organizer. super_admin counts as every party.
func (s *EventService) authorize(ctx context.Context, tx repository.Store, actor model.Actor, org model.Organizer, parties []lifecycle.Party) error {
	if actor.Role == model.RoleSuperAdmin {
		return nil
	}
	for _, p := range parties {
		ok, err := actsAs(ctx, tx, actor, p, org)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}

	names := make([]string, len(parties))
	for i, p := range parties {
		names[i] = p.String()
	}
	return fmt.Errorf("%w: requires %s", model.ErrUnauthorized, strings.Join(names, " or "))
}

func actsAs(ctx context.Context, tx repository.Store, actor model.Actor, p lifecycle.Party, org model.Organizer) (bool, error) {
	switch p {
	case lifecycle.Admin:
		return actor.Role == model.RoleAdmin, nil
	case lifecycle.Faculty:
		return actor.Role == model.RoleFacultyCoordinator, nil
	case lifecycle.Club:
		if org.PrimaryCoordinatorID != "" && actor.UserID == org.PrimaryCoordinatorID {
			return true, nil
		}
		m, err := tx.Clubs().GetMembership(ctx, org.ClubID, actor.UserID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return false, nil
			}
			return false, fmt.Errorf("check membership: %w", err)
		}
		return m.IsActive && m.Role.IsOfficer(), nil
	}
	return false, nil
}
