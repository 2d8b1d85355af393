package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Shivanand-hulikatti/club-events/internal/capacity"
	"github.com/Shivanand-hulikatti/club-events/internal/lifecycle"
	"github.com/Shivanand-hulikatti/club-events/internal/model"
	"github.com/Shivanand-hulikatti/club-events/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ─── Allocation workflow ──────────────────────────────────────────────────────

// RequestResource asks for a resource while the event is editable. The entry
// starts pending and the event goes back through faculty review.
func (s *EventService) RequestResource(ctx context.Context, actor model.Actor, eventID string, req model.ResourceRequest) (*model.Event, error) {
	if req.ResourceID == "" {
		return nil, fmt.Errorf("%w: resource_id is required", model.ErrValidation)
	}
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", model.ErrValidation)
	}

	return s.transition(ctx, actor, eventID, lifecycle.RequestResource, func(ctx context.Context, tx repository.Store, e *model.Event) error {
		res, err := tx.Resources().Get(ctx, req.ResourceID)
		if err != nil {
			return err
		}
		if !res.IsAvailable {
			return fmt.Errorf("%w: resource %s is not available", model.ErrValidation, res.HallNo)
		}

		entry := model.Allocation{ResourceID: req.ResourceID, Quantity: req.Quantity}
		if i := e.AllocationIndex(req.ResourceID); i >= 0 {
			e.ResourcesAllocated[i] = entry
		} else {
			e.ResourcesAllocated = append(e.ResourcesAllocated, entry)
		}
		return nil
	})
}

// FacultyApproveResource passes the event's pending resource requests to the
// admins. It marks no allocation approved.
func (s *EventService) FacultyApproveResource(ctx context.Context, actor model.Actor, eventID string) (*model.Event, error) {
	return s.transition(ctx, actor, eventID, lifecycle.FacultyApprove, nil)
}

// AdminApproveResource confirms one allocation and approves the event. The
// resource must seat everyone registered at this moment; later registrations
// are not rechecked.
func (s *EventService) AdminApproveResource(ctx context.Context, actor model.Actor, eventID, resourceID string) (*model.Event, error) {
	return s.transition(ctx, actor, eventID, lifecycle.AdminApprove, func(ctx context.Context, tx repository.Store, e *model.Event) error {
		i := e.AllocationIndex(resourceID)
		if i < 0 {
			return fmt.Errorf("%w: no allocation request for resource %s", model.ErrNotFound, resourceID)
		}
		res, err := tx.Resources().Get(ctx, resourceID)
		if err != nil {
			return err
		}
		registered, err := tx.Registrations().CountByStatus(ctx, e.ID, model.RegistrationRegistered)
		if err != nil {
			return err
		}
		if !capacity.Covers(res.Capacity, registered) {
			return fmt.Errorf("%w: %s seats %d but %d are registered",
				model.ErrCapacityInsufficient, res.HallNo, res.Capacity, registered)
		}

		at := s.now()
		e.ResourcesAllocated[i].AllocatedAt = &at
		return nil
	})
}

// RemoveResourceAllocation drops the allocation entry. An approved event
// loses its approval. A non-empty reason is appended to the instructions log.
func (s *EventService) RemoveResourceAllocation(ctx context.Context, actor model.Actor, eventID, resourceID, reason string) (*model.Event, error) {
	return s.transition(ctx, actor, eventID, lifecycle.ReleaseResource, func(_ context.Context, _ repository.Store, e *model.Event) error {
		i := e.AllocationIndex(resourceID)
		if i < 0 {
			return fmt.Errorf("%w: no allocation for resource %s", model.ErrNotFound, resourceID)
		}
		e.ResourcesAllocated = slices.Delete(e.ResourcesAllocated, i, i+1)
		if reason = strings.TrimSpace(reason); reason != "" {
			e.SpecialInstructions = append(e.SpecialInstructions, "Resource allocation removed: "+reason)
		}
		return nil
	})
}

// ─── Catalogue ────────────────────────────────────────────────────────────────

// ListResources returns the catalogue, optionally only available resources.
func (s *EventService) ListResources(ctx context.Context, availableOnly bool) ([]model.Resource, error) {
	return s.store.Resources().List(ctx, availableOnly)
}

// CreateResource adds a hall to the catalogue.
func (s *EventService) CreateResource(ctx context.Context, actor model.Actor, req model.CreateResourceRequest) (*model.Resource, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	req.HallNo = strings.TrimSpace(req.HallNo)
	if req.Name == "" || req.HallNo == "" {
		return nil, fmt.Errorf("%w: name and hall_no are required", model.ErrValidation)
	}
	if req.Capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be positive", model.ErrValidation)
	}

	now := s.now()
	res := &model.Resource{
		ID:          uuid.New().String(),
		Name:        req.Name,
		HallNo:      req.HallNo,
		Building:    strings.TrimSpace(req.Building),
		Capacity:    req.Capacity,
		IsAvailable: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Resources().Create(ctx, res); err != nil {
		return nil, err
	}
	s.log.Info("resource created", zap.String("resource_id", res.ID), zap.String("hall_no", res.HallNo))
	return res, nil
}

// UpdateResource edits a resource. Nil fields are left unchanged.
func (s *EventService) UpdateResource(ctx context.Context, actor model.Actor, id string, req model.UpdateResourceRequest) (*model.Resource, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.editResource(ctx, id, func(r *model.Resource) error {
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return fmt.Errorf("%w: name is required", model.ErrValidation)
			}
			r.Name = name
		}
		if req.Building != nil {
			r.Building = strings.TrimSpace(*req.Building)
		}
		if req.Capacity != nil {
			if *req.Capacity <= 0 {
				return fmt.Errorf("%w: capacity must be positive", model.ErrValidation)
			}
			r.Capacity = *req.Capacity
		}
		return nil
	})
}

// SetResourceAvailability marks a resource bookable or not. Existing
// allocations are unaffected.
func (s *EventService) SetResourceAvailability(ctx context.Context, actor model.Actor, id string, available bool) (*model.Resource, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.editResource(ctx, id, func(r *model.Resource) error {
		r.IsAvailable = available
		return nil
	})
}

func (s *EventService) editResource(ctx context.Context, id string, edit func(r *model.Resource) error) (*model.Resource, error) {
	var out *model.Resource
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		r, err := tx.Resources().Get(ctx, id)
		if err != nil {
			return err
		}
		if err := edit(r); err != nil {
			return err
		}
		r.UpdatedAt = s.now()
		if err := tx.Resources().Update(ctx, r); err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

func requireAdmin(actor model.Actor) error {
	if actor.Role == model.RoleAdmin || actor.Role == model.RoleSuperAdmin {
		return nil
	}
	return fmt.Errorf("%w: requires admin", model.ErrUnauthorized)
}
