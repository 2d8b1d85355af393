package repository

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/Shivanand-hulikatti/club-events/internal/model"
)

// MemoryStore is an in-process Store. Transactions are serialised by a
// single mutex and run against a copy of the data that replaces the live
// copy only on success.
type MemoryStore struct {
	mu   sync.Mutex
	data *memData
}

type membershipKey struct{ clubID, userID string }

type memData struct {
	events        map[string]*model.Event
	eventSeq      map[string]int64
	registrations map[string]*model.Registration
	regSeq        map[string]int64
	resources     map[string]*model.Resource
	clubs         map[string]*model.Club
	memberships   map[membershipKey]*model.Membership
	users         map[string]*model.User
	seq           int64
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: &memData{
		events:        map[string]*model.Event{},
		eventSeq:      map[string]int64{},
		registrations: map[string]*model.Registration{},
		regSeq:        map[string]int64{},
		resources:     map[string]*model.Resource{},
		clubs:         map[string]*model.Club{},
		memberships:   map[membershipKey]*model.Membership{},
		users:         map[string]*model.User{},
	}}
}

func (d *memData) clone() *memData {
	c := &memData{
		events:        make(map[string]*model.Event, len(d.events)),
		eventSeq:      maps.Clone(d.eventSeq),
		registrations: make(map[string]*model.Registration, len(d.registrations)),
		regSeq:        maps.Clone(d.regSeq),
		resources:     make(map[string]*model.Resource, len(d.resources)),
		clubs:         make(map[string]*model.Club, len(d.clubs)),
		memberships:   make(map[membershipKey]*model.Membership, len(d.memberships)),
		users:         make(map[string]*model.User, len(d.users)),
		seq:           d.seq,
	}
	for k, v := range d.events {
		c.events[k] = v.Clone()
	}
	for k, v := range d.registrations {
		c.registrations[k] = v.Clone()
	}
	for k, v := range d.resources {
		r := *v
		c.resources[k] = &r
	}
	for k, v := range d.clubs {
		cl := *v
		c.clubs[k] = &cl
	}
	for k, v := range d.memberships {
		m := *v
		c.memberships[k] = &m
	}
	for k, v := range d.users {
		u := *v
		u.EventsOrganized = slices.Clone(v.EventsOrganized)
		c.users[k] = &u
	}
	return c
}

func (d *memData) next() int64 {
	d.seq++
	return d.seq
}

// memView is the Store handed to callers. Outside a transaction tx is nil
// and every call locks the owning store; inside one, tx is the private copy
// and the store lock is already held.
type memView struct {
	store *MemoryStore
	tx    *memData
}

func (v *memView) with(fn func(d *memData) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.data)
}

func (s *MemoryStore) view() *memView { return &memView{store: s} }

func (s *MemoryStore) Events() EventRepository               { return memEvents{s.view()} }
func (s *MemoryStore) Registrations() RegistrationRepository { return memRegistrations{s.view()} }
func (s *MemoryStore) Resources() ResourceRepository         { return memResources{s.view()} }
func (s *MemoryStore) Clubs() ClubRepository                 { return memClubs{s.view()} }
func (s *MemoryStore) Users() UserRepository                 { return memUsers{s.view()} }

// InTx runs fn against a private copy of the data and publishes the copy
// only when fn succeeds.
func (s *MemoryStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	return s.view().InTx(ctx, fn)
}

func (v *memView) Events() EventRepository               { return memEvents{v} }
func (v *memView) Registrations() RegistrationRepository { return memRegistrations{v} }
func (v *memView) Resources() ResourceRepository         { return memResources{v} }
func (v *memView) Clubs() ClubRepository                 { return memClubs{v} }
func (v *memView) Users() UserRepository                 { return memUsers{v} }

func (v *memView) InTx(ctx context.Context, fn func(tx Store) error) error {
	if v.tx != nil {
		return fn(v)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	v.store.mu.Lock()
	defer v.store.mu.Unlock()

	work := v.store.data.clone()
	if err := fn(&memView{store: v.store, tx: work}); err != nil {
		return err
	}
	v.store.data = work
	return nil
}

// ─── Events ───────────────────────────────────────────────────────────────────

type memEvents struct{ v *memView }

func (r memEvents) Create(_ context.Context, e *model.Event) error {
	return r.v.with(func(d *memData) error {
		if _, ok := d.events[e.ID]; ok {
			return fmt.Errorf("insert event: duplicate id %s", e.ID)
		}
		d.events[e.ID] = e.Clone()
		d.eventSeq[e.ID] = d.next()
		return nil
	})
}

func (r memEvents) Get(_ context.Context, id string) (*model.Event, error) {
	var out *model.Event
	err := r.v.with(func(d *memData) error {
		e, ok := d.events[id]
		if !ok {
			return fmt.Errorf("%w: event %s", model.ErrNotFound, id)
		}
		out = e.Clone()
		return nil
	})
	return out, err
}

// GetForUpdate needs no extra locking: transactions already hold the store mutex.
func (r memEvents) GetForUpdate(ctx context.Context, id string) (*model.Event, error) {
	return r.Get(ctx, id)
}

func (r memEvents) List(_ context.Context, f EventFilter) ([]model.Event, error) {
	var out []model.Event
	err := r.v.with(func(d *memData) error {
		for _, e := range d.events {
			if f.ClubID != "" && e.OrganizedBy.ClubID != f.ClubID {
				continue
			}
			if f.Status != "" && e.Status != f.Status {
				continue
			}
			out = append(out, *e.Clone())
		}
		sort.Slice(out, func(i, j int) bool {
			if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return d.eventSeq[out[i].ID] > d.eventSeq[out[j].ID]
		})
		return nil
	})
	return out, err
}

func (r memEvents) Update(_ context.Context, e *model.Event) error {
	return r.v.with(func(d *memData) error {
		if _, ok := d.events[e.ID]; !ok {
			return fmt.Errorf("%w: event %s", model.ErrNotFound, e.ID)
		}
		d.events[e.ID] = e.Clone()
		return nil
	})
}

// ─── Registrations ────────────────────────────────────────────────────────────

type memRegistrations struct{ v *memView }

func (r memRegistrations) Create(_ context.Context, reg *model.Registration) error {
	return r.v.with(func(d *memData) error {
		if reg.Status != model.RegistrationCancelled {
			for _, existing := range d.registrations {
				if existing.EventID == reg.EventID && existing.UserID == reg.UserID &&
					existing.Status != model.RegistrationCancelled {
					return model.ErrAlreadyRegistered
				}
			}
		}
		d.registrations[reg.ID] = reg.Clone()
		d.regSeq[reg.ID] = d.next()
		return nil
	})
}

func (r memRegistrations) FindActive(_ context.Context, eventID, userID string) (*model.Registration, error) {
	var out *model.Registration
	err := r.v.with(func(d *memData) error {
		for _, reg := range d.registrations {
			if reg.EventID == eventID && reg.UserID == userID && reg.Status != model.RegistrationCancelled {
				out = reg.Clone()
				return nil
			}
		}
		return fmt.Errorf("%w: no active registration for user %s", model.ErrNotFound, userID)
	})
	return out, err
}

func (r memRegistrations) CountByStatus(_ context.Context, eventID string, status model.RegistrationStatus) (int, error) {
	var n int
	err := r.v.with(func(d *memData) error {
		for _, reg := range d.registrations {
			if reg.EventID == eventID && reg.Status == status {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r memRegistrations) StatusCounts(_ context.Context, eventID string) (map[model.RegistrationStatus]int, error) {
	counts := map[model.RegistrationStatus]int{}
	err := r.v.with(func(d *memData) error {
		for _, reg := range d.registrations {
			if reg.EventID == eventID {
				counts[reg.Status]++
			}
		}
		return nil
	})
	return counts, err
}

func (r memRegistrations) ListWaitlisted(_ context.Context, eventID string, limit int) ([]model.Registration, error) {
	var out []model.Registration
	err := r.v.with(func(d *memData) error {
		out = d.eventRegistrations(eventID, model.RegistrationWaitlisted)
		if limit > 0 && len(out) > limit {
			out = out[:limit]
		}
		return nil
	})
	return out, err
}

func (r memRegistrations) ListByEvent(_ context.Context, eventID string) ([]model.Registration, error) {
	var out []model.Registration
	err := r.v.with(func(d *memData) error {
		out = d.eventRegistrations(eventID, "")
		return nil
	})
	return out, err
}

func (r memRegistrations) Update(_ context.Context, reg *model.Registration) error {
	return r.v.with(func(d *memData) error {
		if _, ok := d.registrations[reg.ID]; !ok {
			return fmt.Errorf("%w: registration %s", model.ErrNotFound, reg.ID)
		}
		if reg.Status != model.RegistrationCancelled {
			for id, other := range d.registrations {
				if id != reg.ID && other.EventID == reg.EventID && other.UserID == reg.UserID &&
					other.Status != model.RegistrationCancelled {
					return model.ErrAlreadyRegistered
				}
			}
		}
		d.registrations[reg.ID] = reg.Clone()
		return nil
	})
}

// eventRegistrations returns an event's registrations ordered by
// registeredAt with insertion order breaking ties. An empty status matches all.
func (d *memData) eventRegistrations(eventID string, status model.RegistrationStatus) []model.Registration {
	var out []model.Registration
	for _, reg := range d.registrations {
		if reg.EventID != eventID || (status != "" && reg.Status != status) {
			continue
		}
		out = append(out, *reg.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RegisteredAt.Equal(out[j].RegisteredAt) {
			return out[i].RegisteredAt.Before(out[j].RegisteredAt)
		}
		return d.regSeq[out[i].ID] < d.regSeq[out[j].ID]
	})
	return out
}

// ─── Resources ────────────────────────────────────────────────────────────────

type memResources struct{ v *memView }

func (r memResources) Create(_ context.Context, res *model.Resource) error {
	return r.v.with(func(d *memData) error {
		for _, existing := range d.resources {
			if existing.HallNo == res.HallNo {
				return fmt.Errorf("%w: hall number %s already in use", model.ErrValidation, res.HallNo)
			}
		}
		c := *res
		d.resources[res.ID] = &c
		return nil
	})
}

func (r memResources) Get(_ context.Context, id string) (*model.Resource, error) {
	var out *model.Resource
	err := r.v.with(func(d *memData) error {
		res, ok := d.resources[id]
		if !ok {
			return fmt.Errorf("%w: resource %s", model.ErrNotFound, id)
		}
		c := *res
		out = &c
		return nil
	})
	return out, err
}

func (r memResources) List(_ context.Context, availableOnly bool) ([]model.Resource, error) {
	var out []model.Resource
	err := r.v.with(func(d *memData) error {
		for _, res := range d.resources {
			if availableOnly && !res.IsAvailable {
				continue
			}
			out = append(out, *res)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].HallNo < out[j].HallNo })
		return nil
	})
	return out, err
}

func (r memResources) Update(_ context.Context, res *model.Resource) error {
	return r.v.with(func(d *memData) error {
		if _, ok := d.resources[res.ID]; !ok {
			return fmt.Errorf("%w: resource %s", model.ErrNotFound, res.ID)
		}
		c := *res
		d.resources[res.ID] = &c
		return nil
	})
}

// ─── Clubs ────────────────────────────────────────────────────────────────────

type memClubs struct{ v *memView }

func (r memClubs) Get(_ context.Context, id string) (*model.Club, error) {
	var out *model.Club
	err := r.v.with(func(d *memData) error {
		c, ok := d.clubs[id]
		if !ok {
			return fmt.Errorf("%w: club %s", model.ErrNotFound, id)
		}
		cp := *c
		out = &cp
		return nil
	})
	return out, err
}

func (r memClubs) GetMembership(_ context.Context, clubID, userID string) (*model.Membership, error) {
	var out *model.Membership
	err := r.v.with(func(d *memData) error {
		m, ok := d.memberships[membershipKey{clubID, userID}]
		if !ok {
			return fmt.Errorf("%w: membership of %s in club %s", model.ErrNotFound, userID, clubID)
		}
		cp := *m
		out = &cp
		return nil
	})
	return out, err
}

func (r memClubs) IncrementTotalEvents(_ context.Context, clubID string) error {
	return r.v.with(func(d *memData) error {
		c, ok := d.clubs[clubID]
		if !ok {
			return fmt.Errorf("%w: club %s", model.ErrNotFound, clubID)
		}
		c.TotalEvents++
		return nil
	})
}

func (r memClubs) Put(_ context.Context, c *model.Club) error {
	return r.v.with(func(d *memData) error {
		cp := *c
		d.clubs[c.ID] = &cp
		return nil
	})
}

func (r memClubs) PutMembership(_ context.Context, m *model.Membership) error {
	return r.v.with(func(d *memData) error {
		if _, ok := d.clubs[m.ClubID]; !ok {
			return fmt.Errorf("%w: club %s", model.ErrNotFound, m.ClubID)
		}
		cp := *m
		d.memberships[membershipKey{m.ClubID, m.UserID}] = &cp
		return nil
	})
}

// ─── Users ────────────────────────────────────────────────────────────────────

type memUsers struct{ v *memView }

func (r memUsers) Get(_ context.Context, id string) (*model.User, error) {
	var out *model.User
	err := r.v.with(func(d *memData) error {
		u, ok := d.users[id]
		if !ok {
			return fmt.Errorf("%w: user %s", model.ErrNotFound, id)
		}
		cp := *u
		cp.EventsOrganized = slices.Clone(u.EventsOrganized)
		out = &cp
		return nil
	})
	return out, err
}

func (r memUsers) AppendOrganizedEvent(_ context.Context, userIDs []string, eventID string) error {
	return r.v.with(func(d *memData) error {
		for _, id := range userIDs {
			u, ok := d.users[id]
			if !ok {
				continue
			}
			if !slices.Contains(u.EventsOrganized, eventID) {
				u.EventsOrganized = append(u.EventsOrganized, eventID)
			}
		}
		return nil
	})
}

func (r memUsers) Put(_ context.Context, u *model.User) error {
	return r.v.with(func(d *memData) error {
		cp := *u
		cp.EventsOrganized = slices.Clone(u.EventsOrganized)
		d.users[u.ID] = &cp
		return nil
	})
}
