package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/club-events/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx so every query can run
// inside or outside a transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
	db   dbtx
	inTx bool
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, db: pool}
}

func (s *PostgresStore) Events() EventRepository               { return pgEvents{s} }
func (s *PostgresStore) Registrations() RegistrationRepository { return pgRegistrations{s} }
func (s *PostgresStore) Resources() ResourceRepository         { return pgResources{s} }
func (s *PostgresStore) Clubs() ClubRepository                 { return pgClubs{s} }
func (s *PostgresStore) Users() UserRepository                 { return pgUsers{s} }

// InTx begins a transaction, runs fn, and commits. Any error from fn or the
// commit rolls the transaction back.
func (s *PostgresStore) InTx(ctx context.Context, fn func(tx Store) error) (err error) {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(&PostgresStore{pool: s.pool, db: tx, inTx: true}); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// ─── Events ───────────────────────────────────────────────────────────────────

type pgEvents struct{ s *PostgresStore }

const eventColumns = `id, name, description, club_id, primary_coordinator_id, co_organizer_ids,
	start_date, end_date, status, capacity, total_registrations, total_attendance,
	special_instructions, feedback_enabled, average_rating, total_responses,
	published_at, created_at, updated_at`

func scanEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	err := row.Scan(
		&e.ID, &e.Name, &e.Description, &e.OrganizedBy.ClubID, &e.OrganizedBy.PrimaryCoordinatorID,
		&e.CoOrganizerIDs, &e.StartDate, &e.EndDate, &e.Status, &e.Capacity,
		&e.TotalRegistrations, &e.TotalAttendance, &e.SpecialInstructions, &e.FeedbackEnabled,
		&e.FeedbackSummary.AverageRating, &e.FeedbackSummary.TotalResponses,
		&e.PublishedAt, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r pgEvents) Create(ctx context.Context, e *model.Event) error {
	return r.s.InTx(ctx, func(tx Store) error {
		db := tx.(*PostgresStore).db
		_, err := db.Exec(ctx,
			`INSERT INTO events (`+eventColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
			e.ID, e.Name, e.Description, e.OrganizedBy.ClubID, e.OrganizedBy.PrimaryCoordinatorID,
			nonNil(e.CoOrganizerIDs), e.StartDate, e.EndDate, e.Status, e.Capacity,
			e.TotalRegistrations, e.TotalAttendance, nonNil(e.SpecialInstructions), e.FeedbackEnabled,
			e.FeedbackSummary.AverageRating, e.FeedbackSummary.TotalResponses,
			e.PublishedAt, e.CreatedAt, e.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		return insertAllocations(ctx, db, e)
	})
}

func (r pgEvents) Get(ctx context.Context, id string) (*model.Event, error) {
	return r.get(ctx, id, "")
}

// GetForUpdate acquires a row-level exclusive lock on the event. Concurrent
// transactions doing the same block until this one commits or rolls back,
// which serialises every read-check-write on the event's counters.
func (r pgEvents) GetForUpdate(ctx context.Context, id string) (*model.Event, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

func (r pgEvents) get(ctx context.Context, id, lock string) (*model.Event, error) {
	e, err := scanEvent(r.s.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`+lock, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: event %s", model.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get event: %w", err)
	}

	allocs, err := r.allocations(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	e.ResourcesAllocated = nonNilAllocs(allocs[id])
	return e, nil
}

func (r pgEvents) List(ctx context.Context, f EventFilter) ([]model.Event, error) {
	rows, err := r.s.db.Query(ctx,
		`SELECT `+eventColumns+`
		 FROM events
		 WHERE ($1 = '' OR club_id = $1) AND ($2 = '' OR status = $2)
		 ORDER BY created_at DESC`,
		f.ClubID, string(f.Status),
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	var ids []string
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
		ids = append(ids, e.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if len(ids) == 0 {
		return events, nil
	}

	allocs, err := r.allocations(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range events {
		events[i].ResourcesAllocated = nonNilAllocs(allocs[events[i].ID])
	}
	return events, nil
}

func (r pgEvents) allocations(ctx context.Context, eventIDs []string) (map[string][]model.Allocation, error) {
	rows, err := r.s.db.Query(ctx,
		`SELECT event_id, resource_id, quantity, allocated_at
		 FROM event_allocations
		 WHERE event_id = ANY($1)
		 ORDER BY seq ASC`,
		eventIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	defer rows.Close()

	out := map[string][]model.Allocation{}
	for rows.Next() {
		var eventID string
		var a model.Allocation
		if err := rows.Scan(&eventID, &a.ResourceID, &a.Quantity, &a.AllocatedAt); err != nil {
			return nil, fmt.Errorf("scan allocation: %w", err)
		}
		out[eventID] = append(out[eventID], a)
	}
	return out, rows.Err()
}

// Update rewrites the event row and replaces its allocation list in order.
func (r pgEvents) Update(ctx context.Context, e *model.Event) error {
	return r.s.InTx(ctx, func(tx Store) error {
		db := tx.(*PostgresStore).db
		tag, err := db.Exec(ctx,
			`UPDATE events SET
				name = $2, description = $3, co_organizer_ids = $4, start_date = $5, end_date = $6,
				status = $7, capacity = $8, total_registrations = $9, total_attendance = $10,
				special_instructions = $11, feedback_enabled = $12, average_rating = $13,
				total_responses = $14, published_at = $15, updated_at = $16
			 WHERE id = $1`,
			e.ID, e.Name, e.Description, nonNil(e.CoOrganizerIDs), e.StartDate, e.EndDate,
			e.Status, e.Capacity, e.TotalRegistrations, e.TotalAttendance,
			nonNil(e.SpecialInstructions), e.FeedbackEnabled, e.FeedbackSummary.AverageRating,
			e.FeedbackSummary.TotalResponses, e.PublishedAt, e.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: event %s", model.ErrNotFound, e.ID)
		}
		if _, err := db.Exec(ctx, `DELETE FROM event_allocations WHERE event_id = $1`, e.ID); err != nil {
			return fmt.Errorf("clear allocations: %w", err)
		}
		return insertAllocations(ctx, db, e)
	})
}

func insertAllocations(ctx context.Context, db dbtx, e *model.Event) error {
	for _, a := range e.ResourcesAllocated {
		_, err := db.Exec(ctx,
			`INSERT INTO event_allocations (event_id, resource_id, quantity, allocated_at)
			 VALUES ($1, $2, $3, $4)`,
			e.ID, a.ResourceID, a.Quantity, a.AllocatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert allocation: %w", err)
		}
	}
	return nil
}

// ─── Registrations ────────────────────────────────────────────────────────────

type pgRegistrations struct{ s *PostgresStore }

const registrationColumns = `id, event_id, user_id, status, registered_at,
	feedback_rating, feedback_comments, feedback_submitted_at, updated_at`

func scanRegistration(row pgx.Row) (*model.Registration, error) {
	var (
		reg         model.Registration
		rating      *int
		comments    *string
		submittedAt *time.Time
	)
	err := row.Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.Status, &reg.RegisteredAt,
		&rating, &comments, &submittedAt, &reg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if rating != nil {
		reg.Feedback = &model.Feedback{Rating: *rating}
		if comments != nil {
			reg.Feedback.Comments = *comments
		}
		if submittedAt != nil {
			reg.Feedback.SubmittedAt = *submittedAt
		}
	}
	return &reg, nil
}

func feedbackArgs(f *model.Feedback) (rating *int, comments *string, submittedAt *time.Time) {
	if f == nil {
		return nil, nil, nil
	}
	return &f.Rating, &f.Comments, &f.SubmittedAt
}

func (r pgRegistrations) Create(ctx context.Context, reg *model.Registration) error {
	rating, comments, submittedAt := feedbackArgs(reg.Feedback)
	_, err := r.s.db.Exec(ctx,
		`INSERT INTO registrations (`+registrationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		reg.ID, reg.EventID, reg.UserID, reg.Status, reg.RegisteredAt,
		rating, comments, submittedAt, reg.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrAlreadyRegistered
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (r pgRegistrations) FindActive(ctx context.Context, eventID, userID string) (*model.Registration, error) {
	reg, err := scanRegistration(r.s.db.QueryRow(ctx,
		`SELECT `+registrationColumns+`
		 FROM registrations
		 WHERE event_id = $1 AND user_id = $2 AND status <> 'cancelled'`,
		eventID, userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no active registration for user %s", model.ErrNotFound, userID)
		}
		return nil, fmt.Errorf("find registration: %w", err)
	}
	return reg, nil
}

func (r pgRegistrations) CountByStatus(ctx context.Context, eventID string, status model.RegistrationStatus) (int, error) {
	var n int
	err := r.s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status = $2`,
		eventID, status,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return n, nil
}

func (r pgRegistrations) StatusCounts(ctx context.Context, eventID string) (map[model.RegistrationStatus]int, error) {
	rows, err := r.s.db.Query(ctx,
		`SELECT status, COUNT(*) FROM registrations WHERE event_id = $1 GROUP BY status`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("count registrations: %w", err)
	}
	defer rows.Close()

	counts := map[model.RegistrationStatus]int{}
	for rows.Next() {
		var status model.RegistrationStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r pgRegistrations) ListWaitlisted(ctx context.Context, eventID string, limit int) ([]model.Registration, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}
	return r.list(ctx,
		`SELECT `+registrationColumns+`
		 FROM registrations
		 WHERE event_id = $1 AND status = 'waitlisted'
		 ORDER BY registered_at ASC, seq ASC
		 LIMIT $2`,
		eventID, lim,
	)
}

func (r pgRegistrations) ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	return r.list(ctx,
		`SELECT `+registrationColumns+`
		 FROM registrations
		 WHERE event_id = $1
		 ORDER BY registered_at ASC, seq ASC`,
		eventID,
	)
}

func (r pgRegistrations) list(ctx context.Context, sql string, args ...any) ([]model.Registration, error) {
	rows, err := r.s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, *reg)
	}
	return regs, rows.Err()
}

func (r pgRegistrations) Update(ctx context.Context, reg *model.Registration) error {
	rating, comments, submittedAt := feedbackArgs(reg.Feedback)
	tag, err := r.s.db.Exec(ctx,
		`UPDATE registrations SET
			status = $2, feedback_rating = $3, feedback_comments = $4,
			feedback_submitted_at = $5, updated_at = $6
		 WHERE id = $1`,
		reg.ID, reg.Status, rating, comments, submittedAt, reg.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrAlreadyRegistered
		}
		return fmt.Errorf("update registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: registration %s", model.ErrNotFound, reg.ID)
	}
	return nil
}

// ─── Resources ────────────────────────────────────────────────────────────────

type pgResources struct{ s *PostgresStore }

const resourceColumns = `id, name, hall_no, building, capacity, is_available, created_at, updated_at`

func scanResource(row pgx.Row) (*model.Resource, error) {
	var res model.Resource
	err := row.Scan(&res.ID, &res.Name, &res.HallNo, &res.Building, &res.Capacity,
		&res.IsAvailable, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r pgResources) Create(ctx context.Context, res *model.Resource) error {
	_, err := r.s.db.Exec(ctx,
		`INSERT INTO resources (`+resourceColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		res.ID, res.Name, res.HallNo, res.Building, res.Capacity, res.IsAvailable, res.CreatedAt, res.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: hall number %s already in use", model.ErrValidation, res.HallNo)
		}
		return fmt.Errorf("insert resource: %w", err)
	}
	return nil
}

func (r pgResources) Get(ctx context.Context, id string) (*model.Resource, error) {
	res, err := scanResource(r.s.db.QueryRow(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: resource %s", model.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get resource: %w", err)
	}
	return res, nil
}

func (r pgResources) List(ctx context.Context, availableOnly bool) ([]model.Resource, error) {
	rows, err := r.s.db.Query(ctx,
		`SELECT `+resourceColumns+`
		 FROM resources
		 WHERE NOT $1 OR is_available
		 ORDER BY hall_no ASC`,
		availableOnly,
	)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	var out []model.Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

func (r pgResources) Update(ctx context.Context, res *model.Resource) error {
	tag, err := r.s.db.Exec(ctx,
		`UPDATE resources SET name = $2, building = $3, capacity = $4, is_available = $5, updated_at = $6
		 WHERE id = $1`,
		res.ID, res.Name, res.Building, res.Capacity, res.IsAvailable, res.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update resource: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: resource %s", model.ErrNotFound, res.ID)
	}
	return nil
}

// ─── Clubs ────────────────────────────────────────────────────────────────────

type pgClubs struct{ s *PostgresStore }

func (r pgClubs) Get(ctx context.Context, id string) (*model.Club, error) {
	var c model.Club
	err := r.s.db.QueryRow(ctx,
		`SELECT id, name, total_events, total_members FROM clubs WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.TotalEvents, &c.TotalMembers)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: club %s", model.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get club: %w", err)
	}
	return &c, nil
}

func (r pgClubs) GetMembership(ctx context.Context, clubID, userID string) (*model.Membership, error) {
	var m model.Membership
	err := r.s.db.QueryRow(ctx,
		`SELECT club_id, user_id, role, is_active, joined_at
		 FROM club_members WHERE club_id = $1 AND user_id = $2`,
		clubID, userID,
	).Scan(&m.ClubID, &m.UserID, &m.Role, &m.IsActive, &m.JoinedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: membership of %s in club %s", model.ErrNotFound, userID, clubID)
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return &m, nil
}

func (r pgClubs) IncrementTotalEvents(ctx context.Context, clubID string) error {
	tag, err := r.s.db.Exec(ctx,
		`UPDATE clubs SET total_events = total_events + 1 WHERE id = $1`, clubID)
	if err != nil {
		return fmt.Errorf("increment club events: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: club %s", model.ErrNotFound, clubID)
	}
	return nil
}

func (r pgClubs) Put(ctx context.Context, c *model.Club) error {
	_, err := r.s.db.Exec(ctx,
		`INSERT INTO clubs (id, name, total_events, total_members)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, total_members = EXCLUDED.total_members`,
		c.ID, c.Name, c.TotalEvents, c.TotalMembers,
	)
	if err != nil {
		return fmt.Errorf("upsert club: %w", err)
	}
	return nil
}

func (r pgClubs) PutMembership(ctx context.Context, m *model.Membership) error {
	_, err := r.s.db.Exec(ctx,
		`INSERT INTO club_members (club_id, user_id, role, is_active, joined_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (club_id, user_id) DO UPDATE SET role = EXCLUDED.role, is_active = EXCLUDED.is_active`,
		m.ClubID, m.UserID, m.Role, m.IsActive, m.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert membership: %w", err)
	}
	return nil
}

// ─── Users ────────────────────────────────────────────────────────────────────

type pgUsers struct{ s *PostgresStore }

func (r pgUsers) Get(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := r.s.db.QueryRow(ctx,
		`SELECT u.id, u.name, u.email, u.role, u.is_active,
		        COALESCE(ARRAY(SELECT h.event_id FROM organizer_history h
		                       WHERE h.user_id = u.id ORDER BY h.added_at), '{}')
		 FROM users u WHERE u.id = $1`,
		id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.IsActive, &u.EventsOrganized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %s", model.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (r pgUsers) AppendOrganizedEvent(ctx context.Context, userIDs []string, eventID string) error {
	_, err := r.s.db.Exec(ctx,
		`INSERT INTO organizer_history (user_id, event_id)
		 SELECT id, $2 FROM users WHERE id = ANY($1)
		 ON CONFLICT DO NOTHING`,
		userIDs, eventID,
	)
	if err != nil {
		return fmt.Errorf("append organizer history: %w", err)
	}
	return nil
}

func (r pgUsers) Put(ctx context.Context, u *model.User) error {
	_, err := r.s.db.Exec(ctx,
		`INSERT INTO users (id, name, email, role, is_active)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, email = EXCLUDED.email,
			role = EXCLUDED.role, is_active = EXCLUDED.is_active`,
		u.ID, u.Name, u.Email, u.Role, u.IsActive,
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilAllocs(a []model.Allocation) []model.Allocation {
	if a == nil {
		return []model.Allocation{}
	}
	return a
}
