// Package postgres implements store.Store on database/sql. Either the lib/pq
// driver ("postgres") or pgx's stdlib adapter ("pgx") can back the *sql.DB.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"

	"collabmatch/backend/models"
	"collabmatch/backend/services/geo"
	"collabmatch/backend/store"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the tables and indexes the store relies on.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i+1, err)
		}
	}
	log.WithField("steps", len(schemaStatements)).Info("Database schema is up to date")
	return nil
}

// sqlState returns the SQLSTATE code of a lib/pq or pgx error, or "".
func sqlState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// mapErr wraps driver errors as ErrCollaboratorUnavailable. Constraint
// violations that mean something to the caller are checked with sqlState first.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return models.Unavailable(op, err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Opportunities ---------------------------------------------------------------

func (s *Store) ListOpportunities(ctx context.Context) ([]models.Opportunity, error) {
	rows, err := s.db.QueryContext(ctx, SelectOpportunitiesQuery)
	if err != nil {
		return nil, mapErr("list opportunities", err)
	}
	defer rows.Close()

	var opps []models.Opportunity
	for rows.Next() {
		opp, err := scanOpportunity(rows)
		if err != nil {
			return nil, mapErr("scan opportunity", err)
		}
		opps = append(opps, opp)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("list opportunities", err)
	}
	if err := s.attachRoles(ctx, opps); err != nil {
		return nil, err
	}
	return opps, nil
}

func (s *Store) GetOpportunity(ctx context.Context, id string) (models.Opportunity, error) {
	opp, err := scanOpportunity(s.db.QueryRowContext(ctx, SelectOpportunityQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Opportunity{}, models.NotFound("opportunity", id)
	}
	if err != nil {
		return models.Opportunity{}, mapErr("get opportunity", err)
	}
	opps := []models.Opportunity{opp}
	if err := s.attachRoles(ctx, opps); err != nil {
		return models.Opportunity{}, err
	}
	return opps[0], nil
}

func (s *Store) attachRoles(ctx context.Context, opps []models.Opportunity) error {
	if len(opps) == 0 {
		return nil
	}
	ids := make([]string, len(opps))
	index := make(map[string]int, len(opps))
	for i, o := range opps {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := s.db.QueryContext(ctx, SelectRolesQuery, pq.Array(ids))
	if err != nil {
		return mapErr("list roles", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r models.Role
		var status string
		var count int
		if err := rows.Scan(&r.ID, &r.OpportunityID, &r.Title, &r.Budget, &status, &r.Capacity, &r.FilledCount, &count); err != nil {
			return mapErr("scan role", err)
		}
		r.Status = models.RoleStatus(status)
		r.ApplicantCount = &count
		if i, ok := index[r.OpportunityID]; ok {
			opps[i].Roles = append(opps[i].Roles, r)
		}
	}
	return mapErr("list roles", rows.Err())
}

func (s *Store) CreateOpportunity(ctx context.Context, opp models.Opportunity) (models.Opportunity, error) {
	if opp.ID == "" {
		opp.ID = uuid.NewString()
	}
	if opp.CreatedAt == nil {
		now := time.Now().UTC()
		opp.CreatedAt = &now
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Opportunity{}, mapErr("begin transaction", err)
	}
	defer tx.Rollback()

	lat, lng := coordinateArgs(opp.Coordinate)
	if _, err := tx.ExecContext(ctx, InsertOpportunityQuery,
		opp.ID, opp.OwnerID, opp.Title, opp.Description, nullString(opp.City), opp.Remote,
		nullTime(opp.Deadline), *opp.CreatedAt, lat, lng,
	); err != nil {
		if sqlState(err) == uniqueViolation {
			return models.Opportunity{}, models.Invalid("opportunity " + opp.ID + " already exists")
		}
		return models.Opportunity{}, mapErr("insert opportunity", err)
	}

	roles := make([]models.Role, len(opp.Roles))
	for i, r := range opp.Roles {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		r.OpportunityID = opp.ID
		if r.Status == "" {
			r.Status = models.RoleOpen
		}
		if _, err := tx.ExecContext(ctx, InsertRoleQuery,
			r.ID, r.OpportunityID, r.Title, r.Budget, string(r.Status), r.EffectiveCapacity(), r.FilledCount,
		); err != nil {
			if sqlState(err) == uniqueViolation {
				return models.Opportunity{}, models.Invalid("role " + r.ID + " already exists")
			}
			return models.Opportunity{}, mapErr("insert role", err)
		}
		roles[i] = r
	}
	opp.Roles = roles

	if err := tx.Commit(); err != nil {
		return models.Opportunity{}, mapErr("commit opportunity", err)
	}
	return opp, nil
}

// ClaimRoleSlot records the claimant and takes the slot in one transaction, so
// a retried accept of the same application cannot take a second slot.
func (s *Store) ClaimRoleSlot(ctx context.Context, opportunityID, roleID, applicationID string) (models.Role, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Role{}, mapErr("begin transaction", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, InsertSlotClaimQuery, applicationID, roleID)
	if err != nil {
		if sqlState(err) == foreignKeyViolation {
			return models.Role{}, models.NotFound("role", roleID)
		}
		return models.Role{}, mapErr("claim role slot", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Role{}, mapErr("claim role slot", err)
	}
	if n == 0 {
		// the slot belongs to an accept of this application that already ran or is running
		return models.Role{}, &models.TransitionError{ID: applicationID, From: models.StatusAccepted, To: models.StatusAccepted}
	}

	var r models.Role
	var status string
	err = tx.QueryRowContext(ctx, ClaimRoleSlotQuery, roleID, opportunityID).
		Scan(&r.ID, &r.OpportunityID, &r.Title, &r.Budget, &status, &r.Capacity, &r.FilledCount)
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := tx.QueryRowContext(ctx, RoleExistsQuery, roleID, opportunityID).Scan(&exists); err != nil {
			return models.Role{}, mapErr("check role", err)
		}
		if !exists {
			return models.Role{}, models.NotFound("role", roleID)
		}
		return models.Role{}, models.ErrRoleFilled
	}
	if err != nil {
		return models.Role{}, mapErr("claim role slot", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Role{}, mapErr("commit role slot", err)
	}
	r.Status = models.RoleStatus(status)
	return r, nil
}

func (s *Store) ReleaseRoleSlot(ctx context.Context, opportunityID, roleID, applicationID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapErr("begin transaction", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, DeleteSlotClaimQuery, applicationID, roleID)
	if err != nil {
		return mapErr("release role slot", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapErr("release role slot", err)
	}
	if n == 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx, ReleaseRoleSlotQuery, roleID, opportunityID); err != nil {
		return mapErr("release role slot", err)
	}
	return mapErr("commit role slot release", tx.Commit())
}

func scanOpportunity(row rowScanner) (models.Opportunity, error) {
	var o models.Opportunity
	var city sql.NullString
	var deadline, created sql.NullTime
	var lat, lng sql.NullFloat64
	if err := row.Scan(&o.ID, &o.OwnerID, &o.Title, &o.Description, &city, &o.Remote, &deadline, &created, &lat, &lng); err != nil {
		return models.Opportunity{}, err
	}
	o.City = city.String
	o.Deadline = timePtr(deadline)
	o.CreatedAt = timePtr(created)
	o.Coordinate = coordinate(lat, lng)
	return o, nil
}

// Applications ----------------------------------------------------------------

func (s *Store) ListApplications(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, error) {
	var b strings.Builder
	b.WriteString(SelectApplicationsQuery)
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		fmt.Fprintf(&b, " AND %s $%d", cond, len(args))
	}
	if filter.OpportunityID != "" {
		add("opportunity_id =", filter.OpportunityID)
	}
	if filter.CreatorID != "" {
		add("creator_id =", filter.CreatorID)
	}
	if filter.RoleID != "" {
		add("role_id =", filter.RoleID)
	}
	if filter.SubmittedTo != nil {
		add("submitted_at <=", *filter.SubmittedTo)
	}
	if len(filter.StatusIn) > 0 {
		statuses := make([]string, len(filter.StatusIn))
		for i, st := range filter.StatusIn {
			statuses[i] = string(st)
		}
		args = append(args, pq.Array(statuses))
		fmt.Fprintf(&b, " AND status = ANY($%d)", len(args))
	}
	b.WriteString(" ORDER BY submitted_at, id")

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, mapErr("list applications", err)
	}
	defer rows.Close()

	var apps []models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, mapErr("scan application", err)
		}
		apps = append(apps, app)
	}
	return apps, mapErr("list applications", rows.Err())
}

func (s *Store) GetApplication(ctx context.Context, id string) (models.Application, error) {
	app, err := scanApplication(s.db.QueryRowContext(ctx, SelectApplicationQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Application{}, models.NotFound("application", id)
	}
	if err != nil {
		return models.Application{}, mapErr("get application", err)
	}
	return app, nil
}

// CreateApplication relies on the applications_active_natural_key partial index
// to reject a second active application.
func (s *Store) CreateApplication(ctx context.Context, app models.Application) (models.Application, error) {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	if app.Status == "" {
		app.Status = models.StatusPending
	}
	if app.SubmittedAt.IsZero() {
		app.SubmittedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, InsertApplicationQuery,
		app.ID, app.OpportunityID, app.RoleID, app.RoleTitle, app.CreatorID, app.CoverMessage, app.ProposedRate,
		nullTime(app.Availability.From), nullTime(app.Availability.To), string(app.Status), app.SubmittedAt,
		nullStringPtr(app.ResponseMessage), nullTime(app.RespondedAt),
	)
	if err != nil {
		switch sqlState(err) {
		case uniqueViolation:
			return models.Application{}, models.ErrDuplicateApplication
		case foreignKeyViolation:
			return models.Application{}, models.NotFound("opportunity", app.OpportunityID)
		}
		return models.Application{}, mapErr("insert application", err)
	}
	return app, nil
}

func (s *Store) UpdateApplicationStatus(ctx context.Context, id string, from, to models.ApplicationStatus, response *string, at time.Time) error {
	var respondedAt sql.NullTime
	if to == models.StatusAccepted || to == models.StatusRejected {
		respondedAt = sql.NullTime{Time: at, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, UpdateApplicationStatusQuery,
		string(to), nullStringPtr(response), respondedAt, id, string(from))
	if err != nil {
		return mapErr("update application status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapErr("update application status", err)
	}
	if n > 0 {
		return nil
	}

	var current string
	err = s.db.QueryRowContext(ctx, SelectApplicationStatusQuery, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NotFound("application", id)
	}
	if err != nil {
		return mapErr("read application status", err)
	}
	return &models.TransitionError{ID: id, From: models.ApplicationStatus(current), To: to}
}

func scanApplication(row rowScanner) (models.Application, error) {
	var a models.Application
	var status string
	var from, to, responded sql.NullTime
	var response sql.NullString
	if err := row.Scan(&a.ID, &a.OpportunityID, &a.RoleID, &a.RoleTitle, &a.CreatorID, &a.CoverMessage, &a.ProposedRate,
		&from, &to, &status, &a.SubmittedAt, &response, &responded); err != nil {
		return models.Application{}, err
	}
	a.Status = models.ApplicationStatus(status)
	a.Availability = models.Availability{From: timePtr(from), To: timePtr(to)}
	a.RespondedAt = timePtr(responded)
	if response.Valid {
		msg := response.String
		a.ResponseMessage = &msg
	}
	return a, nil
}

// Creators --------------------------------------------------------------------

func (s *Store) GetCreator(ctx context.Context, id string) (models.Creator, error) {
	var c models.Creator
	var tags pq.StringArray
	var lat, lng sql.NullFloat64
	err := s.db.QueryRowContext(ctx, SelectCreatorQuery, id).Scan(&c.ID, &tags, &c.City, &c.RadiusKm, &lat, &lng)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Creator{}, models.NotFound("creator", id)
	}
	if err != nil {
		return models.Creator{}, mapErr("get creator", err)
	}
	c.Tags = []string(tags)
	c.Coordinate = coordinate(lat, lng)

	priority, err := s.IsPriorityMember(ctx, id)
	if err != nil {
		return models.Creator{}, err
	}
	c.IsPriority = priority
	return c, nil
}

func (s *Store) SaveCreator(ctx context.Context, c models.Creator) (models.Creator, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	lat, lng := coordinateArgs(c.Coordinate)
	if _, err := s.db.ExecContext(ctx, UpsertCreatorQuery, c.ID, pq.Array(tags), c.City, c.RadiusKm, lat, lng); err != nil {
		return models.Creator{}, mapErr("save creator", err)
	}
	return c, nil
}

func (s *Store) ListSaved(ctx context.Context, creatorID string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, SelectSavedQuery, creatorID)
	if err != nil {
		return nil, mapErr("list saved", err)
	}
	defer rows.Close()

	saved := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, mapErr("scan saved", err)
		}
		saved[id] = true
	}
	return saved, mapErr("list saved", rows.Err())
}

func (s *Store) SetSaved(ctx context.Context, creatorID, opportunityID string, saved bool) error {
	if !saved {
		_, err := s.db.ExecContext(ctx, DeleteSavedQuery, creatorID, opportunityID)
		return mapErr("unsave opportunity", err)
	}
	if _, err := s.db.ExecContext(ctx, InsertSavedQuery, creatorID, opportunityID); err != nil {
		if sqlState(err) == foreignKeyViolation {
			return models.NotFound("opportunity", opportunityID)
		}
		return mapErr("save opportunity", err)
	}
	return nil
}

func (s *Store) IsPriorityMember(ctx context.Context, creatorID string) (bool, error) {
	var ok bool
	if err := s.db.QueryRowContext(ctx, IsPriorityMemberQuery, creatorID).Scan(&ok); err != nil {
		return false, mapErr("check subscription", err)
	}
	return ok, nil
}

// Notifications ---------------------------------------------------------------

func (s *Store) SaveNotification(ctx context.Context, n models.Notification) (models.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if _, err := s.db.ExecContext(ctx, InsertNotificationQuery,
		n.ID, n.UserID, n.Type, n.Title, n.Message, n.ActionLink, n.CreatedAt); err != nil {
		return models.Notification{}, mapErr("save notification", err)
	}
	return n, nil
}

func (s *Store) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	rows, err := s.db.QueryContext(ctx, SelectNotificationsQuery, userID)
	if err != nil {
		return nil, mapErr("list notifications", err)
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		var readAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.ActionLink, &n.CreatedAt, &readAt); err != nil {
			return nil, mapErr("scan notification", err)
		}
		n.ReadAt = timePtr(readAt)
		out = append(out, n)
	}
	return out, mapErr("list notifications", rows.Err())
}

func (s *Store) MarkNotificationsRead(ctx context.Context, userID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, MarkNotificationsReadQuery, userID, at)
	return mapErr("mark notifications read", err)
}

// Users -----------------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.Email = strings.TrimSpace(u.Email)
	_, err := s.db.ExecContext(ctx, InsertUserQuery, u.ID, u.Email, u.PasswordHash, u.Role, u.CreatedAt)
	if err != nil {
		if sqlState(err) == uniqueViolation {
			return models.User{}, models.ErrEmailTaken
		}
		return models.User{}, mapErr("insert user", err)
	}
	u.Email = strings.ToLower(u.Email)
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, SelectUserByEmailQuery, strings.TrimSpace(email)).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, models.NotFound("user", email)
	}
	if err != nil {
		return models.User{}, mapErr("get user", err)
	}
	return u, nil
}

// Helpers ---------------------------------------------------------------------

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func coordinate(lat, lng sql.NullFloat64) *geo.Coordinate {
	if !lat.Valid || !lng.Valid {
		return nil
	}
	return &geo.Coordinate{Lat: lat.Float64, Lng: lng.Float64}
}

func coordinateArgs(c *geo.Coordinate) (sql.NullFloat64, sql.NullFloat64) {
	if c == nil {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: c.Lat, Valid: true}, sql.NullFloat64{Float64: c.Lng, Valid: true}
}
