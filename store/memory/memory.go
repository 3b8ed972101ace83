package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"collabmatch/backend/models"
	"collabmatch/backend/store"
)

// Store is an in-memory implementation of store.Store. It is safe for concurrent
// use; every write happens under one lock, so the active-application uniqueness
// check and the insert cannot interleave.
type Store struct {
	mu            sync.RWMutex
	opportunities map[string]models.Opportunity
	oppOrder      []string
	applications  map[string]models.Application
	appOrder      []string
	creators      map[string]models.Creator
	saved         map[string]map[string]bool
	priority      map[string]bool
	notifications map[string][]models.Notification
	users         map[string]models.User
	// slots maps an application id to the role whose slot it holds.
	slots map[string]string
}

var _ store.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		opportunities: make(map[string]models.Opportunity),
		applications:  make(map[string]models.Application),
		creators:      make(map[string]models.Creator),
		saved:         make(map[string]map[string]bool),
		priority:      make(map[string]bool),
		notifications: make(map[string][]models.Notification),
		users:         make(map[string]models.User),
		slots:         make(map[string]string),
	}
}

// Opportunities ---------------------------------------------------------------

func (s *Store) ListOpportunities(_ context.Context) ([]models.Opportunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Opportunity, 0, len(s.oppOrder))
	for _, id := range s.oppOrder {
		out = append(out, s.withApplicantCountsLocked(s.opportunities[id]))
	}
	return out, nil
}

func (s *Store) GetOpportunity(_ context.Context, id string) (models.Opportunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	opp, ok := s.opportunities[id]
	if !ok {
		return models.Opportunity{}, models.NotFound("opportunity", id)
	}
	return s.withApplicantCountsLocked(opp), nil
}

func (s *Store) CreateOpportunity(_ context.Context, opp models.Opportunity) (models.Opportunity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if opp.ID == "" {
		opp.ID = uuid.NewString()
	} else if _, exists := s.opportunities[opp.ID]; exists {
		return models.Opportunity{}, models.Invalid("opportunity " + opp.ID + " already exists")
	}
	if opp.CreatedAt == nil {
		now := time.Now().UTC()
		opp.CreatedAt = &now
	}
	opp = cloneOpportunity(opp)
	for i := range opp.Roles {
		if opp.Roles[i].ID == "" {
			opp.Roles[i].ID = uuid.NewString()
		}
		opp.Roles[i].OpportunityID = opp.ID
		if opp.Roles[i].Status == "" {
			opp.Roles[i].Status = models.RoleOpen
		}
	}

	s.opportunities[opp.ID] = opp
	s.oppOrder = append(s.oppOrder, opp.ID)
	return cloneOpportunity(opp), nil
}

func (s *Store) ClaimRoleSlot(_ context.Context, opportunityID, roleID, applicationID string) (models.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	opp, idx, err := s.roleLocked(opportunityID, roleID)
	if err != nil {
		return models.Role{}, err
	}
	if _, held := s.slots[applicationID]; held {
		// the slot belongs to an accept of this application that already ran or is running
		return models.Role{}, &models.TransitionError{ID: applicationID, From: models.StatusAccepted, To: models.StatusAccepted}
	}
	role := &opp.Roles[idx]
	if role.FilledCount >= role.EffectiveCapacity() {
		return models.Role{}, models.ErrRoleFilled
	}
	role.FilledCount++
	if role.FilledCount >= role.EffectiveCapacity() {
		role.Status = models.RoleFilled
	}
	s.opportunities[opportunityID] = opp
	s.slots[applicationID] = roleID
	return *role, nil
}

func (s *Store) ReleaseRoleSlot(_ context.Context, opportunityID, roleID, applicationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	opp, idx, err := s.roleLocked(opportunityID, roleID)
	if err != nil {
		return err
	}
	if held, ok := s.slots[applicationID]; !ok || held != roleID {
		return nil
	}
	delete(s.slots, applicationID)
	role := &opp.Roles[idx]
	if role.FilledCount > 0 {
		role.FilledCount--
	}
	if role.Status == models.RoleFilled && role.FilledCount < role.EffectiveCapacity() {
		role.Status = models.RoleOpen
	}
	s.opportunities[opportunityID] = opp
	return nil
}

// roleLocked returns a private copy of the opportunity and the index of roleID in it.
func (s *Store) roleLocked(opportunityID, roleID string) (models.Opportunity, int, error) {
	opp, ok := s.opportunities[opportunityID]
	if !ok {
		return models.Opportunity{}, 0, models.NotFound("opportunity", opportunityID)
	}
	opp = cloneOpportunity(opp)
	for i := range opp.Roles {
		if opp.Roles[i].ID == roleID {
			return opp, i, nil
		}
	}
	return models.Opportunity{}, 0, models.NotFound("role", roleID)
}

func (s *Store) withApplicantCountsLocked(opp models.Opportunity) models.Opportunity {
	opp = cloneOpportunity(opp)
	for i := range opp.Roles {
		n := 0
		for _, a := range s.applications {
			if a.OpportunityID == opp.ID && a.RoleID == opp.Roles[i].ID {
				n++
			}
		}
		opp.Roles[i].ApplicantCount = &n
	}
	return opp
}

// Applications ----------------------------------------------------------------

func (s *Store) ListApplications(_ context.Context, filter models.ApplicationFilter) ([]models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Application
	for _, id := range s.appOrder {
		app := s.applications[id]
		if filter.Matches(app) {
			out = append(out, cloneApplication(app))
		}
	}
	return out, nil
}

func (s *Store) GetApplication(_ context.Context, id string) (models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	app, ok := s.applications[id]
	if !ok {
		return models.Application{}, models.NotFound("application", id)
	}
	return cloneApplication(app), nil
}

func (s *Store) CreateApplication(_ context.Context, app models.Application) (models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.applications {
		if existing.Status.IsActive() && existing.SameRole(app.OpportunityID, app.RoleID, app.RoleTitle, app.CreatorID) {
			return models.Application{}, models.ErrDuplicateApplication
		}
	}

	if app.ID == "" {
		app.ID = uuid.NewString()
	} else if _, exists := s.applications[app.ID]; exists {
		return models.Application{}, models.Invalid("application " + app.ID + " already exists")
	}
	if app.Status == "" {
		app.Status = models.StatusPending
	}
	if app.SubmittedAt.IsZero() {
		app.SubmittedAt = time.Now().UTC()
	}

	s.applications[app.ID] = cloneApplication(app)
	s.appOrder = append(s.appOrder, app.ID)
	return cloneApplication(app), nil
}

func (s *Store) UpdateApplicationStatus(_ context.Context, id string, from, to models.ApplicationStatus, response *string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.applications[id]
	if !ok {
		return models.NotFound("application", id)
	}
	if app.Status != from {
		return &models.TransitionError{ID: id, From: app.Status, To: to}
	}

	app.Status = to
	if response != nil {
		msg := *response
		app.ResponseMessage = &msg
	}
	if to == models.StatusAccepted || to == models.StatusRejected {
		t := at
		app.RespondedAt = &t
	}
	s.applications[id] = app
	return nil
}

// Creators --------------------------------------------------------------------

func (s *Store) GetCreator(_ context.Context, id string) (models.Creator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.creators[id]
	if !ok {
		return models.Creator{}, models.NotFound("creator", id)
	}
	c = cloneCreator(c)
	c.IsPriority = s.priority[id]
	return c, nil
}

func (s *Store) SaveCreator(_ context.Context, c models.Creator) (models.Creator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.creators[c.ID] = cloneCreator(c)
	return cloneCreator(c), nil
}

func (s *Store) ListSaved(_ context.Context, creatorID string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]bool, len(s.saved[creatorID]))
	for id := range s.saved[creatorID] {
		out[id] = true
	}
	return out, nil
}

func (s *Store) SetSaved(_ context.Context, creatorID, opportunityID string, saved bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.opportunities[opportunityID]; !ok {
		return models.NotFound("opportunity", opportunityID)
	}
	if !saved {
		delete(s.saved[creatorID], opportunityID)
		return nil
	}
	if s.saved[creatorID] == nil {
		s.saved[creatorID] = make(map[string]bool)
	}
	s.saved[creatorID][opportunityID] = true
	return nil
}

func (s *Store) IsPriorityMember(_ context.Context, creatorID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.priority[creatorID], nil
}

// SetPriorityMember records the subscription state of a creator.
func (s *Store) SetPriorityMember(creatorID string, priority bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.priority[creatorID] = priority
}

// Notifications ---------------------------------------------------------------

func (s *Store) SaveNotification(_ context.Context, n models.Notification) (models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	s.notifications[n.UserID] = append(s.notifications[n.UserID], n)
	return n, nil
}

func (s *Store) ListNotifications(_ context.Context, userID string) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := append([]models.Notification(nil), s.notifications[userID]...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) MarkNotificationsRead(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notifications[userID] {
		if s.notifications[userID][i].ReadAt == nil {
			t := at
			s.notifications[userID][i].ReadAt = &t
		}
	}
	return nil
}

// Users -----------------------------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(u.Email))
	if _, exists := s.users[key]; exists {
		return models.User{}, models.ErrEmailTaken
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.users[key] = u
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return models.User{}, models.NotFound("user", email)
	}
	return u, nil
}

// Cloning helpers -------------------------------------------------------------

func cloneOpportunity(o models.Opportunity) models.Opportunity {
	o.Roles = append([]models.Role(nil), o.Roles...)
	if o.Deadline != nil {
		d := *o.Deadline
		o.Deadline = &d
	}
	if o.CreatedAt != nil {
		c := *o.CreatedAt
		o.CreatedAt = &c
	}
	if o.Coordinate != nil {
		c := *o.Coordinate
		o.Coordinate = &c
	}
	return o
}

func cloneApplication(a models.Application) models.Application {
	if a.ResponseMessage != nil {
		m := *a.ResponseMessage
		a.ResponseMessage = &m
	}
	if a.RespondedAt != nil {
		t := *a.RespondedAt
		a.RespondedAt = &t
	}
	return a
}

func cloneCreator(c models.Creator) models.Creator {
	c.Tags = append([]string(nil), c.Tags...)
	if c.Coordinate != nil {
		coord := *c.Coordinate
		c.Coordinate = &coord
	}
	return c
}
