// Package applications implements the application lifecycle: submit, accept,
// reject and withdraw, with best-effort notifications on each step.
package applications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"collabmatch/backend/metrics"
	"collabmatch/backend/models"
	"collabmatch/backend/store"
)

// Store is the persistence the manager needs.
type Store interface {
	store.OpportunityStore
	store.ApplicationStore
}

// Notifier delivers a notification to a single user. Errors are logged and dropped.
type Notifier interface {
	Notify(ctx context.Context, userID string, n models.Notification) error
}

// SubmitRequest carries the creator's input for a new application. RoleID wins
// over RoleTitle when both are set.
type SubmitRequest struct {
	CreatorID     string              `json:"creator_id"`
	OpportunityID string              `json:"opportunity_id"`
	RoleID        string              `json:"role_id"`
	RoleTitle     string              `json:"role_title"`
	CoverMessage  string              `json:"cover_message"`
	ProposedRate  float64             `json:"proposed_rate"`
	Availability  models.Availability `json:"availability"`
}

type Manager struct {
	store    Store
	notifier Notifier
	now      func() time.Time
}

type Option func(*Manager)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(s Store, notifier Notifier, opts ...Option) *Manager {
	m := &Manager{
		store:    s,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Submit creates a pending application and notifies the opportunity owner.
func (m *Manager) Submit(ctx context.Context, req SubmitRequest) (models.Application, error) {
	app, err := m.submit(ctx, req)
	metrics.RecordSubmission(outcome(err))
	return app, err
}

func (m *Manager) submit(ctx context.Context, req SubmitRequest) (models.Application, error) {
	if req.CreatorID == "" || req.OpportunityID == "" {
		return models.Application{}, models.Invalid("creator and opportunity are required")
	}
	if req.RoleID == "" && strings.TrimSpace(req.RoleTitle) == "" {
		return models.Application{}, models.Invalid("role id or title is required")
	}
	if req.ProposedRate < 0 {
		return models.Application{}, models.Invalid("proposed rate must not be negative")
	}
	if av := req.Availability; av.From != nil && av.To != nil && av.To.Before(*av.From) {
		return models.Application{}, models.Invalid("availability ends before it starts")
	}

	opp, err := m.store.GetOpportunity(ctx, req.OpportunityID)
	if err != nil {
		return models.Application{}, err
	}
	role, ok := opp.FindRole(req.RoleID, req.RoleTitle)
	if !ok {
		return models.Application{}, models.NotFound("role", firstNonEmpty(req.RoleID, req.RoleTitle))
	}
	if role.Status != models.RoleOpen {
		return models.Application{}, fmt.Errorf("role %s is %s: %w", role.ID, role.Status, models.ErrRoleUnavailable)
	}

	// Pre-check for a clear error; the store enforces the same rule atomically.
	existing, err := m.store.ListApplications(ctx, models.ApplicationFilter{
		OpportunityID: opp.ID,
		CreatorID:     req.CreatorID,
		StatusIn:      models.ActiveStatuses,
	})
	if err != nil {
		return models.Application{}, err
	}
	for _, a := range existing {
		if a.SameRole(opp.ID, role.ID, role.Title, req.CreatorID) {
			return models.Application{}, models.ErrDuplicateApplication
		}
	}

	app, err := m.store.CreateApplication(ctx, models.Application{
		OpportunityID: opp.ID,
		RoleID:        role.ID,
		RoleTitle:     role.Title,
		CreatorID:     req.CreatorID,
		CoverMessage:  strings.TrimSpace(req.CoverMessage),
		ProposedRate:  req.ProposedRate,
		Availability:  req.Availability,
		Status:        models.StatusPending,
		SubmittedAt:   m.now(),
	})
	if err != nil {
		return models.Application{}, err
	}

	log.WithFields(log.Fields{
		"application_id": app.ID,
		"opportunity_id": opp.ID,
		"role_id":        role.ID,
		"creator_id":     req.CreatorID,
	}).Info("Application submitted")

	m.notify(ctx, opp.OwnerID, models.Notification{
		Type:       models.NotifyApplicationReceived,
		Title:      "New application",
		Message:    fmt.Sprintf("You received a new application for %s in %s", role.Title, opp.Title),
		ActionLink: "/opportunities/" + opp.ID + "/applications",
	})
	return app, nil
}

// Accept moves a pending application to accepted and takes one slot of its role.
func (m *Manager) Accept(ctx context.Context, id string, response *string) (models.Application, error) {
	app, err := m.accept(ctx, id, response)
	metrics.RecordTransition(string(models.StatusAccepted), outcome(err))
	return app, err
}

func (m *Manager) accept(ctx context.Context, id string, response *string) (models.Application, error) {
	app, err := m.store.GetApplication(ctx, id)
	if err != nil {
		return models.Application{}, err
	}
	if app.Status != models.StatusPending {
		return models.Application{}, &models.TransitionError{ID: id, From: app.Status, To: models.StatusAccepted}
	}

	if _, err := m.store.ClaimRoleSlot(ctx, app.OpportunityID, app.RoleID, app.ID); err != nil {
		// A retry racing an in-flight accept of the same application gets a
		// TransitionError from the store. A retry arriving after that accept
		// finished sees the role full and the application no longer pending.
		if errors.Is(err, models.ErrRoleFilled) {
			if current, getErr := m.store.GetApplication(ctx, id); getErr == nil && current.Status != models.StatusPending {
				return models.Application{}, &models.TransitionError{ID: id, From: current.Status, To: models.StatusAccepted}
			}
		}
		return models.Application{}, err
	}

	at := m.now()
	if err := m.store.UpdateApplicationStatus(ctx, id, models.StatusPending, models.StatusAccepted, response, at); err != nil {
		if releaseErr := m.store.ReleaseRoleSlot(ctx, app.OpportunityID, app.RoleID, app.ID); releaseErr != nil {
			log.WithFields(log.Fields{
				"application_id": id,
				"role_id":        app.RoleID,
			}).WithError(releaseErr).Error("Failed to release role slot after rejected accept")
		}
		return models.Application{}, err
	}

	app.Status = models.StatusAccepted
	app.ResponseMessage = response
	app.RespondedAt = &at

	message := "Your application for " + app.RoleTitle + " was accepted"
	if response != nil && *response != "" {
		message += ": " + *response
	}
	m.notify(ctx, app.CreatorID, models.Notification{
		Type:       models.NotifyApplicationAccepted,
		Title:      "Application accepted",
		Message:    message,
		ActionLink: "/applications/" + app.ID,
	})
	return app, nil
}

// Reject moves a pending application to rejected.
func (m *Manager) Reject(ctx context.Context, id string, response *string) (models.Application, error) {
	app, err := m.transition(ctx, id, models.StatusRejected, response)
	metrics.RecordTransition(string(models.StatusRejected), outcome(err))
	if err != nil {
		return models.Application{}, err
	}

	message := "Your application for " + app.RoleTitle + " was not selected"
	if response != nil && *response != "" {
		message += ": " + *response
	}
	m.notify(ctx, app.CreatorID, models.Notification{
		Type:       models.NotifyApplicationRejected,
		Title:      "Application update",
		Message:    message,
		ActionLink: "/applications/" + app.ID,
	})
	return app, nil
}

// Withdraw lets the creator retract a pending application. Nobody is notified.
func (m *Manager) Withdraw(ctx context.Context, id string) (models.Application, error) {
	app, err := m.transition(ctx, id, models.StatusWithdrawn, nil)
	metrics.RecordTransition(string(models.StatusWithdrawn), outcome(err))
	return app, err
}

func (m *Manager) transition(ctx context.Context, id string, to models.ApplicationStatus, response *string) (models.Application, error) {
	app, err := m.store.GetApplication(ctx, id)
	if err != nil {
		return models.Application{}, err
	}
	if app.Status != models.StatusPending {
		return models.Application{}, &models.TransitionError{ID: id, From: app.Status, To: to}
	}

	at := m.now()
	if err := m.store.UpdateApplicationStatus(ctx, id, models.StatusPending, to, response, at); err != nil {
		return models.Application{}, err
	}

	app.Status = to
	if response != nil {
		app.ResponseMessage = response
	}
	if to == models.StatusRejected {
		app.RespondedAt = &at
	}
	log.WithFields(log.Fields{"application_id": id, "status": to}).Info("Application status changed")
	return app, nil
}

func (m *Manager) Get(ctx context.Context, id string) (models.Application, error) {
	return m.store.GetApplication(ctx, id)
}

// ListForCreator returns the creator's applications, optionally narrowed by status.
func (m *Manager) ListForCreator(ctx context.Context, creatorID string, statuses ...models.ApplicationStatus) ([]models.Application, error) {
	return m.store.ListApplications(ctx, models.ApplicationFilter{CreatorID: creatorID, StatusIn: statuses})
}

// ListForOpportunity returns applications to an opportunity. Only its owner may read them.
func (m *Manager) ListForOpportunity(ctx context.Context, ownerID, opportunityID string) ([]models.Application, error) {
	opp, err := m.store.GetOpportunity(ctx, opportunityID)
	if err != nil {
		return nil, err
	}
	if opp.OwnerID != ownerID {
		return nil, models.NotFound("opportunity", opportunityID)
	}
	return m.store.ListApplications(ctx, models.ApplicationFilter{OpportunityID: opportunityID})
}

// Authorize reports whether userID may act on the application with the given action.
// Owners accept and reject, the applying creator withdraws.
func (m *Manager) Authorize(ctx context.Context, userID, applicationID string, to models.ApplicationStatus) error {
	app, err := m.store.GetApplication(ctx, applicationID)
	if err != nil {
		return err
	}
	if to == models.StatusWithdrawn {
		if app.CreatorID != userID {
			return models.NotFound("application", applicationID)
		}
		return nil
	}
	opp, err := m.store.GetOpportunity(ctx, app.OpportunityID)
	if err != nil {
		return err
	}
	if opp.OwnerID != userID {
		return models.NotFound("application", applicationID)
	}
	return nil
}

// notify never fails the caller; the application record is the source of truth.
func (m *Manager) notify(ctx context.Context, userID string, n models.Notification) {
	if m.notifier == nil || userID == "" {
		return
	}
	n.UserID = userID
	if n.CreatedAt.IsZero() {
		n.CreatedAt = m.now()
	}
	if err := m.notifier.Notify(ctx, userID, n); err != nil {
		metrics.RecordNotificationFailure(n.Type)
		log.WithFields(log.Fields{
			"user_id": userID,
			"type":    n.Type,
		}).WithError(err).Warn("Failed to deliver notification")
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrDuplicateApplication):
		return "duplicate"
	case errors.Is(err, models.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrRoleUnavailable), errors.Is(err, models.ErrRoleFilled):
		return "role_unavailable"
	case errors.Is(err, models.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
