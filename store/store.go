// Package store defines the persistence contract shared by the memory and
// postgres implementations.
package store

import (
	"context"
	"time"

	"collabmatch/backend/models"
)

// OpportunityStore reads opportunities with their nested roles and tracks role capacity.
type OpportunityStore interface {
	ListOpportunities(ctx context.Context) ([]models.Opportunity, error)
	GetOpportunity(ctx context.Context, id string) (models.Opportunity, error)
	CreateOpportunity(ctx context.Context, opp models.Opportunity) (models.Opportunity, error)
	// ClaimRoleSlot atomically takes one slot of the role for applicationID when the
	// role is below capacity and marks the role filled when capacity is reached.
	// An application holds at most one slot: a second claim for the same
	// application fails with a *models.TransitionError.
	ClaimRoleSlot(ctx context.Context, opportunityID, roleID, applicationID string) (models.Role, error)
	// ReleaseRoleSlot gives back the slot held by applicationID. Releasing a slot
	// the application does not hold is a no-op.
	ReleaseRoleSlot(ctx context.Context, opportunityID, roleID, applicationID string) error
}

// ApplicationStore persists applications. Records are never deleted.
type ApplicationStore interface {
	ListApplications(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, error)
	GetApplication(ctx context.Context, id string) (models.Application, error)
	// CreateApplication fails with models.ErrDuplicateApplication when an active
	// application already exists for the same natural key.
	CreateApplication(ctx context.Context, app models.Application) (models.Application, error)
	// UpdateApplicationStatus moves an application from -> to. A *models.TransitionError
	// is returned when the stored status is not from.
	UpdateApplicationStatus(ctx context.Context, id string, from, to models.ApplicationStatus, response *string, at time.Time) error
}

// CreatorStore holds creator profiles, saved opportunities and subscription state.
type CreatorStore interface {
	GetCreator(ctx context.Context, id string) (models.Creator, error)
	SaveCreator(ctx context.Context, c models.Creator) (models.Creator, error)
	ListSaved(ctx context.Context, creatorID string) (map[string]bool, error)
	SetSaved(ctx context.Context, creatorID, opportunityID string, saved bool) error
	IsPriorityMember(ctx context.Context, creatorID string) (bool, error)
}

// NotificationStore keeps delivered notifications for the inbox.
type NotificationStore interface {
	SaveNotification(ctx context.Context, n models.Notification) (models.Notification, error)
	ListNotifications(ctx context.Context, userID string) ([]models.Notification, error)
	MarkNotificationsRead(ctx context.Context, userID string, at time.Time) error
}

// UserStore keeps login accounts.
type UserStore interface {
	// CreateUser fails with models.ErrEmailTaken for a registered address.
	CreateUser(ctx context.Context, u models.User) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
}

// Store is the full persistence collaborator.
type Store interface {
	OpportunityStore
	ApplicationStore
	CreatorStore
	NotificationStore
	UserStore
}
