// Package jobs holds scheduled background work.
package jobs

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"collabmatch/backend/metrics"
	"collabmatch/backend/models"
)

type Store interface {
	ListApplications(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, error)
	GetOpportunity(ctx context.Context, id string) (models.Opportunity, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID string, n models.Notification) error
}

// Reminders tells opportunity owners about applications left pending too long.
type Reminders struct {
	store    Store
	notifier Notifier
	after    time.Duration
	now      func() time.Time
	cron     *cron.Cron
}

func NewReminders(s Store, n Notifier, after time.Duration) *Reminders {
	return &Reminders{
		store:    s,
		notifier: n,
		after:    after,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run sends one reminder per opportunity with stale pending applications and
// returns how many were delivered. Delivery failures are logged and skipped.
func (r *Reminders) Run(ctx context.Context) (int, error) {
	cutoff := r.now().Add(-r.after)
	pending, err := r.store.ListApplications(ctx, models.ApplicationFilter{
		StatusIn:    []models.ApplicationStatus{models.StatusPending},
		SubmittedTo: &cutoff,
	})
	if err != nil {
		return 0, err
	}

	perOpportunity := make(map[string]int)
	for _, app := range pending {
		perOpportunity[app.OpportunityID]++
	}
	ids := make([]string, 0, len(perOpportunity))
	for id := range perOpportunity {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	sent := 0
	for _, id := range ids {
		opp, err := r.store.GetOpportunity(ctx, id)
		if err != nil {
			log.WithField("opportunity_id", id).WithError(err).Warn("Skipping reminder")
			continue
		}
		count := perOpportunity[id]
		n := models.Notification{
			UserID:     opp.OwnerID,
			Type:       models.NotifyApplicationReminder,
			Title:      "Applications waiting",
			Message:    fmt.Sprintf("%d application(s) for %s have been waiting for a response", count, opp.Title),
			ActionLink: "/opportunities/" + opp.ID + "/applications",
			CreatedAt:  r.now(),
		}
		if err := r.notifier.Notify(ctx, opp.OwnerID, n); err != nil {
			metrics.RecordNotificationFailure(n.Type)
			log.WithField("opportunity_id", id).WithError(err).Warn("Failed to send reminder")
			continue
		}
		sent++
	}
	return sent, nil
}

// Start schedules Run on the cron spec. An empty spec leaves the job disabled.
func (r *Reminders) Start(spec string) error {
	if spec == "" {
		log.Printf("Reminder job disabled")
		return nil
	}
	r.cron = cron.New()
	_, err := r.cron.AddFunc(spec, func() {
		log.Println("Starting scheduled application reminders...")
		sent, err := r.Run(context.Background())
		metrics.RecordReminderRun(err == nil)
		if err != nil {
			log.Printf("Scheduled reminders failed: %v", err)
			return
		}
		log.Printf("Scheduled reminders completed, %d sent", sent)
	})
	if err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", spec, err)
	}
	r.cron.Start()
	return nil
}

// Stop waits for a running job to finish.
func (r *Reminders) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
}
