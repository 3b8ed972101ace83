// Package feed composes the creator's opportunity feed from the store, the
// relevance filter and the ranking engine.
package feed

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"collabmatch/backend/metrics"
	"collabmatch/backend/models"
	"collabmatch/backend/services/ranking"
	"collabmatch/backend/services/relevance"
	"collabmatch/backend/store"
)

// Store is the read side the feed depends on.
type Store interface {
	ListOpportunities(ctx context.Context) ([]models.Opportunity, error)
	ListApplications(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, error)
	store.CreatorStore
}

// Options tune a single feed request.
type Options struct {
	PreferredRate float64
}

type Feed struct {
	store  Store
	filter relevance.Filter
	engine ranking.Engine
}

func New(s Store, filter relevance.Filter, engine ranking.Engine) *Feed {
	return &Feed{store: s, filter: filter, engine: engine}
}

// ForCreatorID loads the creator profile and subscription state, then builds the feed.
// An unknown creator is treated as a cold-start profile with no tags.
func (f *Feed) ForCreatorID(ctx context.Context, creatorID string, opts Options) []models.MatchResult {
	creator, err := f.store.GetCreator(ctx, creatorID)
	if errors.Is(err, models.ErrNotFound) {
		creator = models.Creator{ID: creatorID}
		creator.IsPriority, err = f.store.IsPriorityMember(ctx, creatorID)
	}
	if err != nil {
		return f.degraded(creatorID, "load creator", err)
	}
	return f.ForCreator(ctx, creator, opts)
}

// ForCreator lists, filters and ranks open roles for creator. Priority members get
// the scored ranking, everyone else the deterministic order. Collaborator failures
// yield an empty feed.
func (f *Feed) ForCreator(ctx context.Context, creator models.Creator, opts Options) []models.MatchResult {
	start := time.Now()

	opportunities, err := f.store.ListOpportunities(ctx)
	if err != nil {
		return f.degraded(creator.ID, "list opportunities", err)
	}
	applications, err := f.store.ListApplications(ctx, models.ApplicationFilter{CreatorID: creator.ID})
	if err != nil {
		return f.degraded(creator.ID, "list applications", err)
	}
	saved, err := f.store.ListSaved(ctx, creator.ID)
	if err != nil {
		// saved entries only change the order
		log.WithField("creator_id", creator.ID).WithError(err).Warn("Could not load saved opportunities")
		saved = nil
	}

	candidates := f.filter.RelevantRoles(creator, opportunities, applications)
	rankOpts := ranking.Options{Saved: saved, PreferredRate: opts.PreferredRate}

	mode := "deterministic"
	var results []models.MatchResult
	if creator.IsPriority {
		mode = "scored"
		results = f.engine.Rank(creator, candidates, rankOpts)
	} else {
		results = f.engine.Ordered(creator, candidates, rankOpts)
	}
	metrics.RecordFeedBuild(mode, time.Since(start))

	log.WithFields(log.Fields{
		"creator_id": creator.ID,
		"mode":       mode,
		"results":    len(results),
	}).Debug("Feed built")
	return results
}

func (f *Feed) degraded(creatorID, op string, err error) []models.MatchResult {
	metrics.RecordFeedDegraded()
	log.WithFields(log.Fields{"creator_id": creatorID, "op": op}).WithError(err).Error("Feed unavailable, returning empty result")
	return []models.MatchResult{}
}
