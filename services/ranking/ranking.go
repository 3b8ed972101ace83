package ranking

import (
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/exp/slices"

	"collabmatch/backend/models"
	"collabmatch/backend/services/geo"
	"collabmatch/backend/services/rolematch"
)

const (
	// GreatMatchThreshold is the score at which a role is labelled a great match.
	GreatMatchThreshold = 70.0
	// DefaultRadiusKm applies when a creator has not configured a search radius.
	DefaultRadiusKm = 50.0
	// remoteProximity is the proximity floor granted to remote opportunities.
	remoteProximity = 0.5
)

// Weights of the score components. They are fractions summing to 1.
type Weights struct {
	Skill     float64
	Proximity float64
	Rate      float64
}

var (
	weightsWithRate    = Weights{Skill: 0.5, Proximity: 0.3, Rate: 0.2}
	weightsWithoutRate = Weights{Skill: 0.6, Proximity: 0.4}
)

// Options carry per-request ranking inputs.
type Options struct {
	// Saved holds the ids of opportunities the creator saved for later.
	Saved map[string]bool
	// PreferredRate enables the rate-fit component when positive.
	PreferredRate float64
}

// Engine orders relevant roles for a creator.
type Engine struct {
	Matcher         *rolematch.Matcher
	DefaultRadiusKm float64
}

// New returns an engine. A nil matcher uses the default synonym table and a
// non-positive radius falls back to DefaultRadiusKm.
func New(m *rolematch.Matcher, defaultRadiusKm float64) Engine {
	if m == nil {
		m = rolematch.Default()
	}
	return Engine{Matcher: m, DefaultRadiusKm: defaultRadiusKm}
}

func (e Engine) matcher() *rolematch.Matcher {
	if e.Matcher == nil {
		return rolematch.Default()
	}
	return e.Matcher
}

func (e Engine) radius(c models.Creator) float64 {
	if c.RadiusKm > 0 && !math.IsInf(c.RadiusKm, 0) {
		return c.RadiusKm
	}
	if e.DefaultRadiusKm > 0 && !math.IsInf(e.DefaultRadiusKm, 0) {
		return e.DefaultRadiusKm
	}
	return DefaultRadiusKm
}

// sortKey holds the deterministic criteria of one candidate.
type sortKey struct {
	saved    bool
	sameCity bool
	tagHits  int
	deadline *time.Time
	remote   bool
}

func (e Engine) keyFor(creator models.Creator, c models.Candidate, opts Options, hits map[string]int) sortKey {
	opp := c.Opportunity
	n, ok := hits[opp.ID]
	if !ok {
		n = e.opportunityTagHits(creator.Tags, opp)
		hits[opp.ID] = n
	}
	return sortKey{
		saved:    opts.Saved[opp.ID],
		sameCity: geo.SameCity(creator.City, opp.City),
		tagHits:  n,
		deadline: opp.Deadline,
		remote:   opp.Remote,
	}
}

// opportunityTagHits counts the creator tags that match at least one role of opp.
func (e Engine) opportunityTagHits(tags []string, opp models.Opportunity) int {
	m := e.matcher()
	n := 0
	for _, tag := range tags {
		for _, r := range opp.Roles {
			if m.Match(tag, r.Title) {
				n++
				break
			}
		}
	}
	return n
}

func compareKeys(a, b sortKey) int {
	if a.saved != b.saved {
		if a.saved {
			return -1
		}
		return 1
	}
	if a.sameCity != b.sameCity {
		if a.sameCity {
			return -1
		}
		return 1
	}
	if a.tagHits != b.tagHits {
		if a.tagHits > b.tagHits {
			return -1
		}
		return 1
	}
	if c := compareDeadlines(a.deadline, b.deadline); c != 0 {
		return c
	}
	if a.remote != b.remote {
		if !a.remote {
			return -1
		}
		return 1
	}
	return 0
}

// compareDeadlines puts the soonest first; a missing deadline never wins.
func compareDeadlines(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case a.Before(*b):
		return -1
	case b.Before(*a):
		return 1
	}
	return 0
}

// Compare orders two candidates deterministically: saved, same city, tag hits,
// soonest deadline, local before remote.
func (e Engine) Compare(creator models.Creator, a, b models.Candidate, opts Options) int {
	hits := make(map[string]int, 2)
	return compareKeys(e.keyFor(creator, a, opts, hits), e.keyFor(creator, b, opts, hits))
}

// Order returns candidates sorted deterministically. Ties keep input order.
func (e Engine) Order(creator models.Creator, candidates []models.Candidate, opts Options) []models.Candidate {
	type keyed struct {
		c   models.Candidate
		key sortKey
	}
	hits := make(map[string]int)
	items := make([]keyed, len(candidates))
	for i, c := range candidates {
		items[i] = keyed{c: c, key: e.keyFor(creator, c, opts, hits)}
	}
	slices.SortStableFunc(items, func(a, b keyed) int {
		return compareKeys(a.key, b.key)
	})

	out := make([]models.Candidate, len(items))
	for i, it := range items {
		out[i] = it.c
	}
	return out
}

// Ordered scores every candidate but keeps the deterministic order. Used for
// creators without priority matching so they still see relative standing.
func (e Engine) Ordered(creator models.Creator, candidates []models.Candidate, opts Options) []models.MatchResult {
	ordered := e.Order(creator, candidates, opts)
	out := make([]models.MatchResult, len(ordered))
	for i, c := range ordered {
		out[i] = e.Score(creator, c, opts)
	}
	return out
}

// Rank is the priority-matching mode: highest score first, priority matches ahead
// of equally scored entries, remaining ties in deterministic order.
func (e Engine) Rank(creator models.Creator, candidates []models.Candidate, opts Options) []models.MatchResult {
	type scored struct {
		res models.MatchResult
		key sortKey
	}
	hits := make(map[string]int)
	items := make([]scored, len(candidates))
	for i, c := range candidates {
		items[i] = scored{res: e.Score(creator, c, opts), key: e.keyFor(creator, c, opts, hits)}
	}
	slices.SortStableFunc(items, func(a, b scored) int {
		if a.res.Score != b.res.Score {
			if a.res.Score > b.res.Score {
				return -1
			}
			return 1
		}
		if a.res.IsPriorityMatch != b.res.IsPriorityMatch {
			if a.res.IsPriorityMatch {
				return -1
			}
			return 1
		}
		return compareKeys(a.key, b.key)
	})

	out := make([]models.MatchResult, len(items))
	for i, it := range items {
		out[i] = it.res
	}
	return out
}

// Score computes the bounded [0, 100] match score of one candidate.
func (e Engine) Score(creator models.Creator, c models.Candidate, opts Options) models.MatchResult {
	matched := c.MatchedTags
	if matched == nil && len(creator.Tags) > 0 {
		matched = e.matcher().MatchingTags(creator.Tags, c.Role.Title)
	}

	skill := 0.0
	if len(creator.Tags) > 0 {
		skill = clamp01(float64(len(matched)) / float64(len(creator.Tags)))
	}

	radius := e.radius(creator)
	distance := geo.ResolveDistance(c.Opportunity.Place(), creator.Place())
	proximity := 0.0
	if distance <= radius {
		proximity = clamp01(1 - distance/radius)
	}
	if c.Opportunity.Remote && proximity < remoteProximity {
		proximity = remoteProximity
	}

	w := weightsWithoutRate
	rateFit := 0.0
	if opts.PreferredRate > 0 {
		w = weightsWithRate
		rateFit = rateFitOf(c.Role.Budget, opts.PreferredRate)
	}

	score := 100 * (w.Skill*skill + w.Proximity*proximity + w.Rate*rateFit)
	score = math.Round(clamp(score, 0, 100)*10) / 10

	res := models.MatchResult{
		Opportunity:     c.Opportunity,
		Role:            c.Role,
		Score:           score,
		GreatMatch:      score >= GreatMatchThreshold,
		IsPriorityMatch: creator.IsPriority && len(matched) > 0,
		MatchedTags:     matched,
	}
	if !math.IsInf(distance, 0) && !math.IsNaN(distance) {
		d := distance
		res.DistanceKm = &d
	}
	res.Reason = reason(matched, distance, radius, c.Opportunity.Remote, opts.PreferredRate > 0 && rateFit >= 1)
	return res
}

func rateFitOf(budget, preferred float64) float64 {
	if budget <= 0 || math.IsNaN(budget) {
		return 0
	}
	if budget >= preferred {
		return 1
	}
	return clamp01(budget / preferred)
}

func reason(matched []string, distance, radius float64, remote, rateOK bool) string {
	var parts []string
	if len(matched) > 0 {
		parts = append(parts, "Matches your "+strings.Join(matched, ", ")+" skills")
	}
	switch {
	case distance == 0:
		parts = append(parts, "In your city")
	case distance <= radius:
		parts = append(parts, fmt.Sprintf("%.0f km away", distance))
	}
	if remote {
		parts = append(parts, "Remote friendly")
	}
	if rateOK {
		parts = append(parts, "Budget meets your rate")
	}
	if len(parts) == 0 {
		return "Open role"
	}
	return strings.Join(parts, " · ")
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}
