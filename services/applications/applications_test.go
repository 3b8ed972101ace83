package applications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collabmatch/backend/models"
	"collabmatch/backend/store/memory"
)

var fixedNow = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, userID string, msg models.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	msg.UserID = userID
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, s := range n.sent {
		out = append(out, s.Type)
	}
	return out
}

type fixture struct {
	store    *memory.Store
	notifier *recordingNotifier
	manager  *Manager
	opp      models.Opportunity
}

func newFixture(t *testing.T, roles ...models.Role) fixture {
	t.Helper()
	if len(roles) == 0 {
		roles = []models.Role{{Title: "Photographer", Budget: 400}}
	}
	s := memory.New()
	opp, err := s.CreateOpportunity(context.Background(), models.Opportunity{
		OwnerID: "biz-1",
		Title:   "Spring Campaign",
		City:    "Munich",
		Roles:   roles,
	})
	require.NoError(t, err)
	n := &recordingNotifier{}
	return fixture{
		store:    s,
		notifier: n,
		manager:  NewManager(s, n, WithClock(func() time.Time { return fixedNow })),
		opp:      opp,
	}
}

func (f fixture) submit(t *testing.T, creatorID string) models.Application {
	t.Helper()
	app, err := f.manager.Submit(context.Background(), SubmitRequest{
		CreatorID:     creatorID,
		OpportunityID: f.opp.ID,
		RoleID:        f.opp.Roles[0].ID,
		CoverMessage:  "  I shoot products  ",
		ProposedRate:  350,
	})
	require.NoError(t, err)
	return app
}

func TestSubmitCreatesPendingAndNotifiesOwner(t *testing.T) {
	f := newFixture(t)
	app := f.submit(t, "creator-1")

	assert.Equal(t, models.StatusPending, app.Status)
	assert.Equal(t, "Photographer", app.RoleTitle)
	assert.Equal(t, "I shoot products", app.CoverMessage)
	assert.True(t, fixedNow.Equal(app.SubmittedAt))

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "biz-1", f.notifier.sent[0].UserID)
	assert.Equal(t, models.NotifyApplicationReceived, f.notifier.sent[0].Type)
	assert.Contains(t, f.notifier.sent[0].ActionLink, f.opp.ID)
}

func TestSubmitByRoleTitle(t *testing.T) {
	f := newFixture(t)
	app, err := f.manager.Submit(context.Background(), SubmitRequest{
		CreatorID:     "creator-1",
		OpportunityID: f.opp.ID,
		RoleTitle:     "photographer",
	})
	require.NoError(t, err)
	assert.Equal(t, f.opp.Roles[0].ID, app.RoleID)
}

func TestDuplicateSubmissionRejected(t *testing.T) {
	f := newFixture(t)
	f.submit(t, "creator-1")

	_, err := f.manager.Submit(context.Background(), SubmitRequest{
		CreatorID:     "creator-1",
		OpportunityID: f.opp.ID,
		RoleID:        f.opp.Roles[0].ID,
	})
	assert.ErrorIs(t, err, models.ErrDuplicateApplication)

	pending, err := f.manager.ListForCreator(context.Background(), "creator-1", models.StatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestConcurrentDuplicateSubmissions(t *testing.T) {
	f := newFixture(t)
	req := SubmitRequest{CreatorID: "creator-1", OpportunityID: f.opp.ID, RoleID: f.opp.Roles[0].ID}

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.manager.Submit(context.Background(), req)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, models.ErrDuplicateApplication)
	}
	assert.Equal(t, 1, ok)
}

func TestReapplyAfterWithdraw(t *testing.T) {
	f := newFixture(t)
	app := f.submit(t, "creator-1")

	withdrawn, err := f.manager.Withdraw(context.Background(), app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusWithdrawn, withdrawn.Status)
	assert.Nil(t, withdrawn.RespondedAt)

	again := f.submit(t, "creator-1")
	assert.NotEqual(t, app.ID, again.ID)
	assert.Equal(t, []string{models.NotifyApplicationReceived, models.NotifyApplicationReceived}, f.notifier.types())
}

func TestAcceptTwiceIsInvalidTransition(t *testing.T) {
	f := newFixture(t)
	app := f.submit(t, "creator-1")
	msg := "See you Monday"

	accepted, err := f.manager.Accept(context.Background(), app.ID, &msg)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, accepted.Status)
	require.NotNil(t, accepted.RespondedAt)
	assert.True(t, fixedNow.Equal(*accepted.RespondedAt))

	_, err = f.manager.Accept(context.Background(), app.ID, &msg)
	var te *models.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, models.StatusAccepted, te.From)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	stored, err := f.manager.Get(context.Background(), app.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ResponseMessage)
	assert.Equal(t, msg, *stored.ResponseMessage)

	assert.Equal(t, []string{models.NotifyApplicationReceived, models.NotifyApplicationAccepted}, f.notifier.types())
	assert.Contains(t, f.notifier.sent[1].Message, msg)
	assert.Equal(t, "creator-1", f.notifier.sent[1].UserID)
}

func TestTransitionsOnlyFromPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	rejected := f.submit(t, "creator-1")
	_, err := f.manager.Reject(ctx, rejected.ID, nil)
	require.NoError(t, err)

	for name, call := range map[string]func() error{
		"accept":   func() error { _, err := f.manager.Accept(ctx, rejected.ID, nil); return err },
		"reject":   func() error { _, err := f.manager.Reject(ctx, rejected.ID, nil); return err },
		"withdraw": func() error { _, err := f.manager.Withdraw(ctx, rejected.ID); return err },
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, call(), models.ErrInvalidTransition)
		})
	}

	_, err = f.manager.Accept(ctx, "missing", nil)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAcceptRespectsRoleCapacity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, models.Role{Title: "Model", Capacity: 1})
	first := f.submit(t, "creator-1")
	second := f.submit(t, "creator-2")

	_, err := f.manager.Accept(ctx, first.ID, nil)
	require.NoError(t, err)

	_, err = f.manager.Accept(ctx, second.ID, nil)
	assert.ErrorIs(t, err, models.ErrRoleFilled)

	stillPending, err := f.manager.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stillPending.Status)

	opp, err := f.store.GetOpportunity(ctx, f.opp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleFilled, opp.Roles[0].Status)

	_, err = f.manager.Submit(ctx, SubmitRequest{CreatorID: "creator-3", OpportunityID: f.opp.ID, RoleID: opp.Roles[0].ID})
	assert.ErrorIs(t, err, models.ErrRoleUnavailable)
}

func TestConcurrentAcceptsSucceedOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, models.Role{Title: "Model", Capacity: 10})
	app := f.submit(t, "creator-1")

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.manager.Accept(ctx, app.ID, nil)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, models.ErrInvalidTransition)
	}
	assert.Equal(t, 1, ok)

	opp, err := f.store.GetOpportunity(ctx, f.opp.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, opp.Roles[0].FilledCount)
}

func TestConcurrentAcceptsSucceedOnceSingleSlot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, models.Role{Title: "Model"})
	app := f.submit(t, "creator-1")

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.manager.Accept(ctx, app.ID, nil)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, models.ErrInvalidTransition)
		assert.NotErrorIs(t, err, models.ErrRoleFilled)
	}
	assert.Equal(t, 1, ok)

	opp, err := f.store.GetOpportunity(ctx, f.opp.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, opp.Roles[0].FilledCount)
	assert.Equal(t, models.RoleFilled, opp.Roles[0].Status)
}

// pausingStore holds the first status write until release is closed.
type pausingStore struct {
	*memory.Store
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (p *pausingStore) UpdateApplicationStatus(ctx context.Context, id string, from, to models.ApplicationStatus, response *string, at time.Time) error {
	p.once.Do(func() {
		close(p.entered)
		<-p.release
	})
	return p.Store.UpdateApplicationStatus(ctx, id, from, to, response, at)
}

func TestRetryDuringAcceptIsInvalidTransition(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, models.Role{Title: "Model"})
	app := f.submit(t, "creator-1")

	ps := &pausingStore{Store: f.store, entered: make(chan struct{}), release: make(chan struct{})}
	m := NewManager(ps, f.notifier, WithClock(func() time.Time { return fixedNow }))

	firstErr := make(chan error, 1)
	go func() {
		_, err := m.Accept(ctx, app.ID, nil)
		firstErr <- err
	}()
	<-ps.entered

	// the first accept holds the only slot but has not written the status yet
	_, err := m.Accept(ctx, app.ID, nil)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	assert.NotErrorIs(t, err, models.ErrRoleFilled)

	close(ps.release)
	require.NoError(t, <-firstErr)

	stored, err := m.Get(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, stored.Status)
}

func TestNotifierFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("push gateway down")

	app, err := f.manager.Submit(context.Background(), SubmitRequest{
		CreatorID:     "creator-1",
		OpportunityID: f.opp.ID,
		RoleID:        f.opp.Roles[0].ID,
	})
	require.NoError(t, err)

	_, err = f.manager.Accept(context.Background(), app.ID, nil)
	require.NoError(t, err)

	stored, err := f.manager.Get(context.Background(), app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, stored.Status)
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t)
	from := fixedNow
	to := fixedNow.Add(-time.Hour)

	cases := map[string]SubmitRequest{
		"no creator":        {OpportunityID: f.opp.ID, RoleID: f.opp.Roles[0].ID},
		"no role":           {CreatorID: "c", OpportunityID: f.opp.ID},
		"negative rate":     {CreatorID: "c", OpportunityID: f.opp.ID, RoleID: f.opp.Roles[0].ID, ProposedRate: -1},
		"inverted schedule": {CreatorID: "c", OpportunityID: f.opp.ID, RoleID: f.opp.Roles[0].ID, Availability: models.Availability{From: &from, To: &to}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.manager.Submit(context.Background(), req)
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}

	_, err := f.manager.Submit(context.Background(), SubmitRequest{CreatorID: "c", OpportunityID: "missing", RoleID: "r"})
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = f.manager.Submit(context.Background(), SubmitRequest{CreatorID: "c", OpportunityID: f.opp.ID, RoleID: "missing"})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestListForOpportunityRequiresOwner(t *testing.T) {
	f := newFixture(t)
	f.submit(t, "creator-1")

	apps, err := f.manager.ListForOpportunity(context.Background(), "biz-1", f.opp.ID)
	require.NoError(t, err)
	assert.Len(t, apps, 1)

	_, err = f.manager.ListForOpportunity(context.Background(), "someone-else", f.opp.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAuthorize(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	app := f.submit(t, "creator-1")

	assert.NoError(t, f.manager.Authorize(ctx, "biz-1", app.ID, models.StatusAccepted))
	assert.ErrorIs(t, f.manager.Authorize(ctx, "creator-1", app.ID, models.StatusAccepted), models.ErrNotFound)
	assert.NoError(t, f.manager.Authorize(ctx, "creator-1", app.ID, models.StatusWithdrawn))
	assert.ErrorIs(t, f.manager.Authorize(ctx, "biz-1", app.ID, models.StatusWithdrawn), models.ErrNotFound)
}
