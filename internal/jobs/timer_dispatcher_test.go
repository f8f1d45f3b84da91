package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Adilet2205/CRM_Reminders/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var testNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

type fakeTimerStore struct {
	mu      sync.Mutex
	due     []models.Timer
	dueErr  error
	updates map[primitive.ObjectID]models.TimerState
	failIDs map[primitive.ObjectID]bool
}

func newFakeTimerStore(due ...models.Timer) *fakeTimerStore {
	return &fakeTimerStore{
		due:     due,
		updates: make(map[primitive.ObjectID]models.TimerState),
		failIDs: make(map[primitive.ObjectID]bool),
	}
}

func (f *fakeTimerStore) GetDueTimers(ctx context.Context, now time.Time) ([]models.Timer, error) {
	if f.dueErr != nil {
		return nil, f.dueErr
	}
	return f.due, nil
}

func (f *fakeTimerStore) UpdateTimerState(ctx context.Context, id primitive.ObjectID, state models.TimerState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIDs[id] {
		return errors.New("update failed")
	}
	f.updates[id] = state
	return nil
}

type fakeNotificationStore struct {
	mu      sync.Mutex
	created []models.Notification
	err     error
}

func (f *fakeNotificationStore) CreateNotifications(ctx context.Context, notifs []models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, notifs...)
	return nil
}

func (f *fakeNotificationStore) forTimer(id primitive.ObjectID) []models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Notification
	for _, n := range f.created {
		if n.TimerID == id {
			out = append(out, n)
		}
	}
	return out
}

type fakeDirectory struct {
	users []models.User
	err   error
}

func (f *fakeDirectory) GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users, nil
}

type fakeSender struct {
	mu     sync.Mutex
	sent   []string
	failTo map[string]bool
}

func newFakeSender() *fakeSender {
	return &fakeSender{failTo: make(map[string]bool)}
}

func (f *fakeSender) Send(to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTo[to] {
		return errors.New("smtp rejected")
	}
	f.sent = append(f.sent, to)
	return nil
}

func newTestDispatcher(timers *fakeTimerStore, notifs *fakeNotificationStore, dir *fakeDirectory, mail *fakeSender) *TimerDispatcher {
	d := NewTimerDispatcher(timers, notifs, dir, mail)
	d.now = func() time.Time { return testNow }
	return d
}

func dueTimer() models.Timer {
	return models.Timer{
		ID:             primitive.NewObjectID(),
		EntityType:     "sale",
		EntityID:       primitive.NewObjectID(),
		TimerType:      "follow_up",
		Priority:       "high",
		ActionRequired: "Call the client",
		Description:    "Discuss the renewal offer",
		AssignedTo:     primitive.NewObjectID(),
		Status:         models.TimerStatusActive,
		TriggerCount:   0,
	}
}

func TestProcessDueTimersEmpty(t *testing.T) {
	timers := newFakeTimerStore()
	notifs := &fakeNotificationStore{}
	d := newTestDispatcher(timers, notifs, &fakeDirectory{}, newFakeSender())

	summary, err := d.ProcessDueTimers(context.Background())

	require.NoError(t, err)
	assert.Equal(t, &Summary{}, summary)
	assert.Empty(t, notifs.created)
	assert.Empty(t, timers.updates)
}

func TestProcessDueTimersFetchFailureIsFatal(t *testing.T) {
	timers := newFakeTimerStore()
	timers.dueErr = errors.New("connection reset")
	d := newTestDispatcher(timers, &fakeNotificationStore{}, &fakeDirectory{}, newFakeSender())

	summary, err := d.ProcessDueTimers(context.Background())

	require.Error(t, err)
	assert.Nil(t, summary)
}

func TestProcessTimerNonRecurringCompletes(t *testing.T) {
	timer := dueTimer()
	timers := newFakeTimerStore(timer)
	notifs := &fakeNotificationStore{}
	d := newTestDispatcher(timers, notifs, &fakeDirectory{}, newFakeSender())

	summary, err := d.ProcessDueTimers(context.Background())

	require.NoError(t, err)
	assert.Equal(t, &Summary{Total: 1, Successful: 1}, summary)

	state, ok := timers.updates[timer.ID]
	require.True(t, ok)
	assert.Equal(t, models.TimerStatusCompleted, state.Status)
	assert.Nil(t, state.NextTrigger)
	assert.Equal(t, 1, state.TriggerCount)
	assert.Equal(t, testNow, state.LastTriggered)
}

func TestProcessTimerDailyRecurrence(t *testing.T) {
	timer := dueTimer()
	timer.RecurrenceEnabled = true
	timer.RecurrencePattern = models.RecurrenceDaily
	timer.RecurrenceInterval = 2
	timer.RecurrenceEndCondition = models.EndConditionNone

	timers := newFakeTimerStore(timer)
	d := newTestDispatcher(timers, &fakeNotificationStore{}, &fakeDirectory{}, newFakeSender())

	_, err := d.ProcessDueTimers(context.Background())
	require.NoError(t, err)

	state := timers.updates[timer.ID]
	assert.Equal(t, models.TimerStatusActive, state.Status)
	require.NotNil(t, state.NextTrigger)
	assert.True(t, state.NextTrigger.Equal(testNow.AddDate(0, 0, 2)))
	assert.Equal(t, 1, state.TriggerCount)
}

func TestProcessTimerMonthlyRecurrence(t *testing.T) {
	timer := dueTimer()
	timer.RecurrenceEnabled = true
	timer.RecurrencePattern = models.RecurrenceMonthly
	timer.RecurrenceInterval = 1
	timer.RecurrenceEndCondition = models.EndConditionNone

	timers := newFakeTimerStore(timer)
	notifs := &fakeNotificationStore{}
	d := newTestDispatcher(timers, notifs, &fakeDirectory{}, newFakeSender())

	_, err := d.ProcessDueTimers(context.Background())
	require.NoError(t, err)

	state := timers.updates[timer.ID]
	assert.Equal(t, models.TimerStatusActive, state.Status)
	require.NotNil(t, state.NextTrigger)
	assert.True(t, state.NextTrigger.Equal(testNow.AddDate(0, 1, 0)))
	assert.Equal(t, 1, state.TriggerCount)
	assert.Len(t, notifs.forTimer(timer.ID), 1)
}

func TestProcessTimerAfterNTimesTermination(t *testing.T) {
	timer := dueTimer()
	timer.TriggerCount = 4
	timer.RecurrenceEnabled = true
	timer.RecurrencePattern = models.RecurrenceDaily
	timer.RecurrenceInterval = 1
	timer.RecurrenceEndCondition = models.EndConditionAfterNTime
	timer.RecurrenceEndValue = "5"

	timers := newFakeTimerStore(timer)
	d := newTestDispatcher(timers, &fakeNotificationStore{}, &fakeDirectory{}, newFakeSender())

	_, err := d.ProcessDueTimers(context.Background())
	require.NoError(t, err)

	state := timers.updates[timer.ID]
	assert.Equal(t, models.TimerStatusCompleted, state.Status)
	assert.Nil(t, state.NextTrigger)
	assert.Equal(t, 5, state.TriggerCount)
}

func TestProcessTimerNotificationFanOut(t *testing.T) {
	timer := dueTimer()
	extra := primitive.NewObjectID()
	// The assignee is listed again; duplicates get their own rows.
	timer.NotifyAlso = []primitive.ObjectID{extra, timer.AssignedTo}

	timers := newFakeTimerStore(timer)
	notifs := &fakeNotificationStore{}
	d := newTestDispatcher(timers, notifs, &fakeDirectory{}, newFakeSender())

	_, err := d.ProcessDueTimers(context.Background())
	require.NoError(t, err)

	rows := notifs.forTimer(timer.ID)
	require.Len(t, rows, 3)
	for _, row := range rows {
		assert.Equal(t, "HIGH: Call the client", row.Title)
		assert.Equal(t, "Discuss the renewal offer", row.Message)
		assert.Equal(t, "high", row.Priority)
		assert.Equal(t, timer.EntityType, row.EntityType)
		assert.Equal(t, timer.EntityID, row.EntityID)
		assert.False(t, row.Read)
	}
	assert.Equal(t, timer.AssignedTo, rows[0].UserID)
	assert.Equal(t, extra, rows[1].UserID)
	assert.Equal(t, timer.AssignedTo, rows[2].UserID)
}

func TestProcessTimerMessageFallsBackToAction(t *testing.T) {
	timer := dueTimer()
	timer.Description = ""

	timers := newFakeTimerStore(timer)
	notifs := &fakeNotificationStore{}
	d := newTestDispatcher(timers, notifs, &fakeDirectory{}, newFakeSender())

	_, err := d.ProcessDueTimers(context.Background())
	require.NoError(t, err)

	rows := notifs.forTimer(timer.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, "Call the client", rows[0].Message)
}

func TestProcessTimerInsertFailureLeavesTimerUntouched(t *testing.T) {
	timer := dueTimer()
	timers := newFakeTimerStore(timer)
	notifs := &fakeNotificationStore{err: errors.New("insert failed")}
	d := newTestDispatcher(timers, notifs, &fakeDirectory{}, newFakeSender())

	summary, err := d.ProcessDueTimers(context.Background())

	require.NoError(t, err)
	assert.Equal(t, &Summary{Total: 1, Failed: 1}, summary)
	// next_trigger was not advanced, so the timer stays eligible.
	assert.Empty(t, timers.updates)
}

func TestProcessTimerUpdateFailureReportedFailed(t *testing.T) {
	timer := dueTimer()
	timers := newFakeTimerStore(timer)
	timers.failIDs[timer.ID] = true
	notifs := &fakeNotificationStore{}
	d := newTestDispatcher(timers, notifs, &fakeDirectory{}, newFakeSender())

	summary, err := d.ProcessDueTimers(context.Background())

	require.NoError(t, err)
	assert.Equal(t, &Summary{Total: 1, Failed: 1}, summary)
	// Rows were already created; re-notification on retry is accepted.
	assert.Len(t, notifs.forTimer(timer.ID), 1)
}

func TestProcessTimerEmailFailureDoesNotFailTimer(t *testing.T) {
	timer := dueTimer()
	second := primitive.NewObjectID()
	timer.NotifyAlso = []primitive.ObjectID{second}
	timer.Channels = []string{models.ChannelEmail}

	dir := &fakeDirectory{users: []models.User{
		{ID: timer.AssignedTo, Email: "assignee@example.com"},
		{ID: second, Email: "watcher@example.com"},
	}}
	sender := newFakeSender()
	sender.failTo["assignee@example.com"] = true

	timers := newFakeTimerStore(timer)
	notifs := &fakeNotificationStore{}
	d := newTestDispatcher(timers, notifs, dir, sender)

	summary, err := d.ProcessDueTimers(context.Background())

	require.NoError(t, err)
	assert.Equal(t, &Summary{Total: 1, Successful: 1}, summary)
	assert.Len(t, notifs.forTimer(timer.ID), 2)
	assert.Equal(t, []string{"watcher@example.com"}, sender.sent)

	state, ok := timers.updates[timer.ID]
	require.True(t, ok)
	assert.Equal(t, 1, state.TriggerCount)
}

func TestProcessTimerDirectoryFailureSkipsEmail(t *testing.T) {
	timer := dueTimer()
	timer.Channels = []string{models.ChannelEmail}

	dir := &fakeDirectory{err: errors.New("directory unavailable")}
	sender := newFakeSender()
	timers := newFakeTimerStore(timer)
	d := newTestDispatcher(timers, &fakeNotificationStore{}, dir, sender)

	summary, err := d.ProcessDueTimers(context.Background())

	require.NoError(t, err)
	assert.Equal(t, &Summary{Total: 1, Successful: 1}, summary)
	assert.Empty(t, sender.sent)
	assert.Contains(t, timers.updates, timer.ID)
}

func TestProcessTimerNoEmailChannelSendsNothing(t *testing.T) {
	timer := dueTimer()
	timer.Channels = []string{models.ChannelInApp}

	sender := newFakeSender()
	timers := newFakeTimerStore(timer)
	notifs := &fakeNotificationStore{}
	d := newTestDispatcher(timers, notifs, &fakeDirectory{}, sender)

	_, err := d.ProcessDueTimers(context.Background())

	require.NoError(t, err)
	assert.Empty(t, sender.sent)
	// The in-app row is created regardless of channel selection.
	assert.Len(t, notifs.forTimer(timer.ID), 1)
}

func TestProcessDueTimersIsolatesFailures(t *testing.T) {
	good := dueTimer()
	bad := dueTimer()

	timers := newFakeTimerStore(good, bad)
	timers.failIDs[bad.ID] = true
	d := newTestDispatcher(timers, &fakeNotificationStore{}, &fakeDirectory{}, newFakeSender())

	summary, err := d.ProcessDueTimers(context.Background())

	require.NoError(t, err)
	assert.Equal(t, &Summary{Total: 2, Successful: 1, Failed: 1}, summary)
	assert.Contains(t, timers.updates, good.ID)
}

func TestProcessDueTimersManyConcurrent(t *testing.T) {
	var due []models.Timer
	for i := 0; i < 50; i++ {
		due = append(due, dueTimer())
	}

	timers := newFakeTimerStore(due...)
	notifs := &fakeNotificationStore{}
	d := newTestDispatcher(timers, notifs, &fakeDirectory{}, newFakeSender())

	summary, err := d.ProcessDueTimers(context.Background())

	require.NoError(t, err)
	assert.Equal(t, &Summary{Total: 50, Successful: 50}, summary)
	assert.Len(t, timers.updates, 50)
	assert.Len(t, notifs.created, 50)
}
