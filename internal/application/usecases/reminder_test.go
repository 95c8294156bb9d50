package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"caesar-in-a-year/internal/domain/learning"
	"caesar-in-a-year/internal/domain/user"
)

type sentReminder struct {
	chatID int64
	text   string
}

type fakeNotifier struct {
	sent []sentReminder
	err  error
}

func (n *fakeNotifier) SendReminder(chatID int64, text string) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentReminder{chatID: chatID, text: text})
	return nil
}

func newReminderEnv(t *testing.T) (*testEnv, *fakeNotifier, *ReminderUseCase) {
	t.Helper()
	env := newTestEnv(t)
	notifier := &fakeNotifier{}
	reminders := NewReminderUseCase(notifier, env.users, env.prefs, env.cards, nil, zap.NewNop())
	return env, notifier, reminders
}

// seedDueLearner links a chat and leaves one card due at t0
func seedDueLearner(t *testing.T, env *testEnv, id user.ID, chatID int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, env.learners.LinkTelegramChat(ctx, id, chatID))
	card := learning.NewUserCard(id, learning.KindVocab, "v.gallia", t0)
	require.NoError(t, env.cards.SaveCardAndHistory(ctx, card, nil))
}

func TestCheckAndSend(t *testing.T) {
	env, notifier, reminders := newReminderEnv(t)
	ctx := context.Background()

	seedDueLearner(t, env, "alice", 4242)
	seedDueLearner(t, env, "bob", 0)

	reminders.now = func() time.Time { return t0.Add(3 * time.Hour) }
	assert.Equal(t, 1, reminders.CheckAndSend(ctx))
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, int64(4242), notifier.sent[0].chatID)
	assert.Contains(t, notifier.sent[0].text, "One card is ready")

	// daily cap
	reminders.now = func() time.Time { return t0.Add(9 * time.Hour) }
	assert.Zero(t, reminders.CheckAndSend(ctx))

	// next day resets the cap
	reminders.now = func() time.Time { return t0.Add(24 * time.Hour) }
	assert.Equal(t, 1, reminders.CheckAndSend(ctx))
}

func TestCheckAndSendSkips(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, env *testEnv, n *fakeNotifier)
		at    time.Time
	}{
		{
			name: "quiet hours",
			at:   time.Date(2025, 6, 15, 23, 0, 0, 0, time.UTC),
		},
		{
			name: "recently active",
			at:   t0.Add(30 * time.Minute),
		},
		{
			name: "reminders disabled",
			setup: func(t *testing.T, env *testEnv, _ *fakeNotifier) {
				require.NoError(t, env.learners.SetReminders(context.Background(), "alice", false))
			},
			at: t0.Add(3 * time.Hour),
		},
		{
			name: "notifier failure",
			setup: func(_ *testing.T, _ *testEnv, n *fakeNotifier) {
				n.err = errors.New("chat not found")
			},
			at: t0.Add(3 * time.Hour),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, notifier, reminders := newReminderEnv(t)
			seedDueLearner(t, env, "alice", 4242)
			if tt.setup != nil {
				tt.setup(t, env, notifier)
			}
			reminders.now = func() time.Time { return tt.at }
			assert.Zero(t, reminders.CheckAndSend(context.Background()))
			assert.Empty(t, notifier.sent)
		})
	}
}

func TestIsQuietTime(t *testing.T) {
	tests := []struct {
		name       string
		start, end int
		hour       int
		want       bool
	}{
		{name: "overnight window late", start: 22, end: 8, hour: 23, want: true},
		{name: "overnight window early", start: 22, end: 8, hour: 7, want: true},
		{name: "overnight window day", start: 22, end: 8, hour: 12, want: false},
		{name: "daytime window inside", start: 12, end: 14, hour: 13, want: true},
		{name: "daytime window outside", start: 12, end: 14, hour: 14, want: false},
		{name: "empty window", start: 5, end: 5, hour: 5, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := NewReminderUseCase(nil, nil, nil, nil, &ReminderConfig{QuietHoursStart: tt.start, QuietHoursEnd: tt.end}, zap.NewNop())
			at := time.Date(2025, 6, 15, tt.hour, 30, 0, 0, time.UTC)
			assert.Equal(t, tt.want, uc.isQuietTime(at))
		})
	}
}
