package chatbot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/haseebgb92/blooms-journey-sub000/internal/domain"
	"github.com/haseebgb92/blooms-journey-sub000/internal/eventbus"
	"github.com/haseebgb92/blooms-journey-sub000/internal/store"
)

// fakeRepo records chat messages in memory; the embedded interface
// panics on anything the debounce service shouldn't touch.
type fakeRepo struct {
	store.Repo
	mu        sync.Mutex
	msgs      []*domain.ChatMessage
	createErr error
}

func (f *fakeRepo) CreateChatMessage(_ context.Context, m *domain.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil && m.Bot {
		return f.createErr
	}
	cp := *m
	f.msgs = append(f.msgs, &cp)
	return nil
}

func (f *fakeRepo) LatestChatMessage(_ context.Context, conversationID string) (*domain.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.msgs) - 1; i >= 0; i-- {
		if f.msgs[i].ConversationID == conversationID {
			cp := *f.msgs[i]
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeRepo) botReplies(conversationID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.msgs {
		if m.ConversationID == conversationID && m.Bot {
			out = append(out, m.Body)
		}
	}
	return out
}

type fakeGenerator struct {
	reply string
	err   error
}

func (f *fakeGenerator) Reply(context.Context, string, string) (string, error) {
	return f.reply, f.err
}

func newService(t *testing.T, gen Generator, cfg Config) (*Service, *fakeRepo, *clockwork.FakeClock) {
	t.Helper()
	repo := &fakeRepo{}
	clk := clockwork.NewFakeClockAt(time.Date(2025, time.May, 5, 12, 0, 0, 0, time.UTC))
	svc := New(repo, gen, eventbus.New(), clk, zap.NewNop(), cfg)
	return svc, repo, clk
}

func human(conv, body string) *domain.ChatMessage {
	return &domain.ChatMessage{ConversationID: conv, UserID: "u1", Body: body}
}

func waitForReplies(t *testing.T, repo *fakeRepo, conv string, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(repo.botReplies(conv)) == want
	}, 2*time.Second, 10*time.Millisecond)
}

func assertNoReply(t *testing.T, repo *fakeRepo, conv string) {
	t.Helper()
	time.Sleep(50 * time.Millisecond) // let any stray timer goroutine run
	assert.Empty(t, repo.botReplies(conv))
}

func TestFiresAfterQuietPeriod(t *testing.T) {
	svc, repo, clk := newService(t, &fakeGenerator{reply: "from the model"}, Config{Deadline: 30 * time.Second})
	ctx := context.Background()

	require.NoError(t, svc.OnHumanMessage(ctx, human("c1", "is this normal?")))
	clk.Advance(29 * time.Second)
	assertNoReply(t, repo, "c1")

	clk.Advance(time.Second)
	waitForReplies(t, repo, "c1", 1)
	assert.Equal(t, "from the model", repo.botReplies("c1")[0])
}

func TestNewMessageResetsDeadline(t *testing.T) {
	svc, repo, clk := newService(t, &fakeGenerator{reply: "hi"}, Config{Deadline: 30 * time.Second})
	ctx := context.Background()

	require.NoError(t, svc.OnHumanMessage(ctx, human("c1", "first")))
	clk.Advance(10 * time.Second)
	require.NoError(t, svc.OnHumanMessage(ctx, human("c1", "second"))) // cancels, re-arms

	// t=35s: past the first deadline, before the second.
	clk.Advance(25 * time.Second)
	assertNoReply(t, repo, "c1")

	// t=40s: the re-armed deadline elapses.
	clk.Advance(5 * time.Second)
	waitForReplies(t, repo, "c1", 1)
}

func TestCooldownSuppressesSecondFire(t *testing.T) {
	svc, repo, clk := newService(t, &fakeGenerator{reply: "hi"},
		Config{Deadline: 30 * time.Second, Cooldown: time.Minute})
	ctx := context.Background()

	require.NoError(t, svc.OnHumanMessage(ctx, human("c1", "first")))
	clk.Advance(30 * time.Second)
	waitForReplies(t, repo, "c1", 1)

	// Second round lands within the cooldown window of the first reply.
	require.NoError(t, svc.OnHumanMessage(ctx, human("c1", "second")))
	clk.Advance(30 * time.Second)
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, repo.botReplies("c1"), 1, "second fire within cooldown is suppressed")

	// After the cooldown a new round replies again.
	require.NoError(t, svc.OnHumanMessage(ctx, human("c1", "third")))
	clk.Advance(time.Minute)
	waitForReplies(t, repo, "c1", 2)
}

func TestStaleThreadNeverTriggersReply(t *testing.T) {
	svc, repo, clk := newService(t, &fakeGenerator{reply: "hi"},
		Config{Deadline: 30 * time.Second, StaleAfter: 5 * time.Minute})
	ctx := context.Background()

	require.NoError(t, svc.OnHumanMessage(ctx, human("c1", "anyone?")))
	// The process was suspended; by the time the timer runs the thread is
	// long stale.
	clk.Advance(10 * time.Minute)
	assertNoReply(t, repo, "c1")
}

func TestLastMessageFromBotSuppressesReply(t *testing.T) {
	svc, repo, clk := newService(t, &fakeGenerator{reply: "hi"}, Config{Deadline: 30 * time.Second})
	ctx := context.Background()

	require.NoError(t, svc.OnHumanMessage(ctx, human("c1", "question")))
	// Another device's bot already answered this thread.
	require.NoError(t, repo.CreateChatMessage(ctx, &domain.ChatMessage{
		ID: "b1", ConversationID: "c1", Body: "answered elsewhere", Bot: true,
		CreatedAt: clk.Now(),
	}))

	clk.Advance(30 * time.Second)
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, repo.botReplies("c1"), 1, "only the pre-existing bot message remains")
}

func TestGeneratorFailureUsesFallbackPool(t *testing.T) {
	svc, repo, clk := newService(t, &fakeGenerator{err: errors.New("completion api down")},
		Config{Deadline: 30 * time.Second})
	ctx := context.Background()

	require.NoError(t, svc.OnHumanMessage(ctx, human("c1", "help")))
	clk.Advance(30 * time.Second)
	waitForReplies(t, repo, "c1", 1)

	got := repo.botReplies("c1")[0]
	assert.Contains(t, fallbackPool, got)
}

func TestNilGeneratorUsesFallbackPool(t *testing.T) {
	svc, repo, clk := newService(t, nil, Config{Deadline: 30 * time.Second})
	ctx := context.Background()

	require.NoError(t, svc.OnHumanMessage(ctx, human("c1", "help")))
	clk.Advance(30 * time.Second)
	waitForReplies(t, repo, "c1", 1)
	assert.Contains(t, fallbackPool, repo.botReplies("c1")[0])
}

func TestCloseConversationCancelsTimer(t *testing.T) {
	svc, repo, clk := newService(t, &fakeGenerator{reply: "hi"}, Config{Deadline: 30 * time.Second})
	ctx := context.Background()

	require.NoError(t, svc.OnHumanMessage(ctx, human("c1", "question")))
	require.True(t, svc.Armed("c1"))

	svc.CloseConversation("c1")
	assert.False(t, svc.Armed("c1"))

	clk.Advance(time.Minute)
	assertNoReply(t, repo, "c1")
}

func TestPersistFailureDropsReplySilently(t *testing.T) {
	repo := &fakeRepo{createErr: errors.New("store down")}
	clk := clockwork.NewFakeClockAt(time.Date(2025, time.May, 5, 12, 0, 0, 0, time.UTC))
	svc := New(repo, &fakeGenerator{reply: "hi"}, eventbus.New(), clk, zap.NewNop(), Config{Deadline: 30 * time.Second})
	ctx := context.Background()

	require.NoError(t, svc.OnHumanMessage(ctx, human("c1", "question")))
	clk.Advance(30 * time.Second)
	assertNoReply(t, repo, "c1")
}

func TestBotMessageRejectedAsInput(t *testing.T) {
	svc, _, _ := newService(t, nil, Config{})
	err := svc.OnHumanMessage(context.Background(), &domain.ChatMessage{
		ConversationID: "c1", Body: "x", Bot: true,
	})
	require.Error(t, err)
}
