package controllers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zanmisante/zanmisante/services/llm"
	"zanmisante/zanmisante/sources/psql/dao"
	"zanmisante/zanmisante/sources/psql/models"
	"zanmisante/zanmisante/sources/session"
)

// fakeStore is an in-memory ChatStore.
type fakeStore struct {
	chats []models.Chat // most recent first
	msgs  map[uuid.UUID][]models.Message

	listChatsErr error
	appendErr    error
	renameErr    error

	createCalls int
	clock       time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		msgs:  make(map[uuid.UUID][]models.Message),
		clock: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (s *fakeStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *fakeStore) ListChats(ctx context.Context, userID int) ([]models.Chat, error) {
	if s.listChatsErr != nil {
		return nil, s.listChatsErr
	}
	var out []models.Chat
	for _, c := range s.chats {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *fakeStore) CreateChat(ctx context.Context, userID int, title string) (*models.Chat, error) {
	s.createCalls++
	chat := models.Chat{ID: uuid.New(), UserID: userID, Title: title, CreatedAt: s.tick()}
	s.chats = append([]models.Chat{chat}, s.chats...)
	return &chat, nil
}

func (s *fakeStore) RenameChat(ctx context.Context, chatID uuid.UUID, title string) error {
	if s.renameErr != nil {
		return s.renameErr
	}
	for i := range s.chats {
		if s.chats[i].ID == chatID {
			s.chats[i].Title = title
			return nil
		}
	}
	return dao.ErrNotFound
}

func (s *fakeStore) ListMessages(ctx context.Context, chatID uuid.UUID) ([]models.Message, error) {
	return s.msgs[chatID], nil
}

func (s *fakeStore) AppendMessage(ctx context.Context, chatID uuid.UUID, role, content string) (*models.Message, error) {
	if s.appendErr != nil {
		return nil, s.appendErr
	}
	msg := models.Message{ID: uuid.New(), ChatID: chatID, Role: role, Content: content, CreatedAt: s.tick()}
	s.msgs[chatID] = append(s.msgs[chatID], msg)
	return &msg, nil
}

func (s *fakeStore) titleOf(chatID uuid.UUID) string {
	for _, c := range s.chats {
		if c.ID == chatID {
			return c.Title
		}
	}
	return ""
}

// fakeLLM records the history it was called with.
type fakeLLM struct {
	reply     string
	err       error
	histories [][]llm.Message
}

func (f *fakeLLM) Generate(ctx context.Context, history []llm.Message) (string, error) {
	f.histories = append(f.histories, history)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newTestController(store ChatStore, client llm.Client) (*ChatController, *session.Store) {
	sessions := session.NewStore()
	sessions.Create("sess", 1)
	return NewChatController(store, client, sessions), sessions
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"What is photosynthesis?", "What is photosynthesis?"},
		{"The leaf shows signs of chlorosis today", "The leaf shows signs of chlorosis..."},
		{"one two three four five six", "one two three four five six"},
		{"one two three four five six seven", "one two three four five six..."},
		{"  spaced   out   words  ", "spaced out words"},
		{"", "New Chat"},
		{"   ", "New Chat"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DeriveTitle(tt.in), "input %q", tt.in)
	}
}

func TestBootstrapReusesEmptyConversation(t *testing.T) {
	store := newFakeStore()
	existing, _ := store.CreateChat(context.Background(), 1, models.DefaultChatTitle)
	store.createCalls = 0

	ctrl, sessions := newTestController(store, &fakeLLM{reply: "ok"})
	chat, err := ctrl.Bootstrap(context.Background(), 1, "sess")
	require.NoError(t, err)
	require.NotNil(t, chat)
	assert.Equal(t, existing.ID, chat.ID)
	assert.Zero(t, store.createCalls)

	active, ok := sessions.ActiveChat("sess")
	assert.True(t, ok)
	assert.Equal(t, existing.ID, active)
}

func TestBootstrapCreatesWhenRecentHasContent(t *testing.T) {
	store := newFakeStore()
	existing, _ := store.CreateChat(context.Background(), 1, "Aloe care...")
	store.AppendMessage(context.Background(), existing.ID, models.RoleUser, "How do I care for aloe?")
	store.createCalls = 0

	ctrl, sessions := newTestController(store, &fakeLLM{reply: "ok"})
	chat, err := ctrl.Bootstrap(context.Background(), 1, "sess")
	require.NoError(t, err)
	require.NotNil(t, chat)
	assert.NotEqual(t, existing.ID, chat.ID)
	assert.Equal(t, models.DefaultChatTitle, chat.Title)
	assert.Equal(t, 1, store.createCalls)

	active, ok := sessions.ActiveChat("sess")
	assert.True(t, ok)
	assert.Equal(t, chat.ID, active)
}

func TestBootstrapNoConversations(t *testing.T) {
	store := newFakeStore()
	ctrl, sessions := newTestController(store, &fakeLLM{reply: "ok"})

	chat, err := ctrl.Bootstrap(context.Background(), 1, "sess")
	require.NoError(t, err)
	assert.Nil(t, chat)
	assert.Zero(t, store.createCalls)
	_, ok := sessions.ActiveChat("sess")
	assert.False(t, ok)
}

func TestBootstrapRunsAtMostOncePerSession(t *testing.T) {
	store := newFakeStore()
	existing, _ := store.CreateChat(context.Background(), 1, "Ferns...")
	store.AppendMessage(context.Background(), existing.ID, models.RoleUser, "Tell me about ferns")
	store.createCalls = 0

	ctrl, _ := newTestController(store, &fakeLLM{reply: "ok"})
	first, err := ctrl.Bootstrap(context.Background(), 1, "sess")
	require.NoError(t, err)
	assert.Equal(t, 1, store.createCalls)

	// The freshly created chat now has zero messages and is the most
	// recent; without the session flag a second call would create again.
	second, err := ctrl.Bootstrap(context.Background(), 1, "sess")
	require.NoError(t, err)
	assert.Equal(t, 1, store.createCalls)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)
}

func TestBootstrapDegradesOnListFailure(t *testing.T) {
	store := newFakeStore()
	store.listChatsErr = errors.New("store down")
	ctrl, _ := newTestController(store, &fakeLLM{reply: "ok"})

	chat, err := ctrl.Bootstrap(context.Background(), 1, "sess")
	require.NoError(t, err)
	assert.Nil(t, chat)
}

func TestSendMessageFirstTurn(t *testing.T) {
	store := newFakeStore()
	client := &fakeLLM{reply: "Plants convert light into *chemical energy*."}
	ctrl, sessions := newTestController(store, client)

	chat, _ := store.CreateChat(context.Background(), 1, models.DefaultChatTitle)
	sessions.SetActiveChat("sess", chat.ID)

	res, err := ctrl.SendMessage(context.Background(), 1, "sess", "What is photosynthesis?")
	require.NoError(t, err)
	assert.Equal(t, client.reply, res.Reply)
	assert.False(t, res.UserPending)
	assert.False(t, res.AssistantPending)

	// Title derived from the first user message (4 words, no ellipsis).
	assert.Equal(t, "What is photosynthesis?", store.titleOf(chat.ID))

	msgs := store.msgs[chat.ID]
	require.Len(t, msgs, 2)
	assert.Equal(t, models.RoleUser, msgs[0].Role)
	assert.Equal(t, "What is photosynthesis?", msgs[0].Content)
	assert.Equal(t, models.RoleAssistant, msgs[1].Role)
	assert.Equal(t, client.reply, msgs[1].Content)
	assert.True(t, msgs[0].CreatedAt.Before(msgs[1].CreatedAt))
}

func TestSendMessageKeepsDerivedTitle(t *testing.T) {
	store := newFakeStore()
	ctrl, sessions := newTestController(store, &fakeLLM{reply: "ok"})

	chat, _ := store.CreateChat(context.Background(), 1, models.DefaultChatTitle)
	sessions.SetActiveChat("sess", chat.ID)

	_, err := ctrl.SendMessage(context.Background(), 1, "sess", "What is photosynthesis?")
	require.NoError(t, err)
	_, err = ctrl.SendMessage(context.Background(), 1, "sess", "Another question about roots entirely now yes")
	require.NoError(t, err)
	assert.Equal(t, "What is photosynthesis?", store.titleOf(chat.ID))
}

func TestSendMessageSkipsRenamedChat(t *testing.T) {
	store := newFakeStore()
	ctrl, sessions := newTestController(store, &fakeLLM{reply: "ok"})

	chat, _ := store.CreateChat(context.Background(), 1, models.DefaultChatTitle)
	store.RenameChat(context.Background(), chat.ID, "My fern notes")
	sessions.SetActiveChat("sess", chat.ID)

	_, err := ctrl.SendMessage(context.Background(), 1, "sess", "What is photosynthesis?")
	require.NoError(t, err)
	assert.Equal(t, "My fern notes", store.titleOf(chat.ID))
}

func TestSendMessageResendsFullHistory(t *testing.T) {
	store := newFakeStore()
	client := &fakeLLM{reply: "ok"}
	ctrl, sessions := newTestController(store, client)

	chat, _ := store.CreateChat(context.Background(), 1, models.DefaultChatTitle)
	sessions.SetActiveChat("sess", chat.ID)

	_, err := ctrl.SendMessage(context.Background(), 1, "sess", "What is photosynthesis?")
	require.NoError(t, err)
	_, err = ctrl.SendMessage(context.Background(), 1, "sess", "Where does it happen?")
	require.NoError(t, err)

	require.Len(t, client.histories, 2)
	assert.Len(t, client.histories[0], 1)
	require.Len(t, client.histories[1], 3)
	assert.Equal(t, "What is photosynthesis?", client.histories[1][0].Content)
	assert.Equal(t, llm.RoleAssistant, client.histories[1][1].Role)
	assert.Equal(t, "Where does it happen?", client.histories[1][2].Content)
}

func TestSendMessageGenerationFailure(t *testing.T) {
	store := newFakeStore()
	ctrl, sessions := newTestController(store, &fakeLLM{err: errors.New("upstream down")})

	chat, _ := store.CreateChat(context.Background(), 1, models.DefaultChatTitle)
	sessions.SetActiveChat("sess", chat.ID)

	res, err := ctrl.SendMessage(context.Background(), 1, "sess", "What is photosynthesis?")
	require.NoError(t, err)
	assert.Equal(t, ApologyReply, res.Reply)

	// The apology is persisted as a regular assistant message.
	msgs := store.msgs[chat.ID]
	require.Len(t, msgs, 2)
	assert.Equal(t, ApologyReply, msgs[1].Content)
}

func TestSendMessageAppendFailureIsPending(t *testing.T) {
	store := newFakeStore()
	store.appendErr = errors.New("store down")
	ctrl, sessions := newTestController(store, &fakeLLM{reply: "ok"})

	chat, _ := store.CreateChat(context.Background(), 1, models.DefaultChatTitle)
	sessions.SetActiveChat("sess", chat.ID)

	res, err := ctrl.SendMessage(context.Background(), 1, "sess", "hello plants")
	require.NoError(t, err)
	assert.True(t, res.UserPending)
	assert.True(t, res.AssistantPending)
	assert.Equal(t, "ok", res.Reply)
	assert.Empty(t, store.msgs[chat.ID])
}

func TestSendMessageWithoutActiveConversation(t *testing.T) {
	store := newFakeStore()
	client := &fakeLLM{reply: "hello"}
	ctrl, sessions := newTestController(store, client)

	res, err := ctrl.SendMessage(context.Background(), 1, "sess", "hi there")
	require.NoError(t, err)
	assert.Nil(t, res.ChatID)
	assert.True(t, res.UserPending)
	assert.True(t, res.AssistantPending)
	assert.Equal(t, "hello", res.Reply)

	// Nothing persisted, both turns buffered in the session.
	assert.Zero(t, store.createCalls)
	assert.Empty(t, store.msgs)
	assert.Len(t, sessions.Buffer("sess"), 2)

	// A followup carries the buffered history.
	_, err = ctrl.SendMessage(context.Background(), 1, "sess", "still there?")
	require.NoError(t, err)
	require.Len(t, client.histories, 2)
	assert.Len(t, client.histories[1], 3)
}

func TestNewConversation(t *testing.T) {
	store := newFakeStore()
	ctrl, sessions := newTestController(store, &fakeLLM{reply: "ok"})

	chat, _ := store.CreateChat(context.Background(), 1, models.DefaultChatTitle)
	sessions.SetActiveChat("sess", chat.ID)
	store.AppendMessage(context.Background(), chat.ID, models.RoleUser, "The leaf shows signs of chlorosis today")
	store.createCalls = 0

	fresh, err := ctrl.NewConversation(context.Background(), 1, "sess")
	require.NoError(t, err)
	assert.NotEqual(t, chat.ID, fresh.ID)
	assert.Equal(t, models.DefaultChatTitle, fresh.Title)
	assert.Equal(t, "The leaf shows signs of chlorosis...", store.titleOf(chat.ID))

	active, ok := sessions.ActiveChat("sess")
	assert.True(t, ok)
	assert.Equal(t, fresh.ID, active)
}

func TestNewConversationEmptyActiveSkipsRename(t *testing.T) {
	store := newFakeStore()
	ctrl, sessions := newTestController(store, &fakeLLM{reply: "ok"})

	chat, _ := store.CreateChat(context.Background(), 1, models.DefaultChatTitle)
	sessions.SetActiveChat("sess", chat.ID)

	_, err := ctrl.NewConversation(context.Background(), 1, "sess")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultChatTitle, store.titleOf(chat.ID))
}

func TestSelectConversation(t *testing.T) {
	store := newFakeStore()
	ctrl, sessions := newTestController(store, &fakeLLM{reply: "ok"})

	chat, _ := store.CreateChat(context.Background(), 1, "Ferns...")
	store.AppendMessage(context.Background(), chat.ID, models.RoleUser, "ferns?")
	store.AppendMessage(context.Background(), chat.ID, models.RoleAssistant, "ferns!")

	msgs, err := ctrl.SelectConversation(context.Background(), 1, "sess", chat.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	active, ok := sessions.ActiveChat("sess")
	assert.True(t, ok)
	assert.Equal(t, chat.ID, active)
}

func TestSelectConversationNotFound(t *testing.T) {
	store := newFakeStore()
	ctrl, _ := newTestController(store, &fakeLLM{reply: "ok"})

	_, err := ctrl.SelectConversation(context.Background(), 1, "sess", uuid.New())
	assert.ErrorIs(t, err, dao.ErrNotFound)
}

func TestSelectConversationOtherUsersChat(t *testing.T) {
	store := newFakeStore()
	ctrl, _ := newTestController(store, &fakeLLM{reply: "ok"})

	other, _ := store.CreateChat(context.Background(), 2, "theirs")
	_, err := ctrl.SelectConversation(context.Background(), 1, "sess", other.ID)
	assert.ErrorIs(t, err, dao.ErrNotFound)
}
