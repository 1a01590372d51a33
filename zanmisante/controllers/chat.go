package controllers

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"zanmisante/zanmisante/services/llm"
	"zanmisante/zanmisante/sources/psql/dao"
	"zanmisante/zanmisante/sources/psql/models"
	"zanmisante/zanmisante/sources/session"
	"zanmisante/zanmisante/utils/logging"
)

// ApologyReply is the synthetic assistant message substituted for any
// generation failure. Raw errors are never shown to the user.
const ApologyReply = "Sorry, I encountered an error. Please try again."

const titleWordLimit = 6

// ChatStore is the conversation persistence boundary the controller
// drives. *dao.ChatDAO satisfies it.
type ChatStore interface {
	ListChats(ctx context.Context, userID int) ([]models.Chat, error)
	CreateChat(ctx context.Context, userID int, title string) (*models.Chat, error)
	RenameChat(ctx context.Context, chatID uuid.UUID, title string) error
	ListMessages(ctx context.Context, chatID uuid.UUID) ([]models.Message, error)
	AppendMessage(ctx context.Context, chatID uuid.UUID, role, content string) (*models.Message, error)
}

// ChatController owns the conversation lifecycle: session bootstrap,
// new-conversation creation, title derivation and message append ordering.
type ChatController struct {
	store    ChatStore
	llm      llm.Client
	sessions *session.Store

	mu       sync.Mutex
	inflight map[uuid.UUID]*sync.Mutex
}

func NewChatController(store ChatStore, client llm.Client, sessions *session.Store) *ChatController {
	return &ChatController{
		store:    store,
		llm:      client,
		sessions: sessions,
		inflight: make(map[uuid.UUID]*sync.Mutex),
	}
}

// DeriveTitle builds a conversation title from its first user message: the
// first six whitespace-delimited words joined by single spaces, with "..."
// appended when the message had more.
func DeriveTitle(content string) string {
	words := strings.Fields(content)
	if len(words) == 0 {
		return models.DefaultChatTitle
	}
	if len(words) <= titleWordLimit {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:titleWordLimit], " ") + "..."
}

// Bootstrap decides which conversation (if any) becomes active after
// sign-in. The check runs at most once per session: a fresh session never
// silently reuses a conversation that already has content, an empty most
// recent conversation is reused, and zero conversations means no active
// conversation (none is created).
func (c *ChatController) Bootstrap(ctx context.Context, userID int, sessionID string) (*models.Chat, error) {
	chats := c.listChats(ctx, userID)

	if c.sessions.Bootstrapped(sessionID) {
		if activeID, ok := c.sessions.ActiveChat(sessionID); ok {
			for i := range chats {
				if chats[i].ID == activeID {
					return &chats[i], nil
				}
			}
		}
		return nil, nil
	}
	c.sessions.MarkBootstrapped(sessionID)

	if len(chats) == 0 {
		return nil, nil
	}

	latest := chats[0]
	msgs := c.listMessages(ctx, latest.ID)
	if len(msgs) == 0 {
		c.sessions.SetActiveChat(sessionID, latest.ID)
		return &latest, nil
	}

	fresh, err := c.store.CreateChat(ctx, userID, models.DefaultChatTitle)
	if err != nil {
		return nil, err
	}
	c.sessions.SetActiveChat(sessionID, fresh.ID)
	return fresh, nil
}

// NewConversation closes out the active conversation (deriving and
// persisting its title if it has content) and makes a fresh one active.
func (c *ChatController) NewConversation(ctx context.Context, userID int, sessionID string) (*models.Chat, error) {
	if activeID, ok := c.sessions.ActiveChat(sessionID); ok {
		msgs := c.listMessages(ctx, activeID)
		if first := firstUserMessage(msgs); first != nil {
			if err := c.store.RenameChat(ctx, activeID, DeriveTitle(first.Content)); err != nil {
				logging.ErrorLogger.Error("rename on new conversation failed",
					zap.String("chat_id", activeID.String()), zap.Error(err))
			}
		}
	}

	fresh, err := c.store.CreateChat(ctx, userID, models.DefaultChatTitle)
	if err != nil {
		return nil, err
	}
	c.sessions.SetActiveChat(sessionID, fresh.ID)
	c.sessions.ClearBuffer(sessionID)
	return fresh, nil
}

// ListConversations returns the user's conversations, most recent first.
// Read failures degrade to an empty list.
func (c *ChatController) ListConversations(ctx context.Context, userID int) []models.Chat {
	return c.listChats(ctx, userID)
}

// SelectConversation makes the given conversation active and returns its
// messages in creation order. No mutation beyond the session swap.
func (c *ChatController) SelectConversation(ctx context.Context, userID int, sessionID string, chatID uuid.UUID) ([]models.Message, error) {
	if _, err := c.findChat(ctx, userID, chatID); err != nil {
		return nil, err
	}
	c.sessions.SetActiveChat(sessionID, chatID)
	return c.listMessages(ctx, chatID), nil
}

// SendResult is one completed turn. Pending flags mark entries whose store
// write failed; they exist in memory only until the next reload.
type SendResult struct {
	ChatID           *uuid.UUID `json:"chat_id,omitempty"`
	Reply            string     `json:"reply"`
	UserPending      bool       `json:"user_pending,omitempty"`
	AssistantPending bool       `json:"assistant_pending,omitempty"`
}

// SendMessage appends a user message to the active conversation, derives
// the title on the first user message of a "New Chat", asks the model for a
// reply and appends it. Generation failures become the apology reply; store
// write failures are logged and swallowed. Without an active conversation
// the turn lives only in the session buffer.
func (c *ChatController) SendMessage(ctx context.Context, userID int, sessionID string, content string) (*SendResult, error) {
	activeID, hasActive := c.sessions.ActiveChat(sessionID)
	if !hasActive {
		return c.sendEphemeral(ctx, sessionID, content), nil
	}

	// Serializes a rapid double-submit on the same conversation; ordering
	// is then the store's append order rather than a race.
	lock := c.chatLock(activeID)
	lock.Lock()
	defer lock.Unlock()

	persisted := c.listMessages(ctx, activeID)

	res := &SendResult{ChatID: &activeID}
	if _, err := c.store.AppendMessage(ctx, activeID, models.RoleUser, content); err != nil {
		logging.ErrorLogger.Error("user message append failed",
			zap.String("chat_id", activeID.String()), zap.Error(err))
		res.UserPending = true
	}

	if firstUserMessage(persisted) == nil {
		c.maybeDeriveTitle(ctx, userID, activeID, content)
	}

	history := make([]llm.Message, 0, len(persisted)+1)
	for _, m := range persisted {
		history = append(history, llm.Message{Role: m.Role, Content: m.Content})
	}
	history = append(history, llm.Message{Role: llm.RoleUser, Content: content})

	res.Reply = c.generate(ctx, history)

	if _, err := c.store.AppendMessage(ctx, activeID, models.RoleAssistant, res.Reply); err != nil {
		logging.ErrorLogger.Error("assistant message append failed",
			zap.String("chat_id", activeID.String()), zap.Error(err))
		res.AssistantPending = true
	}
	return res, nil
}

// sendEphemeral handles a turn with no active conversation: the exchange is
// generated normally but never persisted.
func (c *ChatController) sendEphemeral(ctx context.Context, sessionID, content string) *SendResult {
	c.sessions.AppendBuffer(sessionID, session.BufferedMessage{Role: llm.RoleUser, Content: content, Pending: true})

	buffered := c.sessions.Buffer(sessionID)
	history := make([]llm.Message, 0, len(buffered))
	for _, m := range buffered {
		history = append(history, llm.Message{Role: m.Role, Content: m.Content})
	}

	reply := c.generate(ctx, history)
	c.sessions.AppendBuffer(sessionID, session.BufferedMessage{Role: llm.RoleAssistant, Content: reply, Pending: true})
	return &SendResult{Reply: reply, UserPending: true, AssistantPending: true}
}

func (c *ChatController) generate(ctx context.Context, history []llm.Message) string {
	reply, err := c.llm.Generate(ctx, history)
	if err != nil {
		logging.ErrorLogger.Error("generation failed", zap.Error(err))
		return ApologyReply
	}
	return reply
}

// maybeDeriveTitle renames the chat iff it is still titled "New Chat". A
// derived title is never auto-overwritten afterwards.
func (c *ChatController) maybeDeriveTitle(ctx context.Context, userID int, chatID uuid.UUID, content string) {
	chat, err := c.findChat(ctx, userID, chatID)
	if err != nil {
		logging.ErrorLogger.Error("title check failed",
			zap.String("chat_id", chatID.String()), zap.Error(err))
		return
	}
	if chat.Title != models.DefaultChatTitle {
		return
	}
	if err := c.store.RenameChat(ctx, chatID, DeriveTitle(content)); err != nil {
		logging.ErrorLogger.Error("title rename failed",
			zap.String("chat_id", chatID.String()), zap.Error(err))
	}
}

func (c *ChatController) findChat(ctx context.Context, userID int, chatID uuid.UUID) (*models.Chat, error) {
	chats, err := c.store.ListChats(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range chats {
		if chats[i].ID == chatID {
			return &chats[i], nil
		}
	}
	return nil, dao.ErrNotFound
}

func (c *ChatController) chatLock(chatID uuid.UUID) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.inflight[chatID]
	if !ok {
		lock = &sync.Mutex{}
		c.inflight[chatID] = lock
	}
	return lock
}

func (c *ChatController) listChats(ctx context.Context, userID int) []models.Chat {
	chats, err := c.store.ListChats(ctx, userID)
	if err != nil {
		logging.ErrorLogger.Error("list chats failed", zap.Int("user_id", userID), zap.Error(err))
		return nil
	}
	return chats
}

func (c *ChatController) listMessages(ctx context.Context, chatID uuid.UUID) []models.Message {
	msgs, err := c.store.ListMessages(ctx, chatID)
	if err != nil {
		logging.ErrorLogger.Error("list messages failed",
			zap.String("chat_id", chatID.String()), zap.Error(err))
		return nil
	}
	return msgs
}

func firstUserMessage(msgs []models.Message) *models.Message {
	for i := range msgs {
		if msgs[i].Role == models.RoleUser {
			return &msgs[i]
		}
	}
	return nil
}
