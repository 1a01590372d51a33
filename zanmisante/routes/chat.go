package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"zanmisante/zanmisante/config"
	"zanmisante/zanmisante/controllers"
	"zanmisante/zanmisante/middlewares"
	"zanmisante/zanmisante/sources/psql/dao"
	"zanmisante/zanmisante/sources/psql/models"
	"zanmisante/zanmisante/utils/markdown"
	"zanmisante/zanmisante/utils/types"
)

// typingInterval paces the websocket reveal of an already-complete reply.
const typingInterval = 30 * time.Millisecond

// messageView is a persisted message plus its display rendering. Only
// assistant messages carry formatted content.
type messageView struct {
	models.Message
	ContentHTML string `json:"content_html,omitempty"`
}

func ChatRoutes(ctrl *controllers.ChatController, cfg config.Config) chi.Router {
	r := chi.NewRouter()

	r.Group(func(gr chi.Router) {
		gr.Use(middlewares.AuthMiddleware(cfg))

		// POST /chat/bootstrap : once-per-session active conversation check
		gr.Post("/bootstrap", handleJSON(func(r *http.Request) (any, int, error) {
			userID := r.Context().Value(middlewares.UserIDKey).(int)
			sessionID := r.Context().Value(middlewares.SessionIDKey).(string)
			chat, err := ctrl.Bootstrap(r.Context(), userID, sessionID)
			if err != nil {
				return nil, http.StatusInternalServerError, err
			}
			return map[string]any{"active_chat": chat}, http.StatusOK, nil
		}))

		// GET /chat/conversations : sidebar listing, most recent first
		gr.Get("/conversations", handleJSON(func(r *http.Request) (any, int, error) {
			userID := r.Context().Value(middlewares.UserIDKey).(int)
			return ctrl.ListConversations(r.Context(), userID), http.StatusOK, nil
		}))

		// POST /chat/conversations : explicit "new conversation"
		gr.Post("/conversations", handleJSON(func(r *http.Request) (any, int, error) {
			userID := r.Context().Value(middlewares.UserIDKey).(int)
			sessionID := r.Context().Value(middlewares.SessionIDKey).(string)
			chat, err := ctrl.NewConversation(r.Context(), userID, sessionID)
			if err != nil {
				return nil, http.StatusInternalServerError, err
			}
			return chat, http.StatusOK, nil
		}))

		// GET /chat/conversations/{chat_id}/messages : select + reload
		gr.Get("/conversations/{chat_id}/messages", handleJSON(func(r *http.Request) (any, int, error) {
			userID := r.Context().Value(middlewares.UserIDKey).(int)
			sessionID := r.Context().Value(middlewares.SessionIDKey).(string)
			chatID, err := uuid.Parse(chi.URLParam(r, "chat_id"))
			if err != nil {
				return nil, http.StatusBadRequest, err
			}
			msgs, err := ctrl.SelectConversation(r.Context(), userID, sessionID, chatID)
			if err != nil {
				if errors.Is(err, dao.ErrNotFound) {
					return nil, http.StatusNotFound, err
				}
				return nil, http.StatusInternalServerError, err
			}
			views := make([]messageView, 0, len(msgs))
			for _, m := range msgs {
				v := messageView{Message: m}
				if m.Role == models.RoleAssistant {
					v.ContentHTML = markdown.Format(m.Content)
				}
				views = append(views, v)
			}
			return views, http.StatusOK, nil
		}))

		// POST /chat/messages : send one turn
		gr.Post("/messages", handleJSON(func(r *http.Request) (any, int, error) {
			var req types.SendMessageRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				return nil, http.StatusBadRequest, err
			}
			if strings.TrimSpace(req.Content) == "" {
				return nil, http.StatusBadRequest, errors.New("empty message")
			}
			userID := r.Context().Value(middlewares.UserIDKey).(int)
			sessionID := r.Context().Value(middlewares.SessionIDKey).(string)
			res, err := ctrl.SendMessage(r.Context(), userID, sessionID, strings.TrimSpace(req.Content))
			if err != nil {
				return nil, http.StatusInternalServerError, err
			}
			resp := types.SendMessageResponse{
				Reply:            res.Reply,
				ReplyHTML:        markdown.Format(res.Reply),
				UserPending:      res.UserPending,
				AssistantPending: res.AssistantPending,
			}
			if res.ChatID != nil {
				resp.ChatID = res.ChatID.String()
			}
			return resp, http.StatusOK, nil
		}))
	})

	// GET /chat/ws : typed-out reveal of a completed reply. The reply is
	// generated in full first; the socket only paces its display.
	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusInternalError, "internal error")

		ctx := r.Context()
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			conn.Close(websocket.StatusUnsupportedData, "unsupported data")
			return
		}
		var req types.StreamRequest
		if err := json.Unmarshal(data, &req); err != nil {
			conn.Write(ctx, websocket.MessageText, []byte(`{"error":"invalid json"}`))
			return
		}
		userID, sessionID, err := middlewares.ParseToken(req.Token, cfg.JWTSecret)
		if err != nil {
			conn.Write(ctx, websocket.MessageText, []byte(`{"error":"invalid token"}`))
			conn.Close(websocket.StatusPolicyViolation, "invalid token")
			return
		}
		if strings.TrimSpace(req.Content) == "" {
			conn.Write(ctx, websocket.MessageText, []byte(`{"error":"empty message"}`))
			conn.Close(websocket.StatusUnsupportedData, "empty message")
			return
		}

		res, err := ctrl.SendMessage(ctx, userID, sessionID, strings.TrimSpace(req.Content))
		if err != nil {
			conn.Write(ctx, websocket.MessageText, []byte(`{"error":"send failed"}`))
			conn.Close(websocket.StatusInternalError, "send failed")
			return
		}

		reveal := strings.Split(markdown.Format(res.Reply), " ")
		ticker := time.NewTicker(typingInterval)
		defer ticker.Stop()
		for i, word := range reveal {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			chunk := word
			if i < len(reveal)-1 {
				chunk += " "
			}
			if err := conn.Write(ctx, websocket.MessageText, []byte(chunk)); err != nil {
				return
			}
		}
		conn.Close(websocket.StatusNormalClosure, "")
	})

	return r
}
