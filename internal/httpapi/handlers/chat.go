package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/estate-chat/internal/assistant"
	"github.com/suPer8Hu/estate-chat/internal/chat"
	"github.com/suPer8Hu/estate-chat/internal/common"
	"github.com/suPer8Hu/estate-chat/internal/httpapi/middleware"
	"github.com/suPer8Hu/estate-chat/internal/turn"
)

const maxMessageRunes = 2000

func (h *Handler) CreateChatSession(c *gin.Context) {
	id := middleware.IdentityFrom(c)
	sess, err := h.Turns.Backends(id).History.Create(c.Request.Context())
	if err != nil {
		h.Log.Error("create session failed", "user_id", id.UserID, "err", err)
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to create session")
		return
	}
	common.OK(c, gin.H{"session_id": sess.ID})
}

// ListChatMessages returns the whole transcript. ?q=welcome seeds an empty
// session with the greeting.
func (h *Handler) ListChatMessages(c *gin.Context) {
	id := middleware.IdentityFrom(c)
	sessionID := c.Param("session_id")

	msgs, err := chat.LoadOrWelcome(c.Request.Context(), h.Turns.Backends(id).History, sessionID, c.Query("q"))
	if err != nil {
		if errors.Is(err, chat.ErrSessionNotFound) {
			common.Fail(c, http.StatusNotFound, 40004, "session not found")
			return
		}
		h.Log.Error("load transcript failed", "session_id", sessionID, "err", err)
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to list messages")
		return
	}
	common.OK(c, gin.H{"session_id": sessionID, "messages": msgs})
}

type sendMessageReq struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message" binding:"required"`
}

func bindMessage(c *gin.Context) (sendMessageReq, bool) {
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return req, false
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "message required")
		return req, false
	}
	if len([]rune(req.Message)) > maxMessageRunes {
		common.Fail(c, http.StatusBadRequest, 10007, "message too long")
		return req, false
	}
	return req, true
}

// turnFailure maps a turn error to its HTTP status, code and user message.
func turnFailure(err error) (int, int, string) {
	var te *assistant.TurnError
	switch {
	case errors.Is(err, turn.ErrBudgetExhausted):
		return http.StatusTooManyRequests, 42901, err.Error()
	case errors.Is(err, chat.ErrSessionNotFound):
		return http.StatusNotFound, 40004, "session not found"
	case errors.Is(err, assistant.ErrTurnInProgress):
		return http.StatusConflict, 40901, "a reply is still being written for this chat"
	case errors.As(err, &te):
		return http.StatusBadGateway, 50201, te.Message
	default:
		return http.StatusInternalServerError, 50001, "internal error"
	}
}

func (h *Handler) SendChatMessage(c *gin.Context) {
	req, ok := bindMessage(c)
	if !ok {
		return
	}
	id := middleware.IdentityFrom(c)

	out, err := h.Turns.Run(c.Request.Context(), id, req.SessionID, req.Message, nil)
	if err != nil {
		status, code, msg := turnFailure(err)
		if status == http.StatusInternalServerError {
			h.Log.Error("turn failed", "session_id", req.SessionID, "err", err)
		}
		// out is set when a partial answer was kept
		common.FailData(c, status, code, msg, out)
		return
	}
	common.OK(c, out)
}

type turnDone struct {
	out *turn.Outcome
	err error
}

func (h *Handler) SendChatMessageStream(c *gin.Context) {
	req, ok := bindMessage(c)
	if !ok {
		return
	}
	id := middleware.IdentityFrom(c)

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		common.Fail(c, http.StatusInternalServerError, 50004, "streaming not supported")
		return
	}

	// SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // helpful if behind nginx
	c.Status(http.StatusOK)

	ctx := c.Request.Context()

	// unbuffered: every token is handed over before the turn result is sent
	tokens := make(chan string)
	done := make(chan turnDone, 1)
	go func() {
		out, err := h.Turns.Run(ctx, id, req.SessionID, req.Message, func(tok string) {
			select {
			case tokens <- tok:
			case <-ctx.Done():
			}
		})
		done <- turnDone{out: out, err: err}
	}()

	// heartbeat ticker (keeps connections alive)
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	writeJSON := func(event string, payload any) {
		b, err := json.Marshal(payload)
		if err != nil {
			fmt.Fprintf(c.Writer, "event: error\ndata: {\"message\":\"json marshal failed\"}\n\n")
			flusher.Flush()
			return
		}
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, b)
		flusher.Flush()
	}

	for {
		select {
		case tok := <-tokens:
			writeJSON("chunk", gin.H{"type": "chunk", "delta": tok})

		case <-ticker.C:
			writeJSON("ping", gin.H{"type": "ping", "ts": time.Now().Unix()})

		case d := <-done:
			if d.err != nil {
				_, code, msg := turnFailure(d.err)
				writeJSON("error", gin.H{"type": "error", "code": code, "message": msg, "result": d.out})
				return
			}
			writeJSON("done", gin.H{"type": "done", "result": d.out})
			return

		case <-ctx.Done():
			// the turn keeps running detached and is persisted when it ends
			h.Log.Debug("stream client gone", "session_id", req.SessionID, "err", context.Cause(ctx))
			return
		}
	}
}
