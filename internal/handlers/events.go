package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"taskbot/internal/chat"
	"taskbot/internal/dialog"
	"taskbot/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Dispatcher handles one chat event and returns the replies to send back.
type Dispatcher interface {
	Handle(ctx context.Context, ev chat.Event) ([]chat.Reply, error)
}

type EventHandler struct {
	engine Dispatcher
}

func NewEventHandler(engine Dispatcher) *EventHandler {
	return &EventHandler{engine: engine}
}

type eventRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	Kind        string `json:"kind" binding:"required,oneof=text button"`
	Payload     string `json:"payload"`
	Locale      string `json:"locale"`
	DisplayName string `json:"display_name"`
}

type eventResponse struct {
	RequestID string       `json:"request_id"`
	Replies   []chat.Reply `json:"replies"`
}

func (h *EventHandler) HandleEvent(c *gin.Context) {
	var input eventRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	replies, err := h.engine.Handle(c.Request.Context(), chat.Event{
		UserID:      input.UserID,
		Kind:        chat.EventKind(input.Kind),
		Payload:     input.Payload,
		Locale:      input.Locale,
		DisplayName: input.DisplayName,
	})
	if err != nil {
		if errors.Is(err, dialog.ErrInvalidEvent) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Printf("❌ Event from %s failed [%s]: %v", input.UserID, c.GetString(middleware.RequestIDKey), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process event"})
		return
	}

	if replies == nil {
		replies = []chat.Reply{}
	}
	c.JSON(http.StatusOK, eventResponse{
		RequestID: c.GetString(middleware.RequestIDKey),
		Replies:   replies,
	})
}
