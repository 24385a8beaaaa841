package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"taskbot/internal/export"
	"taskbot/internal/models"
	"taskbot/internal/repositories"
	"taskbot/internal/timezone"

	"github.com/gin-gonic/gin"
)

type TaskLister interface {
	ListAll(ctx context.Context, owner string) ([]models.Task, error)
}

type UserFinder interface {
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)
}

// ExportHandler serves a user's tasks as the same CSV the chat export sends.
type ExportHandler struct {
	tasks TaskLister
	users UserFinder
	now   func() time.Time
}

func NewExportHandler(tasks TaskLister, users UserFinder) *ExportHandler {
	return &ExportHandler{tasks: tasks, users: users, now: time.Now}
}

func (h *ExportHandler) ExportTasks(c *gin.Context) {
	externalID := c.Param("external_id")
	ctx := c.Request.Context()

	user, err := h.users.GetByExternalID(ctx, externalID)
	if err != nil {
		handleStoreError(c, err, "user not found")
		return
	}

	tasks, err := h.tasks.ListAll(ctx, externalID)
	if err != nil {
		handleStoreError(c, err, "user not found")
		return
	}

	loc := timezone.Load(user.Timezone)
	var buf bytes.Buffer
	if err := export.Write(&buf, tasks, loc); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render export"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+export.Filename(externalID, h.now().In(loc))+`"`)
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

func handleStoreError(c *gin.Context, err error, notFound string) {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
	case errors.Is(err, repositories.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage temporarily unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process request"})
	}
}
