package notification

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/smartdoc/tracker-api/internal/handler"
	"github.com/smartdoc/tracker-api/internal/model"
	"github.com/smartdoc/tracker-api/internal/repository"
	"github.com/smartdoc/tracker-api/internal/service/dispatcher"
	apperrors "github.com/smartdoc/tracker-api/pkg/errors"
)

// Dispatcher triggers a notification sweep outside the daily schedule.
type Dispatcher interface {
	Run(ctx context.Context) (*dispatcher.Report, error)
}

type Handler struct {
	rules      repository.RuleRepository
	logs       repository.NotificationLogRepository
	dispatcher Dispatcher
}

func NewHandler(rules repository.RuleRepository, logs repository.NotificationLogRepository, d Dispatcher) *Handler {
	return &Handler{
		rules:      rules,
		logs:       logs,
		dispatcher: d,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	notifications := r.Group("/notifications")
	{
		notifications.GET("/rules", h.ListRules)
		notifications.POST("/rules", h.CreateRule)
		notifications.DELETE("/rules/:id", h.DeleteRule)
		notifications.GET("/logs", h.ListLogs)
		notifications.POST("/trigger", h.Trigger)
	}
}

type createRuleRequest struct {
	DaysBefore int      `json:"days_before" binding:"min=-365,max=365"`
	Severity   string   `json:"severity" binding:"required,severity"`
	Channels   []string `json:"channels" binding:"required,channelset"`
	IsActive   *bool    `json:"is_active"`
}

func (h *Handler) ListRules(c *gin.Context) {
	userID, err := handler.UserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthorized"))
		return
	}

	rules, err := h.rules.ListForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(rules))
}

func (h *Handler) CreateRule(c *gin.Context) {
	userID, err := handler.UserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthorized"))
		return
	}

	var req createRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	rule := &model.NotificationRule{
		ID:         uuid.New(),
		UserID:     userID,
		DaysBefore: req.DaysBefore,
		Severity:   model.Severity(req.Severity),
		IsActive:   active,
		Channels:   pq.StringArray(req.Channels),
		CreatedAt:  time.Now(),
	}

	if err := h.rules.Create(c.Request.Context(), rule); err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(rule))
}

func (h *Handler) DeleteRule(c *gin.Context) {
	userID, err := handler.UserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthorized"))
		return
	}

	ruleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid rule ID"))
		return
	}

	if err := h.rules.Delete(c.Request.Context(), ruleID, userID); err != nil {
		if apperrors.IsCode(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, handler.NewErrorResponse("rule not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) ListLogs(c *gin.Context) {
	userID, err := handler.UserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthorized"))
		return
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid limit"))
			return
		}
		limit = n
	}

	logs, err := h.logs.ListForUser(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(logs))
}

// Trigger runs a sweep immediately. The daily dedup still applies, so
// triggering twice does not double-send.
func (h *Handler) Trigger(c *gin.Context) {
	report, err := h.dispatcher.Run(c.Request.Context())
	if err != nil {
		if errors.Is(err, dispatcher.ErrRunInProgress) {
			c.JSON(http.StatusConflict, handler.NewErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(report))
}
