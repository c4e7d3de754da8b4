package binding

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/smartdoc/tracker-api/internal/handler"
	"github.com/smartdoc/tracker-api/internal/service/binding"
	apperrors "github.com/smartdoc/tracker-api/pkg/errors"
)

type Handler struct {
	service *binding.Service
}

func NewHandler(service *binding.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	b := r.Group("/binding")
	{
		b.GET("/status", h.Status)
		b.POST("/code", h.GenerateCode)
		b.DELETE("", h.Unbind)
	}
}

type codeResponse struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

type statusResponse struct {
	Bound  bool   `json:"bound"`
	ChatID string `json:"chat_id,omitempty"`
}

// GenerateCode issues a fresh verification code for the caller. The
// code is shown once in the web UI and typed into the chat.
func (h *Handler) GenerateCode(c *gin.Context) {
	userID, err := handler.UserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthorized"))
		return
	}

	code, expiresAt, err := h.service.GenerateCode(c.Request.Context(), userID)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrConflict) {
			c.JSON(http.StatusConflict, handler.NewErrorResponse("already bound to a chat"))
			return
		}
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(codeResponse{
		Code:      code,
		ExpiresAt: expiresAt,
	}))
}

func (h *Handler) Status(c *gin.Context) {
	userID, err := handler.UserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthorized"))
		return
	}

	bound, maskedChatID, err := h.service.Status(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(statusResponse{
		Bound:  bound,
		ChatID: maskedChatID,
	}))
}

func (h *Handler) Unbind(c *gin.Context) {
	userID, err := handler.UserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthorized"))
		return
	}

	if err := h.service.Unbind(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
