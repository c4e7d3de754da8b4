package settings

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smartdoc/tracker-api/internal/config"
	"github.com/smartdoc/tracker-api/internal/handler"
	"github.com/smartdoc/tracker-api/internal/model"
	"github.com/smartdoc/tracker-api/internal/repository"
)

type Handler struct {
	settings repository.SettingsRepository
}

func NewHandler(settings repository.SettingsRepository) *Handler {
	return &Handler{settings: settings}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	s := r.Group("/settings")
	{
		s.GET("/email", h.GetEmailConfig)
		s.PUT("/email", h.UpdateEmailConfig)
	}
}

type emailSettings struct {
	Provider string                 `json:"provider,omitempty"`
	SMTP     *config.SMTPConfig     `json:"smtp,omitempty"`
	API      *config.EmailAPIConfig `json:"api,omitempty"`
}

// GetEmailConfig returns the stored overrides with secrets masked.
// Reading the config back never reveals a password or API key.
func (h *Handler) GetEmailConfig(c *gin.Context) {
	var out emailSettings

	if raw, err := h.settings.Get(c.Request.Context(), model.SettingEmailProvider); err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	} else if raw != nil {
		_ = json.Unmarshal(raw, &out.Provider)
	}

	if raw, err := h.settings.Get(c.Request.Context(), model.SettingSMTPConfig); err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	} else if raw != nil {
		var smtp config.SMTPConfig
		if err := json.Unmarshal(raw, &smtp); err == nil {
			smtp.Password = MaskSecret(smtp.Password)
			out.SMTP = &smtp
		}
	}

	if raw, err := h.settings.Get(c.Request.Context(), model.SettingEmailAPI); err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	} else if raw != nil {
		var api config.EmailAPIConfig
		if err := json.Unmarshal(raw, &api); err == nil {
			api.Key = MaskSecret(api.Key)
			out.API = &api
		}
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(out))
}

// UpdateEmailConfig stores override values. Only the sections present in
// the request are written; omitted sections keep their stored value.
func (h *Handler) UpdateEmailConfig(c *gin.Context) {
	var req emailSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	ctx := c.Request.Context()

	if req.Provider != "" {
		if req.Provider != "smtp" && req.Provider != "api" {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("provider must be smtp or api"))
			return
		}
		value, _ := json.Marshal(req.Provider)
		if err := h.settings.Set(ctx, model.SettingEmailProvider, value); err != nil {
			c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
			return
		}
	}

	if req.SMTP != nil {
		value, _ := json.Marshal(req.SMTP)
		if err := h.settings.Set(ctx, model.SettingSMTPConfig, value); err != nil {
			c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
			return
		}
	}

	if req.API != nil {
		value, _ := json.Marshal(req.API)
		if err := h.settings.Set(ctx, model.SettingEmailAPI, value); err != nil {
			c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
			return
		}
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

// MaskSecret keeps the last four characters of a credential.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
