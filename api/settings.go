package api

import (
	"github.com/gin-gonic/gin"
	"github.com/xiaoyuanzhu-com/my-todos/db"
	"github.com/xiaoyuanzhu-com/my-todos/log"
)

var settingsLogger = log.GetLogger("ApiSettings")

// GetSettings handles GET /api/settings
func (h *Handlers) GetSettings(c *gin.Context) {
	settings, err := h.db().GetAllSettings(c.Request.Context())
	if err != nil {
		RespondStoreError(c, err, "get settings")
		return
	}

	RespondData(c, settings)
}

// UpdateSettings handles PUT /api/settings. A new log level takes effect
// immediately.
func (h *Handlers) UpdateSettings(c *gin.Context) {
	var updates map[string]string
	if err := c.ShouldBindJSON(&updates); err != nil {
		RespondBadRequest(c, "Invalid request body")
		return
	}

	ctx := c.Request.Context()
	if err := h.db().UpdateSettings(ctx, updates); err != nil {
		RespondStoreError(c, err, "update settings")
		return
	}

	if level, ok := updates[db.SettingLogLevel]; ok {
		log.SetLevel(level)
		settingsLogger.Info().Str("level", level).Msg("log level updated")
	}
	h.notifier().NotifySettingsChanged()

	settings, err := h.db().GetAllSettings(ctx)
	if err != nil {
		RespondStoreError(c, err, "get settings")
		return
	}

	RespondData(c, settings)
}
