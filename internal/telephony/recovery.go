package telephony

import (
	"io"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"ivr-gateway/pkg/logger"
)

// RecoverWithHangup turns a panic in a callback handler into the fixed hangup
// document with status 200. The provider must never see a 5xx from us.
// Install it first on the webhook group so it also covers signature checks.
func RecoverWithHangup() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		logger.FromGin(c).Error("callback handler panicked; hanging up",
			"path", c.Request.URL.Path,
			"panic", recovered,
			"stack", string(debug.Stack()),
		)
		c.Header("Content-Type", "application/xml")
		c.String(http.StatusOK, HangupTwiML)
		c.Abort()
	})
}
