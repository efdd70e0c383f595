package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ivr-gateway/internal/audit"
	"ivr-gateway/internal/auth"
	"ivr-gateway/internal/calls"
	"ivr-gateway/internal/rbac"
	"ivr-gateway/pkg/logger"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Ledger calls.Ledger
	Audit  *audit.Service

	// Ping reports storage health for /healthz. Optional.
	Ping func(ctx context.Context) error
}

type callResponse struct {
	Call       calls.Call        `json:"call"`
	Recordings []calls.Recording `json:"recordings"`
	Audit      []audit.Event     `json:"audit,omitempty"`
}

// Healthz is public and cheap; it only touches the database when Ping is set.
func (h Handlers) Healthz(c *gin.Context) {
	if h.Ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.Ping(ctx); err != nil {
			logger.FromGin(c).Error("healthz: storage ping failed", "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetCall returns the ledger view of one provider session.
// RBAC: operator or admin. Only admins see the audit trail.
func (h Handlers) GetCall(c *gin.Context) {
	if h.Ledger == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "ledger not configured"})
		return
	}
	sessionID := c.Param("session_id")
	if sessionID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "session_id required"})
		return
	}

	ctx := c.Request.Context()
	log := logger.FromGin(c)

	call, err := h.Ledger.FindBySessionID(ctx, sessionID)
	if errors.Is(err, calls.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
		return
	}
	if err != nil {
		log.Error("call lookup failed", "session_id", sessionID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call lookup failed"})
		return
	}

	recs, err := h.Ledger.ListRecordings(ctx, call.ID)
	if err != nil {
		log.Error("recording lookup failed", "call_id", call.ID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "recording lookup failed"})
		return
	}

	resp := callResponse{Call: call, Recordings: recs}

	op, _ := auth.OperatorFrom(ctx)
	if h.Audit != nil {
		if rbac.IsAdmin(op.Role) {
			events, err := h.Audit.ListBySession(ctx, sessionID)
			if err != nil {
				log.Warn("audit lookup failed", "err", err)
			}
			resp.Audit = events
		}
		if err := h.Audit.LogOperatorLookup(ctx, logger.RequestID(c), op.ID, sessionID); err != nil {
			log.Warn("audit append failed", "type", audit.EventTypeOperatorLookup, "err", err)
		}
	}

	c.JSON(http.StatusOK, resp)
}

// Register mounts the protected operator routes on an already-authenticated group.
func (h Handlers) Register(v1 *gin.RouterGroup) {
	callsGroup := v1.Group("/calls")
	callsGroup.Use(rbac.RequireAnyRole(rbac.RoleOperator, rbac.RoleAdmin))
	{
		callsGroup.GET("/:session_id", h.GetCall)
	}

	v1.GET("/me", func(c *gin.Context) {
		op, _ := auth.OperatorFrom(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"operator_id": op.ID, "role": op.Role})
	})
}
