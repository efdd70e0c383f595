package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"ivr-gateway/internal/auth"
	"ivr-gateway/internal/httpapi"
	"ivr-gateway/internal/telephony"
	"ivr-gateway/pkg/utils"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	api := httpapi.Handlers{
		Ledger: d.ledger,
		Audit:  d.audit,
		Ping: func(ctx context.Context) error {
			return utils.HealthCheck(ctx, d.db, 2*time.Second)
		},
	}

	// public
	r.GET("/healthz", api.Healthz)

	// Provider webhooks. Signed when TWILIO_AUTH_TOKEN is set.
	urls := telephony.CallbackURLs{Base: d.cfg.App.PublicBaseURL}
	webhooks := r.Group("")
	webhooks.Use(telephony.RecoverWithHangup())
	if d.cfg.Twilio.AuthToken != "" {
		webhooks.Use(telephony.RequireTwilioSignature(d.cfg.Twilio.AuthToken, urls))
	}
	ivrHandler := &telephony.IVRHandler{
		Ledger:  d.ledger,
		Machine: d.machine,
		Guard:   d.guard,
		Events:  d.publisher,
		Audit:   d.audit,
		URLs:    urls,
		Voice:   telephony.Voice{Name: d.cfg.IVR.Menu.Voice, Language: d.cfg.IVR.Menu.Language},
	}
	ivrHandler.Register(webhooks)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(auth.RequireOperator(d.auth))
	api.Register(v1)
}
