package telephony

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/twilio/twilio-go/client"

	"ivr-gateway/pkg/logger"
)

const headerTwilioSignature = "X-Twilio-Signature"

// RequireTwilioSignature rejects callbacks whose X-Twilio-Signature does not
// match the form body signed with authToken. The signed URL is the public
// callback URL, resolved the same way the TwiML callback URLs are.
//
// This is transport authentication: a forged request gets 403, not TwiML.
func RequireTwilioSignature(authToken string, urls CallbackURLs) gin.HandlerFunc {
	validator := client.NewRequestValidator(authToken)
	return func(c *gin.Context) {
		sig := c.GetHeader(headerTwilioSignature)
		if sig == "" {
			logger.FromGin(c).Warn("callback without signature rejected")
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		if err := c.Request.ParseForm(); err != nil {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}

		params := make(map[string]string, len(c.Request.PostForm))
		for k, v := range c.Request.PostForm {
			if len(v) > 0 {
				params[k] = v[0]
			}
		}

		if !validator.Validate(signedURL(c.Request, urls), params, sig) {
			logger.FromGin(c).Warn("callback signature mismatch", "path", c.Request.URL.Path)
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}

func signedURL(r *http.Request, urls CallbackURLs) string {
	base := strings.TrimRight(strings.TrimSpace(urls.Base), "/")
	if base == "" {
		base = requestBase(r)
	}
	return base + r.URL.RequestURI()
}
