package telephony

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"testing"

	"github.com/gin-gonic/gin"
)

// sign reproduces Twilio's scheme: HMAC-SHA1 over the URL followed by the
// sorted POST parameters, base64 encoded.
func sign(token, fullURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	payload := fullURL
	for _, k := range keys {
		payload += k + form.Get(k)
	}
	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func signedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequireTwilioSignature("secret-token", CallbackURLs{Base: "https://ivr.example.com"}))
	r.POST("/ivr/entry", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRequireTwilioSignature_Valid(t *testing.T) {
	form := url.Values{"CallSid": {"CA1"}, "From": {"+15551234567"}}
	req := formRequest("/ivr/entry", form.Encode())
	req.Header.Set(headerTwilioSignature, sign("secret-token", "https://ivr.example.com/ivr/entry", form))

	w := httptest.NewRecorder()
	signedRouter().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRequireTwilioSignature_Rejects(t *testing.T) {
	form := url.Values{"CallSid": {"CA1"}}

	cases := map[string]string{
		"missing":    "",
		"wrong key":  sign("other-token", "https://ivr.example.com/ivr/entry", form),
		"wrong path": sign("secret-token", "https://ivr.example.com/ivr/menu", form),
	}
	for name, sig := range cases {
		t.Run(name, func(t *testing.T) {
			req := formRequest("/ivr/entry", form.Encode())
			if sig != "" {
				req.Header.Set(headerTwilioSignature, sig)
			}
			w := httptest.NewRecorder()
			signedRouter().ServeHTTP(w, req)
			if w.Code != http.StatusForbidden {
				t.Fatalf("expected 403, got %d", w.Code)
			}
		})
	}
}
