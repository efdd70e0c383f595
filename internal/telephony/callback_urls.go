package telephony

import (
	"net/http"
	"strings"

	"ivr-gateway/internal/ivr"
)

// DefaultPaths is the route table the webhook endpoints are mounted on.
var DefaultPaths = map[ivr.Route]string{
	ivr.RouteEntry:             "/ivr/entry",
	ivr.RouteMenu:              "/ivr/menu",
	ivr.RouteChoice:            "/ivr/choice",
	ivr.RouteVoicemailComplete: "/ivr/voicemail-complete",
	ivr.RoutePhoneComplete:     "/ivr/phone-complete",
}

// CallbackURLs turns routes into absolute callback URLs.
//
// Base is the configured public base URL. When empty, the base is derived per
// request from X-Forwarded-Proto (or TLS) and Host.
type CallbackURLs struct {
	Base  string
	Paths map[ivr.Route]string
}

// URLSet is the resolved table for one request.
type URLSet struct {
	base  string
	paths map[ivr.Route]string
}

func (u CallbackURLs) Resolve(r *http.Request) URLSet {
	paths := u.Paths
	if paths == nil {
		paths = DefaultPaths
	}
	base := strings.TrimRight(strings.TrimSpace(u.Base), "/")
	if base == "" {
		base = requestBase(r)
	}
	return URLSet{base: base, paths: paths}
}

// URL returns the absolute URL for route, or "" for an unknown route.
func (s URLSet) URL(route ivr.Route) string {
	p, ok := s.paths[route]
	if !ok {
		return ""
	}
	return s.base + p
}

func requestBase(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}
	host := r.Host
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		host = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return scheme + "://" + host
}
