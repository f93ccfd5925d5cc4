package middleware

import (
	"net/http"

	"github.com/unrolled/secure"
)

// SecurityHeaders sets the standard hardening headers on every response.
// HSTS is only sent outside development.
func SecurityHeaders(isDevelopment bool) func(http.Handler) http.Handler {
	sec := secure.New(secure.Options{
		FrameDeny:                 true,
		ContentTypeNosniff:        true,
		ReferrerPolicy:            "no-referrer",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "cross-origin",
		XDNSPrefetchControl:       "off",
		STSSeconds:                15552000,
		STSIncludeSubdomains:      true,
		ForceSTSHeader:            true,
		IsDevelopment:             isDevelopment,
	})
	return sec.Handler
}
