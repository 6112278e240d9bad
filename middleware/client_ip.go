package middleware

import (
	"net"
	"net/http"

	"github.com/MrEthical07/passport"
)

// ClientIP stores the request's remote host with passport.WithClientIP. Run it after a
// proxy-header middleware such as chi's RealIP.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		next.ServeHTTP(w, r.WithContext(passport.WithClientIP(r.Context(), ip)))
	})
}
