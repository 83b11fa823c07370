package middleware

import (
	"context"
	"fmt"
	"html"
	"net"
	"net/http"
	"strings"

	sessionguard "github.com/kovrenik/sessionguard"
	"github.com/kovrenik/sessionguard/route"
	"github.com/kovrenik/sessionguard/session"
)

type sessionContextKey struct{}

// SessionFromContext returns the session validated for this request. It is
// set only when the gate granted access to a protected page; public pages
// see ok=false.
func SessionFromContext(ctx context.Context) (*session.UserSession, bool) {
	sess, ok := ctx.Value(sessionContextKey{}).(*session.UserSession)
	return sess, ok
}

// Gate wraps a handler behind the guard. The wrapped handler runs only on a
// granted decision; every other outcome responds with a redirect or the
// role-mismatch overlay and never touches the handler.
func Gate(guard *sessionguard.Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if guard == nil {
				http.Redirect(w, r, route.LoginPath, http.StatusSeeOther)
				return
			}

			ctx := sessionguard.WithClientIP(r.Context(), clientIP(r))
			ctx = sessionguard.WithUserAgent(ctx, r.UserAgent())

			dec, err := guard.CheckAccess(ctx, r.URL.Path)
			if err != nil {
				http.Redirect(w, r, route.LoginPath, http.StatusSeeOther)
				return
			}

			switch dec.Kind {
			case sessionguard.DecisionGranted:
				if dec.Session != nil {
					ctx = context.WithValue(ctx, sessionContextKey{}, dec.Session)
				}
				next.ServeHTTP(w, r.WithContext(ctx))

			case sessionguard.DecisionGrantedRedirect, sessionguard.DecisionDeniedLogin:
				target := dec.RedirectTo
				if target == "" {
					target = route.LoginPath
				}
				http.Redirect(w, r, target, http.StatusSeeOther)

			case sessionguard.DecisionDeniedRole:
				writeRoleOverlay(w, dec)

			default:
				http.Redirect(w, r, route.LoginPath, http.StatusSeeOther)
			}
		})
	}
}

// overlayPage is self-contained on purpose: the denied page must not pull
// assets from the very area the caller was denied.
const overlayPage = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="%d;url=%s">
<title>Access denied</title>
<style>
body{font-family:system-ui,sans-serif;display:flex;align-items:center;justify-content:center;height:100vh;margin:0;background:#111;color:#eee}
.overlay{text-align:center;max-width:28rem;padding:2rem;border-radius:.5rem;background:#1d1d1d}
.overlay strong{color:#f66}
</style>
</head>
<body>
<div class="overlay">
<h1>Access denied</h1>
<p>This area requires the <strong>%s</strong> role. Your role: <strong>%s</strong>.</p>
<p>Taking you to your dashboard&hellip;</p>
</div>
</body>
</html>
`

func writeRoleOverlay(w http.ResponseWriter, dec sessionguard.Decision) {
	seconds := int(dec.RedirectDelay.Round(1e9).Seconds())
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusForbidden)
	fmt.Fprintf(w, overlayPage,
		seconds,
		html.EscapeString(dec.RedirectTo),
		html.EscapeString(string(dec.RequiredRole)),
		html.EscapeString(string(dec.ActualRole)),
	)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
