// Package guard decides whether a navigation is allowed or must redirect
// based on the current session snapshot. The decision function is pure;
// it is invoked from the edge middleware and from in-app reactive
// redirects so the two call sites can never diverge.
package guard

import (
	"net/url"
	"strings"

	"github.com/chinkauchenna2021/bankauth/session"
)

// Well-known navigation targets.
const (
	LoginPath     = "/auth/login"
	DashboardHome = "/dashboard"
	AdminHome     = "/admin"
)

// Reason annotates a redirect so the UI can surface the right notice.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonLoginRequired Reason = "login_required"
	ReasonAccessDenied  Reason = "access_denied"
)

// Decision is the outcome of evaluating a navigation.
type Decision struct {
	Redirect bool
	Target   string
	Reason   Reason
}

// allow is the zero decision.
var allow = Decision{}

func redirect(target string, reason Reason) Decision {
	return Decision{Redirect: true, Target: target, Reason: reason}
}

// publicPages are marketing pages reachable regardless of session state.
var publicPages = map[string]bool{
	"/":         true,
	"/about":    true,
	"/services": true,
	"/contact":  true,
	"/faq":      true,
}

// Decide maps a session snapshot and a requested path to an allow or
// redirect decision. It is side-effect-free and stable: re-evaluating the
// decision for its own redirect target always yields allow, so redirects
// cannot loop.
func Decide(s session.Session, path string) Decision {
	orig := path
	path = normalize(path)
	authed := s.IsAuthenticated

	// Marketing pages are reachable in every session state.
	if publicPages[path] {
		return allow
	}

	// Rule 1: authenticated users don't see auth-flow pages, except the
	// reset-password confirmation, which must stay reachable so a
	// just-issued reset link can be acted on.
	if isAuthPage(path) && authed {
		if underPrefix(path, "/auth/reset-password") {
			return allow
		}
		return redirect(home(s), ReasonNone)
	}

	// Rule 2: protected pages require authentication. The requested path
	// is preserved so login can return the user there.
	if isProtected(path) && !authed {
		return redirect(LoginPath+"?next="+url.QueryEscape(orig), ReasonLoginRequired)
	}

	// Rule 3: admin routes are closed to non-admins.
	if underPrefix(path, AdminHome) && authed && !s.Admin() {
		return redirect(DashboardHome, ReasonAccessDenied)
	}

	// Rule 4: admins don't use the end-user dashboard.
	if underPrefix(path, DashboardHome) && authed && s.Admin() {
		return redirect(AdminHome, ReasonNone)
	}

	return allow
}

// home returns the landing page for an authenticated session.
func home(s session.Session) string {
	if s.Admin() {
		return AdminHome
	}
	return DashboardHome
}

func isAuthPage(path string) bool {
	return underPrefix(path, "/auth")
}

func isProtected(path string) bool {
	return underPrefix(path, DashboardHome) || underPrefix(path, AdminHome)
}

// underPrefix matches the prefix as a whole path segment, so /admin and
// /admin/users match /admin but /administrator does not.
func underPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}

// normalize strips the query string and trailing slash so rule matching
// sees a canonical path.
func normalize(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	if path == "" {
		path = "/"
	}
	return path
}

// Public reports whether path is on the marketing allow-list.
func Public(path string) bool {
	return publicPages[normalize(path)]
}
