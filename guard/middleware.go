package guard

import (
	"net/http"

	"github.com/chinkauchenna2021/bankauth/tokenstore"
)

// NoticeCookie carries a one-time redirect notice to the front-end, which
// reads and clears it.
const NoticeCookie = "bankauth_notice"

// Middleware applies Decide at the edge, before a page is served. The
// session snapshot is read fresh on every request so a logout or refresh
// failure takes effect on the next navigation.
func Middleware(store *tokenstore.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := Decide(store.Read(), r.URL.RequestURI())
			if !decision.Redirect {
				next.ServeHTTP(w, r)
				return
			}
			if decision.Reason == ReasonAccessDenied {
				http.SetCookie(w, &http.Cookie{
					Name:     NoticeCookie,
					Value:    string(ReasonAccessDenied),
					Path:     "/",
					MaxAge:   60,
					HttpOnly: false,
					SameSite: http.SameSiteLaxMode,
				})
			}
			http.Redirect(w, r, decision.Target, http.StatusFound)
		})
	}
}
