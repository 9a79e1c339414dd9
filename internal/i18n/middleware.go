package i18n

import (
	"net/http"

	"golang.org/x/text/language"
)

var supported = language.NewMatcher([]language.Tag{language.English, language.Chinese})

// Middleware attaches a localizer to every request context. The request's
// Accept-Language header wins over fallback when it names a supported language.
func Middleware(fallback string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := fallback
			if accept := r.Header.Get("Accept-Language"); accept != "" {
				tags, _, err := language.ParseAcceptLanguage(accept)
				if err == nil && len(tags) > 0 {
					_, idx, conf := supported.Match(tags...)
					if conf != language.No {
						lang = []string{"en", "zh"}[idx]
					}
				}
			}
			ctx := WithLang(r.Context(), lang)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
