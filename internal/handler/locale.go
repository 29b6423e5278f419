package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/petallog/internal/locale"
)

const (
	localeContextKey     = "__request_locale"
	languageCookieName   = "pl_lang"
	languageCookieMaxAge = 365 * 24 * 60 * 60
)

// LocaleMiddleware resolves request language and sets headers for downstream caching.
func (a *API) LocaleMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		pref := a.requestLocale(c)
		c.Header("Content-Language", pref.ContentLang)
		c.Header("Vary", "Accept-Language, Cookie")
		c.Next()
	}
}

func (a *API) requestLocale(c *gin.Context) locale.Preference {
	if cached, exists := c.Get(localeContextKey); exists {
		if pref, ok := cached.(locale.Preference); ok {
			return pref
		}
	}
	language, persist := resolveLanguage(c)
	pref := locale.PreferenceForLanguage(language)
	if persist {
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     languageCookieName,
			Value:    pref.Language,
			Path:     "/",
			MaxAge:   languageCookieMaxAge,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	c.Set(localeContextKey, pref)
	return pref
}

// resolveLanguage 依次参考 ?lang、语言 cookie 与 Accept-Language
func resolveLanguage(c *gin.Context) (string, bool) {
	if override := locale.NormalizeLanguage(c.Query("lang")); override != "" {
		return override, true
	}
	if value, err := c.Cookie(languageCookieName); err == nil {
		if cookie := locale.NormalizeLanguage(value); cookie != "" {
			return cookie, false
		}
	}
	if fromHeader := locale.LanguageFromAcceptLanguage(c.GetHeader("Accept-Language")); fromHeader != "" {
		return fromHeader, false
	}
	return locale.LanguageChinese, false
}
