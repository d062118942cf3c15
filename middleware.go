package blog

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	sessionName   = "admin_session"
	sessionMaxAge = 12 * time.Hour
)

const contentSecurityPolicy = "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; " +
	"img-src 'self' http: https: data:; font-src 'self'; connect-src 'self'; frame-ancestors 'none'"

// routeClass groups request paths that share caching, compression and
// redirect rules.
type routeClass int

const (
	routePage routeClass = iota
	routeStatic
	routeFeed
	routeMarkdown
	routeImage
	routeAdmin
	routeMetrics
)

func classify(path string) routeClass {
	switch {
	case strings.HasPrefix(path, "/public"):
		return routeStatic
	case path == "/sitemap.xml" || path == "/feed.xml" || path == "/robots.txt":
		return routeFeed
	case strings.HasSuffix(path, ".md"):
		return routeMarkdown
	case strings.HasPrefix(path, "/_img/"):
		return routeImage
	case strings.HasPrefix(path, "/admin"):
		return routeAdmin
	case path == "/metrics":
		return routeMetrics
	}
	return routePage
}

func (a *App) setupMiddleware() {
	e := a.Echo

	e.IPExtractor = echo.ExtractIPFromXFFHeader(
		echo.TrustLoopback(true),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(true),
	)
	e.HTTPErrorHandler = a.httpErrorHandler

	e.Pre(middleware.NonWWWRedirect())

	e.Use(a.requestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			class := classify(c.Request().URL.Path)
			return class == routeStatic || class == routeImage
		},
	}))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: contentSecurityPolicy,
		HSTSMaxAge:            31536000,
	}))
	e.Use(session.Middleware(a.newSessionStore()))
	e.Use(a.adminCSRF())
	e.Use(middleware.AddTrailingSlashWithConfig(middleware.TrailingSlashConfig{
		RedirectCode: http.StatusMovedPermanently,
		Skipper: func(c echo.Context) bool {
			switch classify(c.Request().URL.Path) {
			case routeStatic, routeFeed, routeMarkdown, routeMetrics:
				return true
			}
			return false
		},
	}))
	e.Use(cacheControl)
}

// requestLogger writes one structured line per request. Server errors are
// logged at error level.
func (a *App) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		Skipper: func(c echo.Context) bool {
			return classify(c.Request().URL.Path) == routeMetrics
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			a.logger.LogAttrs(c.Request().Context(), level, "request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("ip", v.RemoteIP),
			)
			return nil
		},
	})
}

// adminCSRF guards every /admin request. Public pages carry no forms.
func (a *App) adminCSRF() echo.MiddlewareFunc {
	return middleware.CSRFWithConfig(middleware.CSRFConfig{
		ContextKey:     middleware.DefaultCSRFConfig.ContextKey,
		TokenLookup:    "header:X-CSRF-Token,form:_csrf",
		CookieName:     "_csrf",
		CookiePath:     "/",
		CookieSameSite: http.SameSiteLaxMode,
		CookieSecure:   a.Config.CookieSecure,
		CookieHTTPOnly: true,
		Skipper: func(c echo.Context) bool {
			return classify(c.Request().URL.Path) != routeAdmin
		},
		ErrorHandler: func(err error, c echo.Context) error {
			a.logger.Warn("csrf check failed", "path", c.Request().URL.Path, "ip", c.RealIP(), "error", err)
			return c.String(http.StatusForbidden, "Forbidden")
		},
	})
}

func cacheControl(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		var value string
		switch classify(c.Request().URL.Path) {
		case routeStatic:
			value = "public, max-age=31536000, immutable"
		case routeFeed:
			value = "public, max-age=86400"
		case routeAdmin, routeMetrics:
			value = "no-store"
		default:
			value = "public, max-age=3600"
		}
		c.Response().Header().Set("Cache-Control", value)
		return next(c)
	}
}

func (a *App) newSessionStore() *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(a.Config.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   int(sessionMaxAge.Seconds()),
		SameSite: http.SameSiteLaxMode,
		Secure:   a.Config.CookieSecure,
	}
	return store
}

// IsAdmin reports whether the request carries an authenticated admin session.
func IsAdmin(c echo.Context) bool {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return false
	}
	auth, _ := sess.Values["authenticated"].(bool)
	return auth
}

func setAdminSession(c echo.Context) error {
	return saveSession(c, func(sess *sessions.Session) {
		sess.Values["authenticated"] = true
	})
}

func clearAdminSession(c echo.Context) error {
	return saveSession(c, func(sess *sessions.Session) {
		delete(sess.Values, "authenticated")
		sess.Options.MaxAge = -1
	})
}

func saveSession(c echo.Context, update func(*sessions.Session)) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	update(sess)
	return sess.Save(c.Request(), c.Response())
}

// CsrfToken returns the token the CSRF middleware stored for this request.
func CsrfToken(c echo.Context) string {
	token, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	return token
}

// requireAdmin sends requests without an admin session back to the login page.
func requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !IsAdmin(c) {
			return c.Redirect(http.StatusSeeOther, "/admin/")
		}
		return next(c)
	}
}
