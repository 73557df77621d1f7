package frontend

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	SessionCookieName = "session_id"
	sessionContextKey = "session_id"
	sessionMaxAge     = 30 * 24 * 60 * 60
)

// withSession makes sure every browser carries a session_id cookie and
// exposes its value to the handler.
func withSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		sessionID := ""
		if cookie, err := ctx.Cookie(SessionCookieName); err == nil {
			if _, parseErr := uuid.Parse(cookie.Value); parseErr == nil {
				sessionID = cookie.Value
			}
		}

		if sessionID == "" {
			sessionID = uuid.NewString()
			slog.Debug("new browser session", "session_id", sessionID)
		}
		// refresh expiry on every request
		ctx.SetCookie(&http.Cookie{
			Name:     SessionCookieName,
			Value:    sessionID,
			Path:     "/",
			MaxAge:   sessionMaxAge,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		ctx.Set(sessionContextKey, sessionID)
		return next(ctx)
	}
}

func getSessionID(ctx echo.Context) string {
	id, _ := ctx.Get(sessionContextKey).(string)
	return id
}
