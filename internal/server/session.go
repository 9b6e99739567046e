package server

import (
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"yatube/internal/auth"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/service"

	"github.com/gofiber/fiber/v2"
)

const (
	sessionCookie = "session"
	loginPath     = "/auth/login/"
)

// CurrentUser resolves the session cookie, if any, into Locals "user",
// "userID" and "session". A stale or revoked cookie is dropped and the
// request continues anonymously.
func (s *Server) CurrentUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(sessionCookie)
		if token == "" {
			return c.Next()
		}

		user, claims, err := s.accountService.ResolveSession(c.UserContext(), token)
		switch {
		case err == nil:
			c.Locals("user", user)
			c.Locals("userID", user.ID)
			c.Locals("session", claims)
		case service.IsUnauthorized(err):
			s.clearSessionCookie(c)
		default:
			middleware.Logger.WarnContext(c.UserContext(), "session lookup failed",
				slog.String("error", err.Error()))
		}
		return c.Next()
	}
}

// LoginRequired redirects anonymous callers to the login page, remembering
// where they were going.
func (s *Server) LoginRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if currentUser(c) != nil {
			return c.Next()
		}
		return c.Redirect(loginURL(c.OriginalURL()), fiber.StatusFound)
	}
}

func currentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals("user").(*models.User)
	return user
}

func currentUserID(c *fiber.Ctx) uint {
	if user := currentUser(c); user != nil {
		return user.ID
	}
	return 0
}

func currentSession(c *fiber.Ctx) *auth.SessionClaims {
	claims, _ := c.Locals("session").(*auth.SessionClaims)
	return claims
}

// viewerKey separates cached pages per signed-in user, since the navigation
// bar differs.
func (s *Server) viewerKey(c *fiber.Ctx) string {
	if id := currentUserID(c); id != 0 {
		return "user" + strconv.FormatUint(uint64(id), 10)
	}
	return "anon"
}

func (s *Server) setSessionCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(s.config.SessionTTL()),
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// loginURL keeps slashes readable in the next parameter: /auth/login/?next=/create/
func loginURL(next string) string {
	return loginPath + "?next=" + strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
}

// safeNext accepts only local absolute paths as a post-login destination.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return "/"
	}
	return next
}

// pageData adds the signed-in user to template data.
func (s *Server) pageData(c *fiber.Ctx, data fiber.Map) fiber.Map {
	if data == nil {
		data = fiber.Map{}
	}
	if user := currentUser(c); user != nil {
		data["User"] = user
	}
	return data
}

func (s *Server) render(c *fiber.Ctx, name string, data fiber.Map) error {
	return c.Render(name, s.pageData(c, data))
}

// parseID reads a positive integer route parameter; anything else is a
// missing page.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(param), 10, 64)
	if err != nil || id == 0 {
		return 0, models.NewNotFoundError("Page", c.Params(param))
	}
	return uint(id), nil
}
