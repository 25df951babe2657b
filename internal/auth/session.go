package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/profile-support/internal/shell"
	apperrors "github.com/spec-kit/profile-support/pkg/util/errorutil"
)

const sessionKey = "shell_index"

// SessionMiddleware attaches the caller's shell, starting a new session when
// the cookie is missing, invalid or refers to an evicted session.
type SessionMiddleware struct {
	tokens   *TokenManager
	registry *shell.Registry
	cookie   string
	secure   bool
}

// NewSessionMiddleware constructs middleware.
func NewSessionMiddleware(tokens *TokenManager, registry *shell.Registry, cookieName string, secure bool) *SessionMiddleware {
	return &SessionMiddleware{tokens: tokens, registry: registry, cookie: cookieName, secure: secure}
}

// Handle resolves the session.
func (m *SessionMiddleware) Handle(c *fiber.Ctx) error {
	if raw := c.Cookies(m.cookie); raw != "" {
		if claims, err := m.tokens.ParseToken(raw); err == nil {
			if index, ok := m.registry.Get(claims.SessionID); ok {
				if claims.ExpiresAt != nil && time.Until(claims.ExpiresAt.Time) < m.tokens.TTL()/2 {
					if err := m.issue(c, claims.SessionID); err != nil {
						return err
					}
				}
				c.Locals(sessionKey, index)
				return c.Next()
			}
		}
	}

	id, index := m.registry.Create()
	if err := m.issue(c, id); err != nil {
		return err
	}
	c.Locals(sessionKey, index)
	return c.Next()
}

func (m *SessionMiddleware) issue(c *fiber.Ctx, sessionID string) error {
	token, expiresAt, err := m.tokens.GenerateToken(sessionID)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	c.Cookie(&fiber.Cookie{
		Name:     m.cookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HTTPOnly: true,
		Secure:   m.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return nil
}

// IndexFromContext retrieves the session's shell.
func IndexFromContext(c *fiber.Ctx) (*shell.Index, bool) {
	val := c.Locals(sessionKey)
	if val == nil {
		return nil, false
	}
	index, ok := val.(*shell.Index)
	return index, ok
}
