package helpers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const DefaultSessionCookie = "session_id"

// Manager writes the session cookie. The cookie only carries an opaque id.
type Manager struct {
	Name   string
	Domain string
	Secure bool
}

func NewCookie(name, domain string, secure bool) *Manager {
	if name == "" {
		name = DefaultSessionCookie
	}
	return &Manager{Name: name, Domain: domain, Secure: secure}
}

func (m *Manager) SetSession(c *gin.Context, sessionID string, exp time.Time) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.Name, sessionID, maxAgeFrom(exp), "/", m.Domain, m.Secure, true)
}

// SessionID returns the session id sent by the client, if any.
func (m *Manager) SessionID(c *gin.Context) string {
	v, err := c.Cookie(m.Name)
	if err != nil {
		return ""
	}
	return v
}

func (m *Manager) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.Name, "", -1, "/", m.Domain, m.Secure, true)
}

func maxAgeFrom(exp time.Time) int {
	sec := int(time.Until(exp).Seconds())
	if sec < 0 {
		return 0
	}
	return sec
}
