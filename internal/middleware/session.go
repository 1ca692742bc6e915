package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gianlucacontedesign/terpenitos/internal/apierror"
	"github.com/gianlucacontedesign/terpenitos/internal/dto"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	SessionCookie     = "terpenitos_session"
	RequestContextKey = "request_context"
)

// RequestContext is the per-request view of the caller's session. Handlers
// read identity and CSRF state from it instead of any shared state.
type RequestContext struct {
	SessionID     string
	CSRFToken     string
	Identidad     *dto.Identidad
	CSRFValidated bool
	expiresAt     time.Time
}

func (rc *RequestContext) Autenticado() bool { return rc != nil && rc.Identidad != nil }
func (rc *RequestContext) EsAdmin() bool     { return rc.Autenticado() && rc.Identidad.EsAdmin }

// EsCliente is true for a logged-in customer; the administrator is not one.
func (rc *RequestContext) EsCliente() bool { return rc.Autenticado() && !rc.Identidad.EsAdmin }

// GetRequestContext returns the session context set by SessionManager, or an
// anonymous one when the middleware did not run.
func GetRequestContext(c *gin.Context) *RequestContext {
	if v, ok := c.Get(RequestContextKey); ok {
		if rc, ok := v.(*RequestContext); ok {
			return rc
		}
	}
	return &RequestContext{}
}

// Revocaciones remembers logged-out session ids until their tokens expire.
type Revocaciones interface {
	Revocar(ctx context.Context, sid string, ttl time.Duration) error
	Revocada(ctx context.Context, sid string) (bool, error)
}

type sessionClaims struct {
	CSRF    string         `json:"csrf"`
	Usuario *dto.Identidad `json:"usr,omitempty"`
	jwt.RegisteredClaims
}

// SessionManager issues and verifies the signed session cookie. Every visitor
// gets a session (and a CSRF token) on the first request; login and logout
// rotate the session id.
type SessionManager struct {
	secret    []byte
	ttl       time.Duration
	secure    bool
	revocadas Revocaciones
	now       func() time.Time
}

func NewSessionManager(secret string, ttl time.Duration, secure bool, revocadas Revocaciones) *SessionManager {
	return &SessionManager{secret: []byte(secret), ttl: ttl, secure: secure, revocadas: revocadas, now: time.Now}
}

// Middleware loads the session from the cookie (or a Bearer header) and
// starts an anonymous one when there is none or it is invalid.
func (m *SessionManager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		rc := m.cargar(c)
		if rc == nil {
			var err error
			rc, err = m.emitir(c, nil, "")
			if err != nil {
				log.Error().Err(err).Str("request_id", c.GetString(RequestIDKey)).Msg("session: emitir")
				c.AbortWithStatusJSON(http.StatusInternalServerError, apierror.New(apierror.MsgInterno))
				return
			}
		}
		c.Set(RequestContextKey, rc)
		c.Next()
	}
}

// Iniciar binds identidad to a fresh session id. The CSRF token survives so
// pages loaded before login keep working.
func (m *SessionManager) Iniciar(c *gin.Context, identidad *dto.Identidad) (*RequestContext, error) {
	actual := GetRequestContext(c)
	m.revocar(c.Request.Context(), actual)
	rc, err := m.emitir(c, identidad, actual.CSRFToken)
	if err != nil {
		return nil, err
	}
	c.Set(RequestContextKey, rc)
	return rc, nil
}

// Cerrar revokes the current session and replaces it with an anonymous one.
func (m *SessionManager) Cerrar(c *gin.Context) (*RequestContext, error) {
	m.revocar(c.Request.Context(), GetRequestContext(c))
	rc, err := m.emitir(c, nil, "")
	if err != nil {
		return nil, err
	}
	c.Set(RequestContextKey, rc)
	return rc, nil
}

func (m *SessionManager) revocar(ctx context.Context, rc *RequestContext) {
	if m.revocadas == nil || rc.SessionID == "" {
		return
	}
	if err := m.revocadas.Revocar(ctx, rc.SessionID, rc.expiresAt.Sub(m.now())); err != nil {
		log.Warn().Err(err).Str("sid", rc.SessionID).Msg("session: no se pudo revocar")
	}
}

func (m *SessionManager) cargar(c *gin.Context) *RequestContext {
	raw, err := c.Cookie(SessionCookie)
	if err != nil || raw == "" {
		raw = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	if raw == "" {
		return nil
	}
	claims, err := m.Verificar(raw)
	if err != nil {
		return nil
	}
	if m.revocadas != nil {
		revocada, err := m.revocadas.Revocada(c.Request.Context(), claims.ID)
		if err != nil {
			log.Warn().Err(err).Msg("session: consulta de revocación falló")
		}
		if revocada {
			return nil
		}
	}
	return &RequestContext{
		SessionID: claims.ID,
		CSRFToken: claims.CSRF,
		Identidad: claims.Usuario,
		expiresAt: claims.ExpiresAt.Time,
	}
}

// Verificar parses and validates a session token.
func (m *SessionManager) Verificar(raw string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.ID == "" || claims.CSRF == "" || claims.ExpiresAt == nil {
		return nil, errors.New("session: token incompleto")
	}
	return claims, nil
}

func (m *SessionManager) emitir(c *gin.Context, identidad *dto.Identidad, csrf string) (*RequestContext, error) {
	if csrf == "" {
		var err error
		if csrf, err = nuevoTokenCSRF(); err != nil {
			return nil, err
		}
	}
	now := m.now()
	claims := sessionClaims{
		CSRF:    csrf,
		Usuario: identidad,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, signed, int(m.ttl.Seconds()), "/", "", m.secure, true)
	return &RequestContext{
		SessionID: claims.ID,
		CSRFToken: csrf,
		Identidad: identidad,
		expiresAt: claims.ExpiresAt.Time,
	}, nil
}

// nuevoTokenCSRF returns 32 random bytes, hex encoded.
func nuevoTokenCSRF() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// RequireAdmin guards plain gin routes that live outside the dispatcher.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetRequestContext(c).EsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New(apierror.MsgAccesoDenegado))
			return
		}
		c.Next()
	}
}
