package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gianlucacontedesign/terpenitos/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrorHandler turns errors attached with c.Error into the generic 500
// envelope, unless a handler already wrote a response.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last()
		log.Error().
			Str("request_id", c.GetString(RequestIDKey)).
			Str("controller", c.Query("controller")).
			Str("action", c.Query("action")).
			Err(err.Err).
			Msg("error no manejado")

		if !c.Writer.Written() {
			c.AbortWithStatusJSON(http.StatusInternalServerError, apierror.New(apierror.MsgInterno))
		}
	}
}

// Recovery answers a panic with the JSON 500 envelope and logs the stack.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Str("request_id", c.GetString(RequestIDKey)).
					Str("path", c.Request.URL.Path).
					Interface("panic", r).
					Bytes("stack", debug.Stack()).
					Msg("panic recuperado")
				c.AbortWithStatusJSON(http.StatusInternalServerError, apierror.New(apierror.MsgInterno))
			}
		}()
		c.Next()
	}
}

// Logger writes one access line per request. 5xx log at error level and 4xx
// at warn, so a production log filtered to warn still shows rejected calls.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		var ev *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			ev = log.Error()
		case status >= http.StatusBadRequest:
			ev = log.Warn()
		default:
			ev = log.Info()
		}
		ev = ev.
			Str("request_id", c.GetString(RequestIDKey)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP())
		if ctrl := c.Query("controller"); ctrl != "" {
			ev = ev.Str("controller", ctrl).Str("action", c.Query("action"))
		}
		if rc := GetRequestContext(c); rc.Autenticado() {
			if rc.Identidad.EsAdmin {
				ev = ev.Str("usuario", "admin")
			} else {
				ev = ev.Uint("usuario_id", rc.Identidad.UsuarioID)
			}
		}
		ev.Msg("request")
	}
}
