package middleware

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
)

const CSRFHeader = "X-CSRF-Token"

// tokenEnviado finds the CSRF token the client sent: header first, then the
// csrf_token field of a JSON or form body. A JSON body is restored so the
// handler can bind it afterwards.
func tokenEnviado(c *gin.Context) string {
	if t := c.GetHeader(CSRFHeader); t != "" {
		return t
	}
	if strings.HasPrefix(c.ContentType(), "application/json") {
		raw, err := c.GetRawData()
		if err != nil {
			return ""
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(raw))
		var body struct {
			CSRF string `json:"csrf_token"`
		}
		if json.Unmarshal(raw, &body) != nil {
			return ""
		}
		return body.CSRF
	}
	return c.PostForm("csrf_token")
}

// ValidarCSRF compares the sent token with the session's in constant time
// and records the outcome on rc.
func ValidarCSRF(c *gin.Context, rc *RequestContext) bool {
	enviado := tokenEnviado(c)
	ok := rc.CSRFToken != "" && enviado != "" &&
		subtle.ConstantTimeCompare([]byte(enviado), []byte(rc.CSRFToken)) == 1
	rc.CSRFValidated = ok
	return ok
}
