package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gianlucacontedesign/terpenitos/internal/infra"
	"github.com/gianlucacontedesign/terpenitos/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// EstadoMail reports the mail circuit breaker state.
type EstadoMail interface {
	Enabled() bool
	Estado() infra.CBState
}

type HealthHandler struct {
	db   Pinger
	rdb  *redis.Client
	mail EstadoMail
}

func NewHealthHandler(db Pinger, rdb *redis.Client, mail EstadoMail) *HealthHandler {
	return &HealthHandler{db: db, rdb: rdb, mail: mail}
}

// Health godoc
// @Summary Estado del sistema
// @Tags system
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	resp := gin.H{
		"success":   true,
		"message":   "Sistema funcionando correctamente",
		"timestamp": time.Now().Format("2006-01-02 15:04:05"),
		"database":  "conectada",
		"redis":     "deshabilitado",
	}
	status := http.StatusOK

	if h.db == nil || h.db.PingContext(ctx) != nil {
		resp["success"] = false
		resp["message"] = "Base de datos no disponible"
		resp["database"] = "desconectada"
		status = http.StatusServiceUnavailable
	}

	if h.rdb != nil {
		if h.rdb.Ping(ctx).Err() != nil {
			resp["redis"] = "error"
		} else {
			resp["redis"] = "conectado"
			if n, err := worker.DLQLength(ctx, h.rdb, worker.QueuePedidos); err == nil {
				resp["dlq"] = n
			}
		}
	}

	if h.mail != nil && h.mail.Enabled() {
		resp["mail"] = h.mail.Estado().String()
	}

	c.JSON(status, resp)
}
