package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gianlucacontedesign/terpenitos/internal/apierror"
	"github.com/gianlucacontedesign/terpenitos/internal/handler"
	"github.com/gianlucacontedesign/terpenitos/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Access is who may call a route.
type Access int

const (
	Public Access = iota
	Authenticated
	Customer
	Admin
)

func (a Access) String() string {
	switch a {
	case Authenticated:
		return "authenticated"
	case Customer:
		return "customer"
	case Admin:
		return "admin"
	default:
		return "public"
	}
}

// Route is one (controller, action) entry of the API table. Mutating routes
// only accept POST with a valid CSRF token.
type Route struct {
	Controller string
	Action     string
	Access     Access
	Mutating   bool
	Limiter    *middleware.IPRateLimiter
	Handler    gin.HandlerFunc
}

// Registry indexes routes by controller, then action.
type Registry struct {
	routes map[string]map[string]Route
}

func NewRegistry() *Registry {
	return &Registry{routes: make(map[string]map[string]Route)}
}

// Add registers rt. Registering the same pair twice is a programming error.
func (r *Registry) Add(rt Route) {
	acciones, ok := r.routes[rt.Controller]
	if !ok {
		acciones = make(map[string]Route)
		r.routes[rt.Controller] = acciones
	}
	if _, dup := acciones[rt.Action]; dup {
		panic("router: ruta duplicada " + rt.Controller + "/" + rt.Action)
	}
	acciones[rt.Action] = rt
}

// Lookup returns the route and whether the controller and the action exist.
func (r *Registry) Lookup(controller, action string) (rt Route, controllerOK, actionOK bool) {
	acciones, ok := r.routes[controller]
	if !ok {
		return Route{}, false, false
	}
	rt, ok = acciones[action]
	return rt, true, ok
}

// Dispatcher serves /api.php?controller=&action= and the REST aliases.
//
// Checks run in order: health bypass, route lookup, DB preflight, rate
// limit, access, method, CSRF. The first failing check answers.
type Dispatcher struct {
	registry *Registry
	db       handler.Pinger
	health   gin.HandlerFunc
}

func NewDispatcher(registry *Registry, db handler.Pinger, health gin.HandlerFunc) *Dispatcher {
	return &Dispatcher{registry: registry, db: db, health: health}
}

// Handle is the single dispatcher endpoint.
func (d *Dispatcher) Handle(c *gin.Context) {
	controller, action := c.Query("controller"), c.Query("action")
	if controller == "system" && action == "health" {
		d.health(c)
		return
	}
	if controller == "" || action == "" {
		abort(c, http.StatusBadRequest, apierror.MsgRutaRequerida)
		return
	}
	rt, controllerOK, actionOK := d.registry.Lookup(controller, action)
	switch {
	case !controllerOK:
		abort(c, http.StatusNotFound, apierror.MsgSinControlador)
		return
	case !actionOK:
		abort(c, http.StatusNotFound, apierror.MsgSinAccion)
		return
	}
	d.serve(c, rt)
}

// Alias binds a fixed route to a REST-style path.
func (d *Dispatcher) Alias(controller, action string) gin.HandlerFunc {
	rt, _, ok := d.registry.Lookup(controller, action)
	if !ok {
		panic("router: alias a ruta inexistente " + controller + "/" + action)
	}
	return func(c *gin.Context) { d.serve(c, rt) }
}

func (d *Dispatcher) serve(c *gin.Context, rt Route) {
	if !d.preflight(c.Request.Context()) {
		abort(c, http.StatusInternalServerError, apierror.MsgSinConexionDB)
		return
	}
	if rt.Limiter != nil && !rt.Limiter.Allow(c.ClientIP()) {
		abort(c, http.StatusTooManyRequests, apierror.MsgDemasiados)
		return
	}

	rc := middleware.GetRequestContext(c)
	switch rt.Access {
	case Admin:
		if !rc.EsAdmin() {
			abort(c, http.StatusForbidden, apierror.MsgAccesoDenegado)
			return
		}
	case Customer:
		if !rc.EsCliente() {
			abort(c, http.StatusUnauthorized, apierror.MsgNoAutorizado)
			return
		}
	case Authenticated:
		if !rc.Autenticado() {
			abort(c, http.StatusUnauthorized, apierror.MsgNoAutenticado)
			return
		}
	}

	if rt.Mutating {
		if c.Request.Method != http.MethodPost {
			abort(c, http.StatusMethodNotAllowed, apierror.MsgMetodo)
			return
		}
		if !middleware.ValidarCSRF(c, rc) {
			log.Warn().
				Str("request_id", c.GetString(middleware.RequestIDKey)).
				Str("route", rt.Controller+"/"+rt.Action).
				Str("ip", c.ClientIP()).
				Msg("csrf rechazado")
			abort(c, http.StatusForbidden, apierror.MsgCSRF)
			return
		}
	}

	rt.Handler(c)
}

func (d *Dispatcher) preflight(ctx context.Context) bool {
	if d.db == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := d.db.PingContext(ctx); err != nil {
		log.Error().Err(err).Msg("preflight: base de datos no disponible")
		return false
	}
	return true
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, apierror.New(msg))
}
