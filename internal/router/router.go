package router

import (
	"context"
	"path/filepath"
	"time"

	"github.com/gianlucacontedesign/terpenitos/internal/config"
	"github.com/gianlucacontedesign/terpenitos/internal/handler"
	"github.com/gianlucacontedesign/terpenitos/internal/infra"
	"github.com/gianlucacontedesign/terpenitos/internal/middleware"
	"github.com/gianlucacontedesign/terpenitos/internal/realtime"
	"github.com/gianlucacontedesign/terpenitos/internal/repository"
	"github.com/gianlucacontedesign/terpenitos/internal/service"
	"github.com/gianlucacontedesign/terpenitos/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Servicios are the business services behind the API table.
type Servicios struct {
	Auth        service.AuthService
	Productos   service.ProductoService
	Categorias  service.CategoriaService
	Pedidos     service.PedidoService
	Direcciones service.DireccionService
	Imagenes    service.ImagenService
}

// Deps is everything NewEngine needs. Redis, Mail and Hub may be nil.
type Deps struct {
	Servicios
	DB       handler.Pinger
	Redis    *redis.Client
	Mail     handler.EstadoMail
	Sesiones *middleware.SessionManager
	Hub      *realtime.Hub
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, rdb *redis.Client, mailer *infra.Mailer, hub *realtime.Hub) (*gin.Engine, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// ── Repositories ─────────────────────────────────────────────────────────
	usuarioRepo := repository.NewUsuarioRepository(db)
	productoRepo := repository.NewProductoRepository(db)
	categoriaRepo := repository.NewCategoriaRepository(db)
	pedidoRepo := repository.NewPedidoRepository(db)
	direccionRepo := repository.NewDireccionRepository(db)
	historialRepo := repository.NewHistorialPrecioRepository(db)
	tx := repository.NewTransactor(db)

	// ── Redis-backed infrastructure (optional) ───────────────────────────────
	var (
		cache     service.CatalogoCache
		revocadas middleware.Revocaciones
	)
	if rdb != nil {
		cache = infra.NewCatalogoCache(rdb, time.Duration(cfg.CatalogCacheTTL)*time.Second)
		revocadas = infra.NewSesionesRevocadas(rdb)
	}

	// Order listeners: the job queue and, when running, the live feed.
	eventos := []service.PedidoEventos{worker.NewDispatcher(rdb)}
	if hub != nil {
		eventos = append(eventos, hub)
	}

	deps := Deps{
		Servicios: Servicios{
			Auth:        service.NewAuthService(usuarioRepo, cfg),
			Productos:   service.NewProductoService(productoRepo, categoriaRepo, historialRepo, tx, cache),
			Categorias:  service.NewCategoriaService(categoriaRepo, productoRepo, tx, cache),
			Pedidos:     service.NewPedidoService(pedidoRepo, productoRepo, tx, cache, eventos...),
			Direcciones: service.NewDireccionService(direccionRepo, tx),
			Imagenes:    service.NewImagenService(cfg.PublicDir),
		},
		DB:       sqlDB,
		Redis:    rdb,
		Sesiones: middleware.NewSessionManager(cfg.SessionSecret, time.Duration(cfg.SessionHours)*time.Hour, cfg.CookieSecure, revocadas),
		Hub:      hub,
	}
	if mailer != nil {
		deps.Mail = mailer
	}
	return NewEngine(ctx, cfg, deps), nil
}

// NewEngine builds the middleware chain, the API table and the side routes.
func NewEngine(ctx context.Context, cfg *config.Config, d Deps) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = 8 << 20

	general := middleware.PorMinuto(cfg.RateLimitPerMinute)
	general.StartPurge(ctx, 5*time.Minute)
	login := middleware.PorMinuto(cfg.LoginRateLimitPerMinute)
	login.StartPurge(ctx, 5*time.Minute)

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(general))
	r.Use(d.Sesiones.Middleware())

	// ── Handlers ─────────────────────────────────────────────────────────────
	healthH := handler.NewHealthHandler(d.DB, d.Redis, d.Mail)
	authH := handler.NewAuthHandler(d.Auth, d.Sesiones)
	productosH := handler.NewProductosHandler(d.Productos)
	categoriasH := handler.NewCategoriasHandler(d.Categorias)
	pedidosH := handler.NewPedidosHandler(d.Pedidos)
	direccionesH := handler.NewDireccionesHandler(d.Direcciones)
	imagenesH := handler.NewImagenesHandler(d.Imagenes)

	reg := NewRegistry()
	for _, rt := range []Route{
		{Controller: "auth", Action: "login", Access: Public, Mutating: true, Limiter: login, Handler: authH.Login},
		{Controller: "auth", Action: "register", Access: Public, Mutating: true, Limiter: login, Handler: authH.Register},
		{Controller: "auth", Action: "logout", Access: Public, Mutating: true, Handler: authH.Logout},
		{Controller: "auth", Action: "getUser", Access: Authenticated, Handler: authH.GetUser},
		{Controller: "auth", Action: "updateProfile", Access: Customer, Mutating: true, Handler: authH.UpdateProfile},
		{Controller: "auth", Action: "changePassword", Access: Customer, Mutating: true, Limiter: login, Handler: authH.ChangePassword},

		{Controller: "product", Action: "getAll", Handler: productosH.GetAll},
		{Controller: "product", Action: "getFeatured", Handler: productosH.GetFeatured},
		{Controller: "product", Action: "getByCategory", Handler: productosH.GetByCategory},
		{Controller: "product", Action: "getById", Handler: productosH.GetByID},
		{Controller: "product", Action: "search", Handler: productosH.Search},
		{Controller: "product", Action: "create", Access: Admin, Mutating: true, Handler: productosH.Create},
		{Controller: "product", Action: "update", Access: Admin, Mutating: true, Handler: productosH.Update},
		{Controller: "product", Action: "delete", Access: Admin, Mutating: true, Handler: productosH.Delete},
		{Controller: "product", Action: "export", Access: Admin, Handler: productosH.Export},
		{Controller: "product", Action: "priceHistory", Access: Admin, Handler: productosH.PriceHistory},

		{Controller: "category", Action: "getAll", Handler: categoriasH.GetAll},
		{Controller: "category", Action: "getById", Handler: categoriasH.GetByID},
		{Controller: "category", Action: "create", Access: Admin, Mutating: true, Handler: categoriasH.Create},
		{Controller: "category", Action: "update", Access: Admin, Mutating: true, Handler: categoriasH.Update},
		{Controller: "category", Action: "checkDelete", Access: Admin, Handler: categoriasH.CheckDelete},
		{Controller: "category", Action: "delete", Access: Admin, Mutating: true, Handler: categoriasH.Delete},

		{Controller: "order", Action: "create", Access: Customer, Mutating: true, Handler: pedidosH.Create},
		{Controller: "order", Action: "getUserOrders", Access: Customer, Handler: pedidosH.GetUserOrders},
		{Controller: "order", Action: "getAllOrders", Access: Admin, Handler: pedidosH.GetAllOrders},
		{Controller: "order", Action: "getOrderDetails", Access: Authenticated, Handler: pedidosH.GetOrderDetails},
		{Controller: "order", Action: "updateStatus", Access: Admin, Mutating: true, Handler: pedidosH.UpdateStatus},
		{Controller: "order", Action: "getStats", Access: Admin, Handler: pedidosH.GetStats},
		{Controller: "order", Action: "export", Access: Admin, Handler: pedidosH.Export},

		{Controller: "address", Action: "getUserAddresses", Access: Customer, Handler: direccionesH.GetUserAddresses},
		{Controller: "address", Action: "getDefault", Access: Customer, Handler: direccionesH.GetDefault},
		{Controller: "address", Action: "create", Access: Customer, Mutating: true, Handler: direccionesH.Create},
		{Controller: "address", Action: "update", Access: Customer, Mutating: true, Handler: direccionesH.Update},
		{Controller: "address", Action: "delete", Access: Customer, Mutating: true, Handler: direccionesH.Delete},

		{Controller: "image", Action: "uploadProduct", Access: Admin, Mutating: true, Handler: imagenesH.UploadProduct},
		{Controller: "image", Action: "uploadCategory", Access: Admin, Mutating: true, Handler: imagenesH.UploadCategory},

		{Controller: "system", Action: "csrf", Handler: authH.CSRF},
	} {
		reg.Add(rt)
	}

	disp := NewDispatcher(reg, d.DB, healthH.Health)

	// ── Routes ───────────────────────────────────────────────────────────────
	r.GET("/api.php", disp.Handle)
	r.POST("/api.php", disp.Handle)
	r.GET("/health", healthH.Health)

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", disp.Alias("auth", "login"))
			auth.POST("/register", disp.Alias("auth", "register"))
			auth.POST("/logout", disp.Alias("auth", "logout"))
			auth.GET("/me", disp.Alias("auth", "getUser"))
			auth.POST("/profile", disp.Alias("auth", "updateProfile"))
			auth.POST("/password", disp.Alias("auth", "changePassword"))
			auth.GET("/csrf", disp.Alias("system", "csrf"))
		}

		api.GET("/products", disp.Alias("product", "getAll"))
		api.GET("/products/featured", disp.Alias("product", "getFeatured"))
		api.GET("/products/by-category", disp.Alias("product", "getByCategory"))
		api.GET("/products/detail", disp.Alias("product", "getById"))
		api.GET("/products/search", disp.Alias("product", "search"))

		api.GET("/categories", disp.Alias("category", "getAll"))
		api.GET("/categories/detail", disp.Alias("category", "getById"))

		api.POST("/orders", disp.Alias("order", "create"))
		api.GET("/orders", disp.Alias("order", "getUserOrders"))
		api.GET("/orders/detail", disp.Alias("order", "getOrderDetails"))

		api.GET("/addresses", disp.Alias("address", "getUserAddresses"))
		api.GET("/addresses/default", disp.Alias("address", "getDefault"))
		api.POST("/addresses", disp.Alias("address", "create"))
		api.POST("/addresses/update", disp.Alias("address", "update"))
		api.POST("/addresses/delete", disp.Alias("address", "delete"))

		admin := api.Group("/admin")
		{
			admin.POST("/products", disp.Alias("product", "create"))
			admin.POST("/products/update", disp.Alias("product", "update"))
			admin.POST("/products/delete", disp.Alias("product", "delete"))
			admin.GET("/products/export", disp.Alias("product", "export"))
			admin.GET("/products/price-history", disp.Alias("product", "priceHistory"))

			admin.POST("/categories", disp.Alias("category", "create"))
			admin.POST("/categories/update", disp.Alias("category", "update"))
			admin.GET("/categories/check-delete", disp.Alias("category", "checkDelete"))
			admin.POST("/categories/delete", disp.Alias("category", "delete"))

			admin.GET("/orders", disp.Alias("order", "getAllOrders"))
			admin.POST("/orders/update-status", disp.Alias("order", "updateStatus"))
			admin.GET("/orders/export", disp.Alias("order", "export"))
			admin.GET("/stats", disp.Alias("order", "getStats"))

			admin.POST("/images/product", disp.Alias("image", "uploadProduct"))
			admin.POST("/images/category", disp.Alias("image", "uploadCategory"))

			if d.Hub != nil {
				admin.GET("/orders/live", middleware.RequireAdmin(), d.Hub.ServeWS)
			}
		}
	}

	// Uploaded images
	r.Static("/img", filepath.Join(cfg.PublicDir, "img"))

	// Swagger UI, outside production only
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
