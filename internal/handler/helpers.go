package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gianlucacontedesign/terpenitos/internal/apierror"
	"github.com/gianlucacontedesign/terpenitos/internal/middleware"
	"github.com/gianlucacontedesign/terpenitos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// gt=0 and gte=0 work on money fields.
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	// Report fields by their JSON name.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
}

// bindAndValidate binds the JSON body and runs the validator tags.
// Returns false and writes the error response if validation fails.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON inválido"))
		return false
	}
	return validar(c, req)
}

// bindQuery is bindAndValidate for query-string parameters.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Parámetros inválidos"))
		return false
	}
	return validar(c, req)
}

func validar(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, apierror.New("Datos inválidos o incompletos"))
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusBadRequest, apierror.NewValidation(fields))
		return false
	}
	return true
}

// ok writes a 200 success envelope.
func ok(c *gin.Context, payload gin.H) {
	if payload == nil {
		payload = gin.H{}
	}
	payload["success"] = true
	c.JSON(http.StatusOK, payload)
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, apierror.New(msg))
}

// statusPorError maps domain errors to HTTP statuses. Errors absent from the
// table are internal.
var statusPorError = []struct {
	err    error
	status int
}{
	{service.ErrCredencialesInvalidas, http.StatusUnauthorized},
	{service.ErrAccesoDenegado, http.StatusForbidden},
	{service.ErrUsuarioNoEncontrado, http.StatusNotFound},
	{service.ErrProductoNoEncontrado, http.StatusNotFound},
	{service.ErrCategoriaNoEncontrada, http.StatusNotFound},
	{service.ErrPedidoNoEncontrado, http.StatusNotFound},
	{service.ErrDireccionNoEncontrada, http.StatusNotFound},
	{service.ErrEmailRegistrado, http.StatusBadRequest},
	{service.ErrPasswordActualIncorrecta, http.StatusBadRequest},
	{service.ErrPasswordLarga, http.StatusBadRequest},
	{service.ErrCategoriaDuplicada, http.StatusBadRequest},
	{service.ErrCarritoVacio, http.StatusBadRequest},
	{service.ErrCantidadInvalida, http.StatusBadRequest},
	{service.ErrEstadoInvalido, http.StatusBadRequest},
	{service.ErrStockInsuficiente, http.StatusBadRequest},
	{service.ErrImagenRequerida, http.StatusBadRequest},
	{service.ErrImagenTipo, http.StatusBadRequest},
	{service.ErrImagenTamano, http.StatusBadRequest},
	{service.ErrImagenDestino, http.StatusBadRequest},
}

// respondError writes the status and message for err. Unknown errors are
// logged and answered with fallback.
func respondError(c *gin.Context, err error, fallback string) {
	var precio *service.PrecioModificadoError
	if errors.As(err, &precio) {
		fail(c, http.StatusConflict, precio.Error())
		return
	}
	var stock *service.StockInsuficienteError
	if errors.As(err, &stock) {
		fail(c, http.StatusBadRequest, stock.Error())
		return
	}
	for _, m := range statusPorError {
		if errors.Is(err, m.err) {
			fail(c, m.status, m.err.Error())
			return
		}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		fail(c, http.StatusConflict, "El registro ya existe")
		return
	}

	log.Error().
		Err(err).
		Str("request_id", c.GetString(middleware.RequestIDKey)).
		Str("controller", c.Query("controller")).
		Str("action", c.Query("action")).
		Msg(fallback)
	fail(c, http.StatusInternalServerError, fallback)
}

// queryUint reads a required positive integer query parameter.
func queryUint(c *gin.Context, key string) (uint, bool) {
	v, err := strconv.ParseUint(c.Query(key), 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}

func identidad(c *gin.Context) *middleware.RequestContext {
	return middleware.GetRequestContext(c)
}
