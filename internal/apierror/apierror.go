// Package apierror provides the JSON envelope for every failed response.
// Internal details (stack traces, SQL errors) never reach the client; the
// message is always a user-facing sentence.
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func New(msg string) *APIError {
	return &APIError{Message: msg}
}

// ValidationError adds the offending fields and the failed rule for each.
type ValidationError struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Message: "Datos inválidos o incompletos", Fields: fields}
}

// Mensajes shared by the dispatcher and middleware.
const (
	MsgInterno        = "Error interno del servidor"
	MsgSinConexionDB  = "Error de conexión a la base de datos"
	MsgNoAutorizado   = "No autorizado"
	MsgNoAutenticado  = "No autenticado"
	MsgAccesoDenegado = "Acceso denegado"
	MsgMetodo         = "Método no permitido"
	MsgCSRF           = "Token CSRF inválido"
	MsgDemasiados     = "Demasiadas solicitudes, intentá nuevamente en unos minutos"
	MsgRutaRequerida  = "Controlador y acción requeridos"
	MsgSinControlador = "Controlador no encontrado"
	MsgSinAccion      = "Acción no encontrada"
)
