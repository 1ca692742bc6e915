package service

import (
	"errors"
	"fmt"
)

// Domain errors. Their messages are user facing; handlers map them to HTTP
// status codes and send Error() as the response message.
var (
	ErrCredencialesInvalidas    = errors.New("Credenciales inválidas")
	ErrEmailRegistrado          = errors.New("Este email ya está registrado")
	ErrPasswordActualIncorrecta = errors.New("Contraseña actual incorrecta")
	ErrUsuarioNoEncontrado      = errors.New("Usuario no encontrado")
	ErrPasswordLarga            = errors.New("La contraseña no puede superar los 72 bytes")

	ErrProductoNoEncontrado  = errors.New("Producto no encontrado")
	ErrCategoriaNoEncontrada = errors.New("Categoría no encontrada")
	ErrCategoriaDuplicada    = errors.New("Ya existe una categoría con este nombre")

	ErrCarritoVacio       = errors.New("El carrito está vacío")
	ErrCantidadInvalida   = errors.New("La cantidad de cada producto debe ser al menos 1")
	ErrPedidoNoEncontrado = errors.New("Pedido no encontrado")
	ErrEstadoInvalido     = errors.New("Estado de pedido inválido")

	ErrDireccionNoEncontrada = errors.New("Dirección no encontrada")
	ErrSinDireccionDefault   = errors.New("No hay dirección predeterminada")

	ErrAccesoDenegado = errors.New("Acceso denegado")

	ErrImagenRequerida = errors.New("No se recibió ninguna imagen")
	ErrImagenTipo      = errors.New("Tipo de archivo no permitido. Solo se aceptan JPG, PNG, GIF y WEBP")
	ErrImagenTamano    = errors.New("El archivo es demasiado grande. Máximo 5MB")
	ErrImagenDestino   = errors.New("Destino de imagen inválido")

	ErrStockInsuficiente = errors.New("stock insuficiente")
	ErrPrecioModificado  = errors.New("precio modificado")
)

// StockInsuficienteError names the product whose stock could not cover the
// requested quantity. It matches ErrStockInsuficiente with errors.Is.
type StockInsuficienteError struct {
	Producto string
}

func (e *StockInsuficienteError) Error() string {
	return "Stock insuficiente para el producto: " + e.Producto
}

func (e *StockInsuficienteError) Is(target error) bool { return target == ErrStockInsuficiente }

// PrecioModificadoError aborts a checkout whose validated price no longer
// matches the product row at commit time. It matches ErrPrecioModificado
// with errors.Is.
type PrecioModificadoError struct {
	Producto string
}

func (e *PrecioModificadoError) Error() string {
	return fmt.Sprintf("El precio de %s cambió, revisá tu carrito", e.Producto)
}

func (e *PrecioModificadoError) Is(target error) bool { return target == ErrPrecioModificado }
