package service

import (
	"time"

	"github.com/gianlucacontedesign/terpenitos/internal/dto"
	"github.com/gianlucacontedesign/terpenitos/internal/model"
)

const fechaLayout = "2006-01-02 15:04:05"

func formatFecha(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(fechaLayout)
}

func productoToResponse(p *model.Producto) dto.ProductoResponse {
	costo := p.Costo
	resp := dto.ProductoResponse{
		ID:          p.ID,
		Name:        p.Nombre,
		Description: p.Descripcion,
		CategoryID:  p.CategoriaID,
		Price:       p.Precio,
		Cost:        &costo,
		Stock:       p.Stock,
		Image:       p.Imagen,
		IsFeatured:  p.Destacado,
		IsActive:    p.Activo,
		CreatedAt:   formatFecha(p.CreatedAt),
	}
	if p.Categoria != nil {
		resp.CategoryName = p.Categoria.Nombre
	}
	return resp
}

func categoriaToResponse(c *model.Categoria) dto.CategoriaResponse {
	return dto.CategoriaResponse{
		ID:        c.ID,
		Name:      c.Nombre,
		Image:     c.Imagen,
		IsActive:  c.Activo,
		CreatedAt: formatFecha(c.CreatedAt),
	}
}

func pedidoToResponse(p *model.Pedido) dto.PedidoResponse {
	resp := dto.PedidoResponse{
		ID:              p.ID,
		UserID:          p.UsuarioID,
		Status:          p.Estado,
		Total:           p.Total,
		ShippingAddress: p.DireccionEnvio,
		Phone:           p.Telefono,
		Notes:           p.Notas,
		CreatedAt:       formatFecha(p.CreatedAt),
		UpdatedAt:       formatFecha(p.UpdatedAt),
	}
	if p.Usuario != nil {
		resp.UserName = p.Usuario.Nombre
		resp.UserEmail = p.Usuario.Email
	}
	return resp
}

func pedidoItemToResponse(i *model.PedidoItem) dto.PedidoItemResponse {
	resp := dto.PedidoItemResponse{
		ProductID:   i.ProductoID,
		ProductName: i.NombreProducto,
		Quantity:    i.Cantidad,
		Price:       i.Precio,
		Subtotal:    i.Subtotal(),
	}
	if i.Producto != nil {
		resp.ProductImage = i.Producto.Imagen
	}
	return resp
}

func direccionToResponse(d *model.Direccion) dto.DireccionResponse {
	return dto.DireccionResponse{
		ID:           d.ID,
		Alias:        d.Alias,
		AddressLine1: d.Linea1,
		City:         d.Ciudad,
		PostalCode:   d.CodigoPostal,
		IsDefault:    d.Predeterminada,
		CreatedAt:    formatFecha(d.CreatedAt),
	}
}
