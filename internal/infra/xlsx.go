package infra

import (
	"fmt"
	"io"

	"github.com/gianlucacontedesign/terpenitos/internal/model"

	"github.com/tealeg/xlsx"
)

const xlsxFecha = "2006-01-02 15:04"

// EscribirProductosXLSX writes the full catalog, inactive rows included, as
// a single-sheet workbook.
func EscribirProductosXLSX(w io.Writer, productos []model.Producto) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Productos")
	if err != nil {
		return fmt.Errorf("xlsx: crear hoja: %w", err)
	}
	agregarFila(sheet, "ID", "Nombre", "Categoría", "Precio", "Costo", "Stock", "Destacado", "Activo", "Creado")
	for _, p := range productos {
		categoria := ""
		if p.Categoria != nil {
			categoria = p.Categoria.Nombre
		}
		row := sheet.AddRow()
		row.AddCell().SetInt(int(p.ID))
		row.AddCell().SetString(p.Nombre)
		row.AddCell().SetString(categoria)
		precio, _ := p.Precio.Float64()
		row.AddCell().SetFloatWithFormat(precio, "0.00")
		costo, _ := p.Costo.Float64()
		row.AddCell().SetFloatWithFormat(costo, "0.00")
		row.AddCell().SetInt(p.Stock)
		row.AddCell().SetString(siNo(p.Destacado))
		row.AddCell().SetString(siNo(p.Activo))
		row.AddCell().SetString(p.CreatedAt.Format(xlsxFecha))
	}
	return file.Write(w)
}

// EscribirPedidosXLSX writes one row per order. Usuario should be preloaded.
func EscribirPedidosXLSX(w io.Writer, pedidos []model.Pedido) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Pedidos")
	if err != nil {
		return fmt.Errorf("xlsx: crear hoja: %w", err)
	}
	agregarFila(sheet, "ID", "Cliente", "Email", "Estado", "Total", "Dirección", "Teléfono", "Fecha")
	for _, p := range pedidos {
		var nombre, email string
		if p.Usuario != nil {
			nombre, email = p.Usuario.Nombre, p.Usuario.Email
		}
		row := sheet.AddRow()
		row.AddCell().SetInt(int(p.ID))
		row.AddCell().SetString(nombre)
		row.AddCell().SetString(email)
		row.AddCell().SetString(p.Estado)
		total, _ := p.Total.Float64()
		row.AddCell().SetFloatWithFormat(total, "0.00")
		row.AddCell().SetString(p.DireccionEnvio)
		row.AddCell().SetString(p.Telefono)
		row.AddCell().SetString(p.CreatedAt.Format(xlsxFecha))
	}
	return file.Write(w)
}

func agregarFila(sheet *xlsx.Sheet, valores ...string) {
	row := sheet.AddRow()
	for _, v := range valores {
		row.AddCell().SetString(v)
	}
}

func siNo(b bool) string {
	if b {
		return "Sí"
	}
	return "No"
}
