package infra

// pdf.go: order receipt generation with go-pdf/fpdf.
// A5 page with the shop header, order number and date, shipping data, the
// item table (product, quantity, unit price, subtotal) and the bold total.
// The file is written to storagePath/pedido_{id}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gianlucacontedesign/terpenitos/internal/model"

	"github.com/go-pdf/fpdf"
)

// GenerarComprobantePDF writes the receipt for p and returns its path.
// p.Items must be loaded.
func GenerarComprobantePDF(p *model.Pedido, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0o755); err != nil {
		return "", fmt.Errorf("pdf: crear directorio: %w", err)
	}
	filePath := filepath.Join(storagePath, fmt.Sprintf("pedido_%d.pdf", p.ID))

	pdf := fpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 20

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 8, "Terpenitos Growshop", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, tr("Comprobante de pedido"), "", 1, "C", false, 0, "")
	pdf.Ln(3)

	// ── Order info ───────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentW, 6, tr(fmt.Sprintf("Pedido N° %d", p.ID)), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, p.CreatedAt.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	if p.Usuario != nil {
		pdf.CellFormat(contentW, 5, tr("Cliente: "+p.Usuario.Nombre), "", 1, "L", false, 0, "")
	}
	pdf.MultiCell(contentW, 5, tr("Envío: "+p.DireccionEnvio), "", "L", false)
	pdf.CellFormat(contentW, 5, tr("Teléfono: "+p.Telefono), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	// ── Items ────────────────────────────────────────────────────────────────
	col1 := contentW * 0.46
	col2 := contentW * 0.12
	col3 := contentW * 0.21
	col4 := contentW * 0.21

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1, 6, "Producto", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 6, "Cant", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 6, "Precio", "B", 0, "R", false, 0, "")
	pdf.CellFormat(col4, 6, "Subtotal", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, item := range p.Items {
		nombre := []rune(item.NombreProducto)
		if len(nombre) > 30 {
			nombre = append(nombre[:29], '.')
		}
		pdf.CellFormat(col1, 6, tr(string(nombre)), "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 6, fmt.Sprintf("%d", item.Cantidad), "", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 6, "$"+item.Precio.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(col4, 6, "$"+item.Subtotal().StringFixed(2), "", 1, "R", false, 0, "")
	}

	// ── Total ────────────────────────────────────────────────────────────────
	pdf.Ln(2)
	pdf.Line(10, pdf.GetY(), pageW-10, pdf.GetY())
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(col1+col2+col3, 7, "TOTAL:", "", 0, "L", false, 0, "")
	pdf.CellFormat(col4, 7, "$"+p.Total.StringFixed(2), "", 1, "R", false, 0, "")

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.CellFormat(contentW, 4, tr("¡Gracias por tu compra!"), "", 1, "C", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: escribir archivo: %w", err)
	}
	return filePath, nil
}
