package handler

import (
	"github.com/gianlucacontedesign/terpenitos/internal/service"

	"github.com/gin-gonic/gin"
)

type ImagenesHandler struct{ svc service.ImagenService }

func NewImagenesHandler(svc service.ImagenService) *ImagenesHandler {
	return &ImagenesHandler{svc: svc}
}

func (h *ImagenesHandler) UploadProduct(c *gin.Context)  { h.subir(c, service.DestinoProductos) }
func (h *ImagenesHandler) UploadCategory(c *gin.Context) { h.subir(c, service.DestinoCategorias) }

func (h *ImagenesHandler) subir(c *gin.Context, destino string) {
	fh, err := c.FormFile("image")
	if err != nil {
		respondError(c, service.ErrImagenRequerida, "")
		return
	}
	resp, err := h.svc.Guardar(c.Request.Context(), destino, fh)
	if err != nil {
		respondError(c, err, "Error al guardar la imagen")
		return
	}
	ok(c, gin.H{"message": "Imagen subida exitosamente", "filename": resp.Filename, "path": resp.Path})
}
