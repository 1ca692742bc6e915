package service_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gianlucacontedesign/terpenitos/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader is enough for http.DetectContentType to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

// fileHeader builds a real *multipart.FileHeader by parsing a multipart body.
func fileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))
	return req.MultipartForm.File["image"][0]
}

func TestSlugArchivo(t *testing.T) {
	cases := map[string]string{
		"Panel LED 600W":    "panel-led-600w",
		"  Ñandú--Feliz!! ": "and-feliz",
		"foto_01":           "foto_01",
		"???":               "imagen",
		"../../etc/passwd":  "etc-passwd",
	}
	for in, want := range cases {
		assert.Equal(t, want, service.SlugArchivo(in), in)
	}
}

func TestImagen_GuardarAndCollisionSuffix(t *testing.T) {
	dir := t.TempDir()
	svc := service.NewImagenService(dir)

	first, err := svc.Guardar(context.Background(), service.DestinoProductos, fileHeader(t, "Panel LED.png", pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "panel-led.png", first.Filename)
	assert.Equal(t, "img/productos/panel-led.png", first.Path)

	second, err := svc.Guardar(context.Background(), service.DestinoProductos, fileHeader(t, "panel led.png", pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "panel-led_1.png", second.Filename)

	data, err := os.ReadFile(filepath.Join(dir, "img", "productos", "panel-led.png"))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)
}

func TestImagen_ExtensionFollowsContent(t *testing.T) {
	svc := service.NewImagenService(t.TempDir())
	res, err := svc.Guardar(context.Background(), service.DestinoCategorias, fileHeader(t, "logo.gif", pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "logo.png", res.Filename)
}

func TestImagen_Rejections(t *testing.T) {
	dir := t.TempDir()
	svc := service.NewImagenService(dir)
	ctx := context.Background()

	_, err := svc.Guardar(ctx, service.DestinoProductos, fileHeader(t, "script.png", []byte("<?php echo 1; ?>")))
	assert.ErrorIs(t, err, service.ErrImagenTipo)

	_, err = svc.Guardar(ctx, "../config", fileHeader(t, "a.png", pngHeader))
	assert.ErrorIs(t, err, service.ErrImagenDestino)

	_, err = svc.Guardar(ctx, service.DestinoProductos, nil)
	assert.ErrorIs(t, err, service.ErrImagenRequerida)

	big := append(append([]byte{}, pngHeader...), make([]byte, service.MaxImagenBytes)...)
	_, err = svc.Guardar(ctx, service.DestinoProductos, fileHeader(t, "big.png", big))
	assert.ErrorIs(t, err, service.ErrImagenTamano)

	entries, _ := os.ReadDir(filepath.Join(dir, "img", service.DestinoProductos))
	assert.Empty(t, entries, "rejected uploads leave no file behind")
}
