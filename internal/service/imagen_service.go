package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gianlucacontedesign/terpenitos/internal/dto"

	"github.com/rs/zerolog/log"
)

// Upload destinations, relative to <public dir>/img.
const (
	DestinoProductos  = "productos"
	DestinoCategorias = "categorias"
)

// MaxImagenBytes caps uploaded image size.
const MaxImagenBytes = 5 << 20

var extensionPorTipo = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type ImagenService interface {
	Guardar(ctx context.Context, destino string, fh *multipart.FileHeader) (*dto.ImagenSubidaResponse, error)
}

type imagenService struct {
	publicDir string
}

func NewImagenService(publicDir string) ImagenService {
	return &imagenService{publicDir: publicDir}
}

func (s *imagenService) Guardar(_ context.Context, destino string, fh *multipart.FileHeader) (*dto.ImagenSubidaResponse, error) {
	if destino != DestinoProductos && destino != DestinoCategorias {
		return nil, ErrImagenDestino
	}
	if fh == nil || fh.Size == 0 {
		return nil, ErrImagenRequerida
	}
	if fh.Size > MaxImagenBytes {
		return nil, ErrImagenTamano
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("abrir upload: %w", err)
	}
	defer src.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("leer upload: %w", err)
	}
	head = head[:n]
	ext, ok := extensionPorTipo[http.DetectContentType(head)]
	if !ok {
		return nil, ErrImagenTipo
	}

	dir := filepath.Join(s.publicDir, "img", destino)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("crear directorio: %w", err)
	}
	base := SlugArchivo(strings.TrimSuffix(fh.Filename, filepath.Ext(fh.Filename)))
	dst, nombre, err := reservarNombre(dir, base, ext)
	if err != nil {
		return nil, err
	}

	written, err := io.Copy(dst, io.LimitReader(io.MultiReader(bytes.NewReader(head), src), MaxImagenBytes+1))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && written > MaxImagenBytes {
		err = ErrImagenTamano
	}
	if err != nil {
		_ = os.Remove(filepath.Join(dir, nombre))
		if errors.Is(err, ErrImagenTamano) {
			return nil, err
		}
		return nil, fmt.Errorf("guardar imagen: %w", err)
	}

	log.Info().Str("destino", destino).Str("archivo", nombre).Int64("bytes", written).Msg("imagen subida")
	return &dto.ImagenSubidaResponse{
		Filename: nombre,
		Path:     path.Join("img", destino, nombre),
	}, nil
}

// reservarNombre claims base+ext, or base_1+ext, base_2+ext, ... creating the
// file exclusively so concurrent uploads never share a name.
func reservarNombre(dir, base, ext string) (*os.File, string, error) {
	for i := 0; i < 1000; i++ {
		nombre := base + ext
		if i > 0 {
			nombre = fmt.Sprintf("%s_%d%s", base, i, ext)
		}
		f, err := os.OpenFile(filepath.Join(dir, nombre), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, nombre, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("crear archivo: %w", err)
		}
	}
	return nil, "", fmt.Errorf("sin nombre libre para %q", base)
}

var (
	slugInvalido = regexp.MustCompile(`[^a-z0-9_-]+`)
	slugGuiones  = regexp.MustCompile(`-{2,}`)
)

// SlugArchivo lowercases name, replaces anything outside [a-z0-9_-] with a
// hyphen, collapses hyphen runs and trims them from both ends.
func SlugArchivo(name string) string {
	s := slugInvalido.ReplaceAllString(strings.ToLower(name), "-")
	s = strings.Trim(slugGuiones.ReplaceAllString(s, "-"), "-")
	if s == "" {
		return "imagen"
	}
	return s
}
