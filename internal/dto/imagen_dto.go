package dto

// ImagenSubidaResponse points at the stored file, relative to the public dir.
type ImagenSubidaResponse struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
}
