package dto

import "strconv"

type LoginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RegistroRequest struct {
	Name     string `json:"name"     validate:"required,max=100"`
	Email    string `json:"email"    validate:"required,email,max=150"`
	Phone    string `json:"phone"    validate:"required,max=30"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type ActualizarPerfilRequest struct {
	Name  string `json:"name"  validate:"required,max=100"`
	Phone string `json:"phone" validate:"max=30"`
}

type CambiarPasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=6,max=72"`
}

// UsuarioResponse is the session user as seen by the client. ID is "admin"
// for the administrator and the numeric user id otherwise.
type UsuarioResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	IsAdmin bool   `json:"is_admin"`
}

// Identidad is the authenticated principal carried by a session.
// The administrator has EsAdmin set and UsuarioID zero.
type Identidad struct {
	UsuarioID uint   `json:"uid,omitempty"`
	Nombre    string `json:"name"`
	Email     string `json:"email"`
	Telefono  string `json:"phone,omitempty"`
	EsAdmin   bool   `json:"adm,omitempty"`
}

// Response shapes the identity the way the client expects it.
func (i *Identidad) Response() UsuarioResponse {
	id := "admin"
	if !i.EsAdmin {
		id = strconv.FormatUint(uint64(i.UsuarioID), 10)
	}
	return UsuarioResponse{ID: id, Name: i.Nombre, Email: i.Email, Phone: i.Telefono, IsAdmin: i.EsAdmin}
}
