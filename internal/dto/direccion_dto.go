package dto

type CrearDireccionRequest struct {
	Alias        string `json:"alias"         validate:"required,max=50"`
	AddressLine1 string `json:"address_line1" validate:"required,max=255"`
	City         string `json:"city"          validate:"required,max=100"`
	PostalCode   string `json:"postal_code"   validate:"required,max=20"`
	IsDefault    bool   `json:"is_default"`
}

type ActualizarDireccionRequest struct {
	ID uint `json:"id" validate:"required"`
	CrearDireccionRequest
}

type DireccionResponse struct {
	ID           uint   `json:"id"`
	Alias        string `json:"alias"`
	AddressLine1 string `json:"address_line1"`
	City         string `json:"city"`
	PostalCode   string `json:"postal_code"`
	IsDefault    bool   `json:"is_default"`
	CreatedAt    string `json:"created_at"`
}
