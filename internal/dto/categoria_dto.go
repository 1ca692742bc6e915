package dto

type CrearCategoriaRequest struct {
	Name  string `json:"name"  validate:"required,min=2,max=100"`
	Image string `json:"image" validate:"max=255"`
}

type ActualizarCategoriaRequest struct {
	ID uint `json:"id" validate:"required"`
	CrearCategoriaRequest
}

type CategoriaResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Image     string `json:"image"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

// VerificarEliminacionResponse tells the admin UI what deleting a category
// would take down with it.
type VerificarEliminacionResponse struct {
	HasProducts     bool                `json:"has_products"`
	ProductCount    int64               `json:"product_count"`
	OtherCategories []CategoriaResponse `json:"other_categories"`
}
