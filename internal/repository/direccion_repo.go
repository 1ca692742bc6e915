package repository

import (
	"context"

	"github.com/gianlucacontedesign/terpenitos/internal/model"

	"gorm.io/gorm"
)

type DireccionRepository interface {
	ListByUsuario(ctx context.Context, usuarioID uint) ([]model.Direccion, error)
	FindByID(ctx context.Context, id uint) (*model.Direccion, error)
	FindDefault(ctx context.Context, usuarioID uint) (*model.Direccion, error)
	Delete(ctx context.Context, id uint) error

	// Used inside transactions; callers must pass the tx instance
	CreateTx(tx *gorm.DB, d *model.Direccion) error
	UpdateTx(tx *gorm.DB, d *model.Direccion) error
	// ClearDefaultTx unsets is_default on every address of the user except exceptID.
	ClearDefaultTx(tx *gorm.DB, usuarioID, exceptID uint) error
}

type direccionRepo struct{ db *gorm.DB }

func NewDireccionRepository(db *gorm.DB) DireccionRepository { return &direccionRepo{db: db} }

func (r *direccionRepo) ListByUsuario(ctx context.Context, usuarioID uint) ([]model.Direccion, error) {
	var list []model.Direccion
	err := r.db.WithContext(ctx).Where("user_id = ?", usuarioID).
		Order("is_default DESC, created_at DESC, id DESC").Find(&list).Error
	return list, err
}

func (r *direccionRepo) FindByID(ctx context.Context, id uint) (*model.Direccion, error) {
	var d model.Direccion
	if err := r.db.WithContext(ctx).First(&d, id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *direccionRepo) FindDefault(ctx context.Context, usuarioID uint) (*model.Direccion, error) {
	var d model.Direccion
	err := r.db.WithContext(ctx).Where("user_id = ? AND is_default = ?", usuarioID, true).First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *direccionRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.Direccion{}, id).Error
}

func (r *direccionRepo) CreateTx(tx *gorm.DB, d *model.Direccion) error {
	return tx.Create(d).Error
}

func (r *direccionRepo) UpdateTx(tx *gorm.DB, d *model.Direccion) error {
	return tx.Model(d).Select(
		"alias", "address_line1", "city", "postal_code", "is_default", "updated_at",
	).Updates(d).Error
}

func (r *direccionRepo) ClearDefaultTx(tx *gorm.DB, usuarioID, exceptID uint) error {
	return tx.Model(&model.Direccion{}).
		Where("user_id = ? AND id <> ? AND is_default = ?", usuarioID, exceptID, true).
		Update("is_default", false).Error
}
