package repository

import (
	"context"
	"strings"

	"github.com/gianlucacontedesign/terpenitos/internal/model"

	"gorm.io/gorm"
)

type UsuarioRepository interface {
	Create(ctx context.Context, u *model.Usuario) error
	FindByID(ctx context.Context, id uint) (*model.Usuario, error)
	FindByEmail(ctx context.Context, email string) (*model.Usuario, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdatePerfil(ctx context.Context, id uint, nombre, telefono string) error
	UpdatePassword(ctx context.Context, id uint, hash string) error
}

type usuarioRepo struct{ db *gorm.DB }

func NewUsuarioRepository(db *gorm.DB) UsuarioRepository { return &usuarioRepo{db: db} }

func (r *usuarioRepo) Create(ctx context.Context, u *model.Usuario) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *usuarioRepo) FindByID(ctx context.Context, id uint) (*model.Usuario, error) {
	var u model.Usuario
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *usuarioRepo) FindByEmail(ctx context.Context, email string) (*model.Usuario, error) {
	var u model.Usuario
	err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *usuarioRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Usuario{}).
		Where("email = ?", strings.ToLower(email)).Count(&n).Error
	return n > 0, err
}

func (r *usuarioRepo) UpdatePerfil(ctx context.Context, id uint, nombre, telefono string) error {
	return r.db.WithContext(ctx).Model(&model.Usuario{ID: id}).
		Updates(map[string]interface{}{"name": nombre, "phone": telefono}).Error
}

func (r *usuarioRepo) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return r.db.WithContext(ctx).Model(&model.Usuario{ID: id}).Update("password", hash).Error
}
