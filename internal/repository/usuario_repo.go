package repository

import (
	"context"
	"errors"

	"atmricky/internal/model"

	"gorm.io/gorm"
)

// ErrNotFound is returned when no user matches the given username.
var ErrNotFound = errors.New("registro no encontrado")

type UsuarioRepository interface {
	Create(ctx context.Context, u *model.Usuario) error
	FindByUsername(ctx context.Context, username string) (*model.Usuario, error)
	List(ctx context.Context) ([]model.Usuario, error)
	Update(ctx context.Context, username string, fields map[string]any) error
	Delete(ctx context.Context, username string) error
	CountByRole(ctx context.Context, role string) (int64, error)
	// Transaction runs fn against a repository bound to a single DB transaction.
	Transaction(ctx context.Context, fn func(tx UsuarioRepository) error) error
}

type usuarioRepo struct{ db *gorm.DB }

func NewUsuarioRepository(db *gorm.DB) UsuarioRepository { return &usuarioRepo{db: db} }

func (r *usuarioRepo) Create(ctx context.Context, u *model.Usuario) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *usuarioRepo) FindByUsername(ctx context.Context, username string) (*model.Usuario, error) {
	var u model.Usuario
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *usuarioRepo) List(ctx context.Context) ([]model.Usuario, error) {
	var users []model.Usuario
	err := r.db.WithContext(ctx).Order("username ASC").Find(&users).Error
	return users, err
}

func (r *usuarioRepo) Update(ctx context.Context, username string, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&model.Usuario{}).Where("username = ?", username).Updates(fields).Error
}

func (r *usuarioRepo) Delete(ctx context.Context, username string) error {
	return r.db.WithContext(ctx).Where("username = ?", username).Delete(&model.Usuario{}).Error
}

func (r *usuarioRepo) CountByRole(ctx context.Context, role string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Usuario{}).Where("role = ?", role).Count(&n).Error
	return n, err
}

func (r *usuarioRepo) Transaction(ctx context.Context, fn func(tx UsuarioRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&usuarioRepo{db: tx})
	})
}
