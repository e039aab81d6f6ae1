package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"atmricky/internal/config"
	"atmricky/internal/dto"
	"atmricky/internal/model"
	"atmricky/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Error messages are shown verbatim by the dashboard.
var (
	ErrCamposRequeridos    = errors.New("username y displayName requeridos")
	ErrCredencialesFaltan  = errors.New("Usuario y PIN requeridos")
	ErrUsuarioExiste       = errors.New("Usuario ya existe")
	ErrUsuarioNoEncontrado = errors.New("Usuario no encontrado")
	ErrPINIncorrecto       = errors.New("PIN incorrecto")
	ErrUltimoDev           = errors.New("Debe quedar al menos un usuario con rol dev")
	ErrAutoEliminacion     = errors.New("No puedes eliminarte a ti mismo")
	ErrNadaQueActualizar   = errors.New("Nada que actualizar")
)

// MutationPublisher is told about every committed change to the users table.
type MutationPublisher interface {
	PublishMutation(ctx context.Context, source string)
}

type UsuarioService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	Listar(ctx context.Context) ([]dto.UsuarioResponse, error)
	Crear(ctx context.Context, req dto.CrearUsuarioRequest) error
	Actualizar(ctx context.Context, username string, req dto.ActualizarUsuarioRequest) error
	Eliminar(ctx context.Context, username, actor string) error
	// ActorFromToken returns the username embedded in a session token.
	ActorFromToken(token string) (string, error)
}

type usuarioService struct {
	repo repository.UsuarioRepository
	cfg  *config.Config
	pub  MutationPublisher
}

// NewUsuarioService wires the service. pub may be nil.
func NewUsuarioService(repo repository.UsuarioRepository, cfg *config.Config, pub MutationPublisher) UsuarioService {
	return &usuarioService{repo: repo, cfg: cfg, pub: pub}
}

func (s *usuarioService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	if req.Username == "" || req.Pin == "" {
		return nil, ErrCredencialesFaltan
	}
	user, err := s.repo.FindByUsername(ctx, req.Username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUsuarioNoEncontrado
	}
	if err != nil {
		return nil, err
	}
	stored := ""
	if user.Pin != nil {
		stored = *user.Pin
	}
	if !pinMatches(stored, req.Pin) {
		return nil, ErrPINIncorrecto
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		OK:          true,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Role:        user.Role,
		Token:       token,
	}, nil
}

func (s *usuarioService) Listar(ctx context.Context) ([]dto.UsuarioResponse, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.UsuarioResponse, len(users))
	for i, u := range users {
		resp[i] = dto.UsuarioResponse{Username: u.Username, DisplayName: u.DisplayName, Role: u.Role}
	}
	return resp, nil
}

func (s *usuarioService) Crear(ctx context.Context, req dto.CrearUsuarioRequest) error {
	if req.Username == "" || req.DisplayName == "" {
		return ErrCamposRequeridos
	}
	role := model.RolUser
	if req.Role != nil && *req.Role != "" {
		role = *req.Role
	}
	// An empty PIN on creation is stored as NULL.
	var pin *string
	if req.Pin != nil && *req.Pin != "" {
		var err error
		if pin, err = s.storablePin(req.Pin); err != nil {
			return err
		}
	}

	err := s.repo.Transaction(ctx, func(tx repository.UsuarioRepository) error {
		if _, err := tx.FindByUsername(ctx, req.Username); err == nil {
			return ErrUsuarioExiste
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return tx.Create(ctx, &model.Usuario{
			Username:    req.Username,
			DisplayName: req.DisplayName,
			Pin:         pin,
			Role:        role,
		})
	})
	if err != nil {
		return err
	}
	s.publish(ctx)
	return nil
}

func (s *usuarioService) Actualizar(ctx context.Context, username string, req dto.ActualizarUsuarioRequest) error {
	err := s.repo.Transaction(ctx, func(tx repository.UsuarioRepository) error {
		current, err := tx.FindByUsername(ctx, username)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUsuarioNoEncontrado
		}
		if err != nil {
			return err
		}

		// Demoting the last dev would leave nobody able to administer users.
		if req.Role != nil && current.IsDev() && *req.Role != model.RolDev {
			devs, err := tx.CountByRole(ctx, model.RolDev)
			if err != nil {
				return err
			}
			if devs <= 1 {
				return ErrUltimoDev
			}
		}

		if req.Empty() {
			return ErrNadaQueActualizar
		}
		fields := make(map[string]any, 3)
		if req.DisplayName != nil {
			fields["displayName"] = *req.DisplayName
		}
		if req.Pin != nil {
			pin, err := s.storablePin(req.Pin)
			if err != nil {
				return err
			}
			fields["pin"] = *pin
		}
		if req.Role != nil {
			fields["role"] = *req.Role
		}
		return tx.Update(ctx, username, fields)
	})
	if err != nil {
		return err
	}
	s.publish(ctx)
	return nil
}

func (s *usuarioService) Eliminar(ctx context.Context, username, actor string) error {
	err := s.repo.Transaction(ctx, func(tx repository.UsuarioRepository) error {
		target, err := tx.FindByUsername(ctx, username)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUsuarioNoEncontrado
		}
		if err != nil {
			return err
		}
		if actor != "" && actor == username {
			return ErrAutoEliminacion
		}
		if target.IsDev() {
			devs, err := tx.CountByRole(ctx, model.RolDev)
			if err != nil {
				return err
			}
			if devs <= 1 {
				return ErrUltimoDev
			}
		}
		return tx.Delete(ctx, username)
	})
	if err != nil {
		return err
	}
	s.publish(ctx)
	return nil
}

func (s *usuarioService) ActorFromToken(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return "", errors.New("token invalido o expirado")
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("claims invalidos")
	}
	username, ok := claims["username"].(string)
	if !ok || username == "" {
		return "", errors.New("token mal formado")
	}
	return username, nil
}

func (s *usuarioService) generateToken(user *model.Usuario) (string, error) {
	hours := s.cfg.JWTExpirationHours
	if hours <= 0 {
		hours = 12
	}
	claims := jwt.MapClaims{
		"username": user.Username,
		"role":     user.Role,
		"exp":      time.Now().Add(time.Duration(hours) * time.Hour).Unix(),
		"iat":      time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// storablePin returns the value to persist for pin: nil stays nil, and with
// HASH_PINS enabled a non-empty PIN is replaced by its bcrypt hash.
func (s *usuarioService) storablePin(pin *string) (*string, error) {
	if pin == nil {
		return nil, nil
	}
	if !s.cfg.HashPins || *pin == "" {
		p := *pin
		return &p, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(*pin), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	h := string(hash)
	return &h, nil
}

// pinMatches accepts both legacy plaintext rows and bcrypt rows.
func pinMatches(stored, given string) bool {
	if strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(given)) == nil
	}
	return stored == given
}

func (s *usuarioService) publish(ctx context.Context) {
	if s.pub != nil {
		s.pub.PublishMutation(ctx, "usuarios")
	}
}
