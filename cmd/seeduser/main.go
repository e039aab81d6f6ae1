// cmd/seeduser/main.go: crea/actualiza el usuario dev inicial.
// Uso: SEED_USERNAME=ricky SEED_PIN=1234 go run ./cmd/seeduser
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"atmricky/internal/config"
	"atmricky/internal/dto"
	"atmricky/internal/infra"
	"atmricky/internal/model"
	"atmricky/internal/repository"
	"atmricky/internal/service"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect error")
	}

	username := envOr("SEED_USERNAME", "admin")
	displayName := envOr("SEED_DISPLAY_NAME", "Administrador")
	pin := envOr("SEED_PIN", "1234")
	role := model.RolDev

	svc := service.NewUsuarioService(repository.NewUsuarioRepository(db), cfg, nil)
	ctx := context.Background()

	err = svc.Crear(ctx, dto.CrearUsuarioRequest{
		Username:    username,
		DisplayName: displayName,
		Pin:         &pin,
		Role:        &role,
	})
	if errors.Is(err, service.ErrUsuarioExiste) {
		err = svc.Actualizar(ctx, username, dto.ActualizarUsuarioRequest{
			DisplayName: &displayName,
			Pin:         &pin,
			Role:        &role,
		})
	}
	if err != nil {
		log.Fatal().Err(err).Msg("seed error")
	}
	fmt.Printf("✅ Usuario '%s' (%s) creado/actualizado con PIN '%s'\n", username, role, pin)
}
