package handler

import (
	"errors"
	"net/http"

	"atmricky/internal/apierror"
	"atmricky/internal/dto"
	"atmricky/internal/middleware"
	"atmricky/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// UsuariosHandler serves /usuarios and /login. Errors are plain text.
type UsuariosHandler struct{ svc service.UsuarioService }

func NewUsuariosHandler(svc service.UsuarioService) *UsuariosHandler {
	return &UsuariosHandler{svc: svc}
}

func (h *UsuariosHandler) Listar(c *gin.Context) {
	resp, err := h.svc.Listar(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *UsuariosHandler) Crear(c *gin.Context) {
	var req dto.CrearUsuarioRequest
	if !bindText(c, &req, service.ErrCamposRequeridos.Error()) {
		return
	}
	if err := h.svc.Crear(c.Request.Context(), req); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.OKResponse{OK: true})
}

func (h *UsuariosHandler) Actualizar(c *gin.Context) {
	var req dto.ActualizarUsuarioRequest
	if !bindText(c, &req, service.ErrNadaQueActualizar.Error()) {
		return
	}
	if err := h.svc.Actualizar(c.Request.Context(), c.Param("username"), req); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OKResponse{OK: true})
}

func (h *UsuariosHandler) Eliminar(c *gin.Context) {
	if err := h.svc.Eliminar(c.Request.Context(), c.Param("username"), middleware.GetActor(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OKResponse{OK: true})
}

func (h *UsuariosHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindText(c, &req, service.ErrCredencialesFaltan.Error()) {
		return
	}
	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *UsuariosHandler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("path", c.FullPath()).
			Err(err).
			Msg("usuarios")
	}
	apierror.Text(c, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrCamposRequeridos),
		errors.Is(err, service.ErrCredencialesFaltan),
		errors.Is(err, service.ErrUltimoDev),
		errors.Is(err, service.ErrAutoEliminacion),
		errors.Is(err, service.ErrNadaQueActualizar):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUsuarioExiste):
		return http.StatusConflict
	case errors.Is(err, service.ErrUsuarioNoEncontrado):
		return http.StatusNotFound
	case errors.Is(err, service.ErrPINIncorrecto):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
