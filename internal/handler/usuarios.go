package handler

import (
	"net/http"

	"ventafacil/internal/apierror"
	"ventafacil/internal/dto"
	"ventafacil/internal/service"

	"github.com/gin-gonic/gin"
)

type UsuariosHandler struct{ svc service.UsuarioService }

func NewUsuariosHandler(svc service.UsuarioService) *UsuariosHandler {
	return &UsuariosHandler{svc: svc}
}

// Crear godoc
// @Summary Crear usuario
// @Description Los cajeros reciben los privilegios por defecto de su rol.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CrearUsuarioRequest true "Usuario"
// @Success 201 {object} apierror.Envelope[dto.UsuarioResponse]
// @Failure 409 {object} apierror.Envelope[any]
// @Router /api/users [post]
func (h *UsuariosHandler) Crear(c *gin.Context) {
	var req dto.CrearUsuarioRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Crear(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, apierror.OK(*resp, "Usuario creado"))
}

func (h *UsuariosHandler) Listar(c *gin.Context) {
	resp, err := h.svc.Listar(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apierror.OK(resp, ""))
}

func (h *UsuariosHandler) Obtener(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Obtener(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apierror.OK(*resp, ""))
}

func (h *UsuariosHandler) Actualizar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.ActualizarUsuarioRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Actualizar(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apierror.OK(*resp, "Usuario actualizado"))
}

// Desactivar godoc
// @Summary Desactivar usuario
// @Description Un administrador no puede desactivarse a sí mismo.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID del usuario"
// @Success 200 {object} apierror.Envelope[any]
// @Router /api/users/{id} [delete]
func (h *UsuariosHandler) Desactivar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Desactivar(c.Request.Context(), userID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apierror.Done("Usuario desactivado"))
}

// Reactivar godoc
// @Summary Reactivar usuario
// @Description Vuelve a permitir el acceso con los privilegios que ya tenía.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID del usuario"
// @Success 200 {object} apierror.Envelope[any]
// @Failure 404 {object} apierror.Envelope[any]
// @Router /api/users/{id} [patch]
func (h *UsuariosHandler) Reactivar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Reactivar(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apierror.Done("Usuario reactivado"))
}
