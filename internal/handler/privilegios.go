package handler

import (
	"net/http"

	"ventafacil/internal/apierror"
	"ventafacil/internal/dto"
	"ventafacil/internal/middleware"
	"ventafacil/internal/permission"
	"ventafacil/internal/service"

	"github.com/gin-gonic/gin"
)

type PrivilegiosHandler struct{ svc service.PrivilegioService }

func NewPrivilegiosHandler(svc service.PrivilegioService) *PrivilegiosHandler {
	return &PrivilegiosHandler{svc: svc}
}

func (h *PrivilegiosHandler) Catalogo(c *gin.Context) {
	resp, err := h.svc.Catalogo(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apierror.OK(resp, ""))
}

// DeUsuario godoc
// @Summary Privilegios de un usuario
// @Description Cualquier usuario puede consultar los suyos; los de otros requieren ADMINISTRAR_USUARIOS.
// @Tags privileges
// @Produce json
// @Security BearerAuth
// @Param userId path int true "ID del usuario"
// @Success 200 {object} apierror.Envelope[dto.UserPrivileges]
// @Failure 403 {object} apierror.Envelope[any]
// @Router /api/privileges/{userId} [get]
func (h *PrivilegiosHandler) DeUsuario(c *gin.Context) {
	id, ok := paramID(c, "userId")
	if !ok {
		return
	}
	if id != userID(c) {
		set, ok := middleware.Permissions(c, h.svc)
		if !ok {
			return
		}
		if !set.Has(permission.AdministrarUsuarios) {
			c.JSON(http.StatusForbidden, apierror.New("Permisos insuficientes"))
			return
		}
	}
	resp, err := h.svc.DeUsuario(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apierror.OK(*resp, ""))
}

func (h *PrivilegiosHandler) Asignar(c *gin.Context) {
	var req dto.AsignarPrivilegioRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.Asignar(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apierror.Done("Privilegio asignado"))
}

func (h *PrivilegiosHandler) Quitar(c *gin.Context) {
	var req dto.AsignarPrivilegioRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.Quitar(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apierror.Done("Privilegio retirado"))
}
