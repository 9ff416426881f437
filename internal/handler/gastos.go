package handler

import (
	"net/http"

	"ventafacil/internal/apierror"
	"ventafacil/internal/dto"
	"ventafacil/internal/service"

	"github.com/gin-gonic/gin"
)

type GastosHandler struct{ svc service.GastoService }

func NewGastosHandler(svc service.GastoService) *GastosHandler { return &GastosHandler{svc: svc} }

// Registrar godoc
// @Summary      Registrar un egreso
// @Description  Requiere un corte abierto. Solo los egresos en efectivo reducen el efectivo esperado.
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.RegistrarGastoRequest true "Egreso"
// @Success      201  {object} apierror.Envelope[dto.GastoResponse]
// @Failure      409  {object} apierror.Envelope[any]
// @Router       /api/expenses [post]
func (h *GastosHandler) Registrar(c *gin.Context) {
	var req dto.RegistrarGastoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Registrar(c.Request.Context(), userID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, apierror.OK(*resp, "Egreso registrado"))
}

func (h *GastosHandler) Listar(c *gin.Context) {
	resp, err := h.svc.Listar(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apierror.OK(resp, ""))
}

func (h *GastosHandler) Eliminar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Eliminar(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apierror.Done("Egreso eliminado"))
}
