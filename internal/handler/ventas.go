package handler

import (
	"net/http"

	"ventafacil/internal/apierror"
	"ventafacil/internal/dto"
	"ventafacil/internal/service"

	"github.com/gin-gonic/gin"
)

type VentasHandler struct{ svc service.VentaService }

func NewVentasHandler(svc service.VentaService) *VentasHandler { return &VentasHandler{svc: svc} }

// Registrar godoc
// @Summary      Registrar una venta
// @Description  Requiere un corte abierto. El total y el cambio se recalculan en el servidor.
// @Tags         sales
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.RegistrarVentaRequest true "Detalle de la venta"
// @Success      201  {object} apierror.Envelope[dto.VentaResponse]
// @Failure      409  {object} apierror.Envelope[any]
// @Failure      422  {object} apierror.Envelope[any]
// @Router       /api/sales [post]
func (h *VentasHandler) Registrar(c *gin.Context) {
	var req dto.RegistrarVentaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Registrar(c.Request.Context(), userID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, apierror.OK(*resp, "Venta registrada"))
}

// Listar godoc
// @Summary      Ventas del corte activo
// @Tags         sales
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object} apierror.Envelope[[]dto.VentaResponse]
// @Router       /api/sales [get]
func (h *VentasHandler) Listar(c *gin.Context) {
	resp, err := h.svc.Listar(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apierror.OK(resp, ""))
}

// Detalle godoc
// @Summary      Productos de una venta
// @Tags         sales
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     int  true "ID de la venta"
// @Success      200  {object} apierror.Envelope[[]dto.ItemVentaResponse]
// @Failure      404  {object} apierror.Envelope[any]
// @Router       /api/sales/{id} [get]
func (h *VentasHandler) Detalle(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Detalle(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apierror.OK(resp, ""))
}

// Cancelar godoc
// @Summary      Cancelar venta
// @Description  Registra una devolución en el corte activo. Solo administradores.
// @Tags         sales
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     int  true "ID de la venta"
// @Success      200  {object} apierror.Envelope[any]
// @Failure      409  {object} apierror.Envelope[any]
// @Router       /api/sales/{id} [delete]
func (h *VentasHandler) Cancelar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Cancelar(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apierror.Done("Venta cancelada"))
}
