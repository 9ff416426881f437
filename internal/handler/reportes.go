package handler

import (
	"net/http"

	"ventafacil/internal/apierror"
	"ventafacil/internal/service"

	"github.com/gin-gonic/gin"
)

type ReportesHandler struct{ svc service.ReporteService }

func NewReportesHandler(svc service.ReporteService) *ReportesHandler {
	return &ReportesHandler{svc: svc}
}

// InfoVentas godoc
// @Summary Transacciones y total vendido del día y del mes
// @Description Las ventas canceladas no cuentan.
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} apierror.Envelope[dto.InfoVentasResponse]
// @Router /api/reports/sales-info [get]
func (h *ReportesHandler) InfoVentas(c *gin.Context) {
	resp, err := h.svc.InfoVentas(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apierror.OK(*resp, ""))
}

// Ganancia godoc
// @Summary Ganancia del día y del mes
// @Description Suma de (precio - costo) x cantidad de las ventas activas.
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} apierror.Envelope[dto.GananciaResponse]
// @Router /api/reports/profit [get]
func (h *ReportesHandler) Ganancia(c *gin.Context) {
	resp, err := h.svc.Ganancia(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apierror.OK(*resp, ""))
}
