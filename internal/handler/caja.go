package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"ventafacil/internal/apierror"
	"ventafacil/internal/dto"
	"ventafacil/internal/infra"
	"ventafacil/internal/service"

	"github.com/gin-gonic/gin"
)

type CajaHandler struct {
	svc          service.CajaService
	businessName string
	pdfDir       string
}

func NewCajaHandler(svc service.CajaService, businessName, pdfDir string) *CajaHandler {
	return &CajaHandler{svc: svc, businessName: businessName, pdfDir: pdfDir}
}

// Abrir godoc
// @Summary Abre el corte de caja
// @Description Solo puede haber un corte abierto en todo el sistema.
// @Tags balances
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.AbrirCajaRequest true "Fondo inicial"
// @Success 201 {object} apierror.Envelope[any]
// @Failure 409 {object} apierror.Envelope[any]
// @Router /api/balances [post]
func (h *CajaHandler) Abrir(c *gin.Context) {
	var req dto.AbrirCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.Abrir(c.Request.Context(), userID(c), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, apierror.Done("Caja abierta"))
}

// Activa godoc
// @Summary Corte activo con totales por método de pago
// @Description data es null cuando no hay corte abierto.
// @Tags balances
// @Produce json
// @Security BearerAuth
// @Success 200 {object} apierror.Envelope[dto.CorteActivo]
// @Router /api/balances [get]
func (h *CajaHandler) Activa(c *gin.Context) {
	resp, err := h.svc.Activa(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if resp == nil {
		c.JSON(http.StatusOK, apierror.Envelope[dto.CorteActivo]{Success: true, Message: "Sin corte activo"})
		return
	}
	c.JSON(http.StatusOK, apierror.OK(*resp, ""))
}

// Cerrar godoc
// @Summary Cierra el corte activo
// @Description El efectivo esperado se recalcula en el servidor: fondo + ventas en efectivo - egresos en efectivo - devoluciones.
// @Tags balances
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CerrarCajaRequest true "Efectivo contado"
// @Success 200 {object} apierror.Envelope[dto.CorteCerrado]
// @Failure 409 {object} apierror.Envelope[any]
// @Router /api/balances [put]
func (h *CajaHandler) Cerrar(c *gin.Context) {
	var req dto.CerrarCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Cerrar(c.Request.Context(), userID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apierror.OK(*resp, "Caja cerrada"))
}

// Historial returns the most recent sessions, newest first.
func (h *CajaHandler) Historial(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))
	if limit < 1 || limit > 100 {
		limit = 30
	}
	resp, err := h.svc.Historial(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apierror.OK(resp, ""))
}

// Reporte godoc
// @Summary Descarga el PDF del corte
// @Tags balances
// @Produce application/pdf
// @Security BearerAuth
// @Param id path int true "ID del corte"
// @Success 200 {file} file
// @Failure 404 {object} apierror.Envelope[any]
// @Failure 409 {object} apierror.Envelope[any]
// @Router /api/balances/{id}/report [get]
func (h *CajaHandler) Reporte(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	rep, err := h.svc.Reporte(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	path, err := infra.GenerateCortePDF(*rep, h.businessName, h.pdfDir)
	if err != nil {
		_ = c.Error(fmt.Errorf("corte pdf %d: %w", id, err))
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}
