package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"ventafacil/internal/apierror"
	"ventafacil/internal/middleware"
	"ventafacil/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	// Report fields by their JSON name.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string, len(ve))
		for _, fe := range ve {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// paramID parses a positive int64 path parameter, writing 400 otherwise.
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return 0, false
	}
	return id, true
}

// userID is the authenticated caller. Only valid behind JWTAuth.
func userID(c *gin.Context) int64 {
	if claims := middleware.GetClaims(c); claims != nil {
		return claims.UserID
	}
	return 0
}

// respondError maps domain errors to a status and envelope. Anything else is
// handed to the ErrorHandler middleware as an opaque 500.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrCredenciales):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrNoEncontrado):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrCorteActivo),
		errors.Is(err, service.ErrSinCorte),
		errors.Is(err, service.ErrVentaCancelada),
		errors.Is(err, service.ErrFueraDeCorte),
		errors.Is(err, service.ErrUsuarioDuplicado):
		status = http.StatusConflict
	case errors.Is(err, service.ErrTotalInvalido),
		errors.Is(err, service.ErrEfectivoInsuf),
		errors.Is(err, service.ErrAutoDesactivacion),
		errors.Is(err, service.ErrPrivilegioInvalido),
		errors.Is(err, service.ErrFechaInvalida),
		errors.Is(err, service.ErrMontoInvalido):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		return
	}
	c.JSON(status, apierror.New(err.Error()))
}
