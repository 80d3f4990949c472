package http

import (
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/courier-billing/internal/application/dto"
	"github.com/jhoicas/courier-billing/internal/domain"
	"github.com/jhoicas/courier-billing/pkg/logger"
)

var validate = validator.New()

// errorMapping sentinel -> status HTTP y código estable para el cliente.
var errorMapping = []struct {
	sentinel error
	status   int
	code     string
}{
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrInvalidStateTransition, fiber.StatusConflict, "INVALID_TRANSITION"},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT"},
	{domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE"},
	{domain.ErrBillingInvariant, fiber.StatusUnprocessableEntity, "BILLING_INVARIANT"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrExternalCollaborator, fiber.StatusBadGateway, "UPSTREAM_FAILURE"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
}

// responder traduce errores de los casos de uso a respuestas JSON.
type responder struct {
	log *logger.Logger
}

func (r responder) fail(c *fiber.Ctx, err error) error {
	for _, m := range errorMapping {
		if errors.Is(err, m.sentinel) {
			msg := domain.Hint(err)
			if msg == "" {
				msg = m.sentinel.Error()
			}
			if m.status >= fiber.StatusInternalServerError {
				r.log.Warn().Err(err).Str("path", c.Path()).Msg("fallo de colaborador externo")
			}
			return c.Status(m.status).JSON(dto.ErrorResponse{Code: m.code, Message: msg})
		}
	}
	r.log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("error interno")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}

// bind parsea el cuerpo y valida las etiquetas validate. El error va marcado como ErrInvalidInput.
func bind(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return domain.WrapError(err, "body").WithHint("cuerpo inválido").Mark(domain.ErrInvalidInput)
	}
	if err := validate.Struct(out); err != nil {
		return domain.WrapError(err, "validación").WithHint(validationMessage(err)).Mark(domain.ErrInvalidInput)
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "datos inválidos"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Namespace()+": "+fe.Tag())
	}
	return "datos inválidos: " + strings.Join(parts, ", ")
}

func pageFromQuery(c *fiber.Ctx) dto.PageRequest {
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	if limit > 100 {
		limit = 100
	}
	return dto.PageRequest{Limit: limit, Offset: offset}
}

// timeQuery acepta RFC3339 o yyyy-MM-dd. Vacío = cero.
func timeQuery(c *fiber.Ctx, key string) (time.Time, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}
