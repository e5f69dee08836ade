package handler

import (
	"errors"
	"strconv"

	"bomserver/internal/apperr"
	"bomserver/pkg/config"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var sessionCfg config.SessionConfig

// Init wires handler package state from configuration
func Init(cfg *config.Config) {
	sessionCfg = cfg.Session
}

// CustomValidator adapts go-playground/validator to Echo's Validator interface
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates the validator used for request payloads
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate implements echo.Validator
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return apperr.Wrap(apperr.ValidationError, "validation failed: "+err.Error(), err)
	}
	return nil
}

// respondError maps an error to its HTTP status and a JSON body. Internal
// errors are logged with full detail; the client only sees a generic message.
func respondError(c echo.Context, log *zap.Logger, err error) error {
	kind := apperr.KindOf(err)
	if kind == apperr.Internal {
		log.Error("Request failed", zap.Error(err))
	}
	return c.JSON(apperr.HTTPStatus(kind), echo.Map{"error": apperr.Message(err)})
}

// parseID parses the :id route parameter
func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, apperr.New(apperr.ValidationError, "invalid id")
	}
	return uint(id), nil
}

// translateDuplicate maps gorm duplicate-key errors onto ConstraintViolation
// and everything else onto Internal
func translateDuplicate(err error, message string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.New(apperr.ConstraintViolation, message)
	}
	return apperr.Wrap(apperr.Internal, "database error", err)
}
