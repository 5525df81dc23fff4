package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travel-booking/internal/logging"
	"github.com/iliyamo/travel-booking/internal/model"
	"github.com/iliyamo/travel-booking/internal/repository"
)

// writeError translates service errors into JSON responses.  Anything not
// recognised is logged and reported as a 500 without detail.
func writeError(c echo.Context, err error) error {
	var te *model.InvalidTransitionError
	switch {
	case errors.As(err, &te):
		allowed := te.Allowed
		if allowed == nil {
			allowed = []model.Status{}
		}
		return c.JSON(http.StatusConflict, echo.Map{
			"error":          te.Error(),
			"current_status": te.Current,
			"operation":      te.Operation,
			"allowed_states": allowed,
		})
	case errors.Is(err, model.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, model.ErrProductNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
	case errors.Is(err, model.ErrInvalidBookingInput):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, model.ErrInvalidPricing):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking already exists"})
	}
	logging.FromContext(c.Request().Context()).WithError(err).Error("unhandled error")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// bindAndValidate decodes the request body into dst and runs the echo
// validator.  It writes the 400 response itself and reports false on
// failure.
func bindAndValidate(c echo.Context, dst interface{}) (bool, error) {
	if err := c.Bind(dst); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if c.Echo().Validator == nil {
		return true, nil
	}
	if err := c.Validate(dst); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return true, nil
}
