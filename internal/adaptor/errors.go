package adaptor

import (
	"errors"
	"net/http"

	"transit-booking/internal/usecase"
	"transit-booking/pkg/utils"

	"go.uber.org/zap"
)

// handleServiceError maps the core's typed errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	var (
		validation *usecase.ValidationError
		notFound   *usecase.NotFoundError
		state      *usecase.InvalidStateError
		capacity   *usecase.CapacityExceededError
		balance    *usecase.InsufficientBalanceError
		credential *usecase.CredentialInvalidError
	)

	if usecase.IsBusinessError(err) {
		log.Warn(operation+" rejected", zap.Error(err), zap.String("operation", operation))
	}

	switch {
	case errors.As(err, &validation):
		var details any
		if len(validation.Fields) > 0 {
			details = validation.Fields
		} else if validation.Field != "" {
			details = map[string]string{validation.Field: validation.Message}
		}
		utils.ResponseBadRequest(w, err.Error(), details)

	case errors.As(err, &notFound):
		utils.ResponseNotFound(w, err.Error())

	case errors.Is(err, usecase.ErrForbidden):
		utils.ResponseForbidden(w, err.Error())

	case errors.As(err, &capacity):
		utils.ResponseConflict(w, err.Error(), map[string]int{"remaining_seats": capacity.Remaining})

	case errors.As(err, &state),
		errors.Is(err, usecase.ErrBookingExpired),
		errors.Is(err, usecase.ErrRequestInProgress),
		errors.Is(err, usecase.ErrRouteInactive),
		errors.Is(err, usecase.ErrNoVehicleAvailable):
		utils.ResponseConflict(w, err.Error(), nil)

	case errors.As(err, &credential):
		utils.ResponseUnprocessable(w, err.Error(), map[string]string{"reason": string(credential.Reason)})

	case errors.As(err, &balance):
		utils.ResponseUnprocessable(w, err.Error(), map[string]string{
			"balance": balance.Balance.StringFixed(2),
			"amount":  balance.Amount.StringFixed(2),
		})

	case errors.Is(err, usecase.ErrAlreadyRedeemed), errors.Is(err, usecase.ErrCardInactive):
		utils.ResponseUnprocessable(w, err.Error(), nil)

	default:
		log.Error("Failed to "+operation, zap.Error(err), zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
