package usecase

import (
	"context"
	"fmt"
	"time"

	"transit-booking/internal/data/repository"
	"transit-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Actor is the authenticated caller as seen by the core.
type Actor struct {
	ID      uuid.UUID
	IsAdmin bool
}

func (a Actor) owns(riderID uuid.UUID) bool {
	return a.IsAdmin || (a.ID != uuid.Nil && a.ID == riderID)
}

// IdempotencyStore remembers the outcome of keyed requests.
type IdempotencyStore interface {
	// Claim reserves key. When a previous request under key finished, its
	// result is returned with claimed=false. An empty result with
	// claimed=false means the earlier request is still running.
	Claim(ctx context.Context, key string) (result string, claimed bool, err error)
	Complete(ctx context.Context, key, result string) error
	Release(ctx context.Context, key string) error
}

// Dependencies are the collaborators the core talks to. Nil Idempotency
// disables keyed deduplication; nil Notifier falls back to logging.
type Dependencies struct {
	Notifier    Notifier
	Gateway     PaymentGateway
	Idempotency IdempotencyStore
}

type Service struct {
	Credential CredentialService
	Inventory  InventoryService
	Booking    BookingService
	Payment    PaymentService
	Card       CardService
	Redemption RedemptionService
}

func NewService(repo *repository.Repository, config *utils.Config, deps Dependencies, log *zap.Logger) (*Service, error) {
	loc, err := time.LoadLocation(config.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", config.App.Timezone, err)
	}

	fares, err := NewFareEngine(config.Booking.TaxRatePercent)
	if err != nil {
		return nil, err
	}

	credentials, err := NewCredentialService(config.Credential.Secret, log)
	if err != nil {
		return nil, err
	}

	if deps.Notifier == nil {
		deps.Notifier = NewLogNotifier(log)
	}

	policy := BookingPolicy{
		HoldWindow:     config.Booking.HoldWindow,
		MaxSeats:       config.Booking.MaxSeats,
		SweepBatchSize: config.Booking.SweepBatchSize,
		BookingTTL:     config.Credential.BookingTTL,
		ShortTripTTL:   config.Credential.ShortTripTTL,
		CardTTL:        config.Credential.CardTTL,
		Currency:       config.Gateway.Currency,
		Location:       loc,
	}

	return newService(repo, fares, credentials, deps, policy, time.Now, log), nil
}

func newService(repo *repository.Repository, fares FareEngine, credentials CredentialService, deps Dependencies, policy BookingPolicy, now func() time.Time, log *zap.Logger) *Service {
	inventory := newInventoryService(repo, now, log)
	cards := newCardService(repo, credentials, policy, now, log)
	bookings := newBookingService(repo, inventory, fares, credentials, cards, deps, policy, now, log)

	return &Service{
		Credential: credentials,
		Inventory:  inventory,
		Booking:    bookings,
		Payment:    newPaymentService(repo, bookings, cards, deps, policy, now, log),
		Card:       cards,
		Redemption: newRedemptionService(repo, credentials, bookings, cards, fares, now, log),
	}
}

func validateRequest(req any) error {
	errs := utils.ValidateStruct(req)
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Message: utils.FormatValidationErrors(errs), Fields: errs}
}
