package usecase

import (
	"context"
	"errors"
	"time"

	"transit-booking/internal/data/entity"
	"transit-booking/internal/data/repository"
	"transit-booking/internal/dto/request"
	"transit-booking/pkg/metrics"
	"transit-booking/pkg/telemetry"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type RedeemInput struct {
	Credential string
	ScannerID  uuid.UUID
	VehicleID  uuid.UUID
	// RouteID is required for card credentials, whose fare depends on the route.
	RouteID *uuid.UUID
}

type RedemptionResult struct {
	Scan    *entity.TicketScan
	Booking *entity.Booking
	Card    *entity.Card
	Fare    *Fare
	Balance decimal.Decimal
}

type RedemptionService interface {
	Redeem(ctx context.Context, in RedeemInput) (*RedemptionResult, error)
	ScanHistory(ctx context.Context, req *request.ScanHistoryRequest) ([]*entity.TicketScan, int64, error)
}

type redemptionService struct {
	repo        *repository.Repository
	credentials CredentialService
	bookings    *bookingService
	cards       *cardService
	fares       FareEngine
	now         func() time.Time
	log         *zap.Logger
}

func newRedemptionService(
	repo *repository.Repository,
	credentials CredentialService,
	bookings *bookingService,
	cards *cardService,
	fares FareEngine,
	now func() time.Time,
	log *zap.Logger,
) *redemptionService {
	return &redemptionService{
		repo:        repo,
		credentials: credentials,
		bookings:    bookings,
		cards:       cards,
		fares:       fares,
		now:         now,
		log:         log.With(zap.String("service", "redemption")),
	}
}

func (s *redemptionService) Redeem(ctx context.Context, in RedeemInput) (result *RedemptionResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "redemption.Redeem", attribute.String("vehicle_id", in.VehicleID.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	switch {
	case in.Credential == "":
		return nil, invalid("credential", "is required")
	case in.ScannerID == uuid.Nil:
		return nil, invalid("scanner_id", "is required")
	case in.VehicleID == uuid.Nil:
		return nil, invalid("vehicle_id", "is required")
	}

	cred, err := s.credentials.Verify(in.Credential)
	if err != nil {
		outcome := entity.ScanOutcomeInvalid
		var ce *CredentialInvalidError
		if errors.As(err, &ce) && ce.Reason == ReasonExpired {
			outcome = entity.ScanOutcomeExpired
		}
		s.record(ctx, s.scan(in, entity.ScanTypeBoarding, outcome, err.Error()))
		return nil, err
	}

	if cred.Type == CredentialCard {
		return s.redeemCardFare(ctx, in, cred)
	}
	return s.redeemTicket(ctx, in, cred)
}

func (s *redemptionService) redeemTicket(ctx context.Context, in RedeemInput, cred *Credential) (*RedemptionResult, error) {
	bookingID, err := uuid.Parse(cred.SubjectID)
	if err != nil {
		s.record(ctx, s.scan(in, entity.ScanTypeBoarding, entity.ScanOutcomeInvalid, "credential subject is not a booking id"))
		return nil, &CredentialInvalidError{Reason: ReasonMalformed}
	}

	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, infra("find booking", err)
	}
	if booking == nil {
		// The scan cannot reference a booking that does not exist.
		s.record(ctx, s.scan(in, entity.ScanTypeBoarding, entity.ScanOutcomeInvalid, "unknown booking "+bookingID.String()))
		return nil, bookingNotFound(bookingID)
	}

	reject := func(outcome entity.ScanOutcome, notes string, err error) (*RedemptionResult, error) {
		scan := s.scan(in, entity.ScanTypeBoarding, outcome, notes)
		scan.BookingID = &booking.ID
		scan.RouteID = &booking.RouteID
		s.record(ctx, scan)
		return nil, err
	}

	switch {
	case booking.RiderID.String() != cred.RiderID:
		return reject(entity.ScanOutcomeInvalid, "rider does not match booking", &CredentialInvalidError{Reason: ReasonMalformed})
	case booking.Status == entity.BookingStatusCompleted:
		return reject(entity.ScanOutcomeAlreadyUsed, "ticket already used", ErrAlreadyRedeemed)
	case booking.Status != entity.BookingStatusConfirmed || booking.PaymentStatus != entity.BookingPaymentPaid:
		return reject(entity.ScanOutcomeInvalid, "booking is "+string(booking.Status),
			&InvalidStateError{Operation: "redeem", Status: string(booking.Status)})
	}

	scan := s.scan(in, entity.ScanTypeBoarding, entity.ScanOutcomeSuccess, "")
	scan.BookingID = &booking.ID
	scan.RouteID = &booking.RouteID

	var completed *entity.Booking
	err = s.repo.Atomic(ctx, func(tx *repository.Repository) error {
		var err error
		completed, err = s.bookings.completeTx(ctx, tx, booking.ID)
		if err != nil {
			return err
		}
		if err := tx.TicketScan.Create(ctx, scan); err != nil {
			return infra("create ticket scan", err)
		}
		return nil
	})

	var state *InvalidStateError
	switch {
	case errors.As(err, &state) && state.Status == string(entity.BookingStatusCompleted):
		return reject(entity.ScanOutcomeAlreadyUsed, "ticket already used", ErrAlreadyRedeemed)
	case errors.As(err, &state):
		return reject(entity.ScanOutcomeInvalid, "booking is "+state.Status,
			&InvalidStateError{Operation: "redeem", Status: state.Status})
	case err != nil:
		return nil, classify("redeem ticket", err)
	}

	metrics.Redemptions.WithLabelValues(string(entity.ScanTypeBoarding), string(entity.ScanOutcomeSuccess)).Inc()
	metrics.BookingTransitions.WithLabelValues(string(entity.BookingStatusCompleted)).Inc()
	s.log.Info("Ticket redeemed",
		zap.String("booking_id", booking.ID.String()),
		zap.String("booking_reference", booking.BookingReference),
		zap.String("vehicle_id", in.VehicleID.String()),
	)
	return &RedemptionResult{Scan: scan, Booking: completed}, nil
}

func (s *redemptionService) redeemCardFare(ctx context.Context, in RedeemInput, cred *Credential) (*RedemptionResult, error) {
	cardID, err := uuid.Parse(cred.SubjectID)
	if err != nil {
		s.record(ctx, s.scan(in, entity.ScanTypeCardFare, entity.ScanOutcomeInvalid, "credential subject is not a card id"))
		return nil, &CredentialInvalidError{Reason: ReasonMalformed}
	}

	card, err := s.repo.Card.FindByID(ctx, cardID)
	if err != nil {
		return nil, infra("find card", err)
	}
	if card == nil {
		s.record(ctx, s.scan(in, entity.ScanTypeCardFare, entity.ScanOutcomeInvalid, "unknown card "+cardID.String()))
		return nil, cardNotFound(cardID)
	}

	reject := func(outcome entity.ScanOutcome, notes string, err error) (*RedemptionResult, error) {
		scan := s.scan(in, entity.ScanTypeCardFare, outcome, notes)
		scan.CardID = &card.ID
		s.record(ctx, scan)
		return nil, err
	}

	if card.RiderID.String() != cred.RiderID {
		return reject(entity.ScanOutcomeInvalid, "rider does not match card", &CredentialInvalidError{Reason: ReasonMalformed})
	}
	if in.RouteID == nil {
		return reject(entity.ScanOutcomeInvalid, "route is required for card fares", invalid("route_id", "is required for card credentials"))
	}

	route, err := s.repo.Route.FindByID(ctx, *in.RouteID)
	if err != nil {
		return nil, infra("find route", err)
	}
	if route == nil {
		return reject(entity.ScanOutcomeInvalid, "unknown route", routeNotFound(*in.RouteID))
	}

	fare, err := s.fares.Compute(route.PricePerSeat, 1, route.DiscountPercent)
	if err != nil {
		return nil, err
	}

	scan := s.scan(in, entity.ScanTypeCardFare, entity.ScanOutcomeSuccess, "")
	scan.CardID = &card.ID

	balance := card.Balance
	err = s.repo.Atomic(ctx, func(tx *repository.Repository) error {
		if fare.Total.IsPositive() {
			txn, err := s.cards.applyTx(ctx, tx, cardOp{
				CardID:      card.ID,
				Type:        entity.CardTransactionDebit,
				Amount:      fare.Total,
				RouteID:     &route.ID,
				Reference:   scan.ID.String(),
				Description: "Fare " + route.Origin + " - " + route.Destination,
			})
			if err != nil {
				return err
			}
			balance = txn.NewBalance
		}
		if err := tx.TicketScan.Create(ctx, scan); err != nil {
			return infra("create ticket scan", err)
		}
		return nil
	})
	metrics.CardOperations.WithLabelValues(string(entity.CardTransactionDebit), cardResult(err)).Inc()

	var short *InsufficientBalanceError
	switch {
	case errors.As(err, &short):
		return reject(entity.ScanOutcomeInsufficientBalance, short.Error(), err)
	case errors.Is(err, ErrCardInactive):
		return reject(entity.ScanOutcomeInvalid, "card is not active", err)
	case err != nil:
		return nil, classify("redeem card fare", err)
	}

	metrics.Redemptions.WithLabelValues(string(entity.ScanTypeCardFare), string(entity.ScanOutcomeSuccess)).Inc()
	s.log.Info("Card fare charged",
		zap.String("card_id", card.ID.String()),
		zap.String("route_id", route.ID.String()),
		zap.String("amount", fare.Total.StringFixed(2)),
		zap.String("balance", balance.StringFixed(2)),
	)

	card.Balance = balance
	return &RedemptionResult{Scan: scan, Card: card, Fare: &fare, Balance: balance}, nil
}

func (s *redemptionService) scan(in RedeemInput, scanType entity.ScanType, outcome entity.ScanOutcome, notes string) *entity.TicketScan {
	now := s.now()
	vehicleID := in.VehicleID
	return &entity.TicketScan{
		BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: now},
		ScannerID:  in.ScannerID,
		VehicleID:  &vehicleID,
		RouteID:    in.RouteID,
		ScanType:   scanType,
		Outcome:    outcome,
		Notes:      notes,
		ScannedAt:  now,
	}
}

// record persists a rejected attempt outside any transaction.
func (s *redemptionService) record(ctx context.Context, scan *entity.TicketScan) {
	metrics.Redemptions.WithLabelValues(string(scan.ScanType), string(scan.Outcome)).Inc()
	s.log.Warn("Redemption rejected",
		zap.String("scan_type", string(scan.ScanType)),
		zap.String("outcome", string(scan.Outcome)),
		zap.String("notes", scan.Notes),
		zap.String("scanner_id", scan.ScannerID.String()),
	)

	if err := s.repo.TicketScan.Create(context.WithoutCancel(ctx), scan); err != nil {
		s.log.Error("Failed to record ticket scan", zap.Error(err))
	}
}

func (s *redemptionService) ScanHistory(ctx context.Context, req *request.ScanHistoryRequest) ([]*entity.TicketScan, int64, error) {
	if err := validateRequest(req); err != nil {
		return nil, 0, err
	}

	var filter repository.TicketScanFilter
	for _, f := range []struct {
		raw string
		dst **uuid.UUID
	}{
		{req.VehicleID, &filter.VehicleID},
		{req.ScannerID, &filter.ScannerID},
		{req.BookingID, &filter.BookingID},
	} {
		if f.raw == "" {
			continue
		}
		id, err := uuid.Parse(f.raw)
		if err != nil {
			return nil, 0, invalid("filter", "must be a valid UUID")
		}
		*f.dst = &id
	}

	scans, err := s.repo.TicketScan.Find(ctx, filter, req.Limit(), req.Offset())
	if err != nil {
		return nil, 0, infra("list ticket scans", err)
	}
	total, err := s.repo.TicketScan.Count(ctx, filter)
	if err != nil {
		return nil, 0, infra("count ticket scans", err)
	}
	return scans, total, nil
}
