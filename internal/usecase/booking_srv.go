package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"transit-booking/internal/data/entity"
	"transit-booking/internal/data/repository"
	"transit-booking/internal/dto/request"
	"transit-booking/pkg/metrics"
	"transit-booking/pkg/telemetry"
	"transit-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// BookingPolicy carries the configured lifecycle parameters.
type BookingPolicy struct {
	HoldWindow     time.Duration
	MaxSeats       int
	SweepBatchSize int
	BookingTTL     time.Duration
	ShortTripTTL   time.Duration
	CardTTL        time.Duration
	Currency       string
	Location       *time.Location
}

const (
	fullRefundNotice  = 24 * time.Hour
	fullRefundPercent = 100
	lateRefundPercent = 50
)

// PaymentProof is the evidence a payment collaborator settled the booking total.
type PaymentProof struct {
	Method    entity.PaymentMethod
	Reference string
	Amount    decimal.Decimal
}

type CancellationResult struct {
	Booking       *entity.Booking
	RefundAmount  decimal.Decimal
	RefundPercent int
}

type BookingService interface {
	Create(ctx context.Context, actor Actor, req *request.CreateBookingRequest) (*entity.Booking, error)
	ConfirmPayment(ctx context.Context, bookingID uuid.UUID, proof PaymentProof) (*entity.Booking, error)
	Cancel(ctx context.Context, actor Actor, bookingID uuid.UUID) (*CancellationResult, error)
	MarkCompleted(ctx context.Context, bookingID uuid.UUID) (*entity.Booking, error)
	ExpirePending(ctx context.Context) (int, error)

	Get(ctx context.Context, actor Actor, bookingID uuid.UUID) (*entity.Booking, error)
	GetByReference(ctx context.Context, actor Actor, reference string) (*entity.Booking, error)
	ListForRider(ctx context.Context, actor Actor, page request.PaginatedRequest) ([]*entity.Booking, int64, error)
}

type bookingService struct {
	repo        *repository.Repository
	inventory   InventoryService
	fares       FareEngine
	credentials CredentialService
	cards       *cardService
	notifier    Notifier
	idempotency IdempotencyStore
	policy      BookingPolicy
	now         func() time.Time
	log         *zap.Logger
}

func newBookingService(
	repo *repository.Repository,
	inventory InventoryService,
	fares FareEngine,
	credentials CredentialService,
	cards *cardService,
	deps Dependencies,
	policy BookingPolicy,
	now func() time.Time,
	log *zap.Logger,
) *bookingService {
	return &bookingService{
		repo:        repo,
		inventory:   inventory,
		fares:       fares,
		credentials: credentials,
		cards:       cards,
		notifier:    deps.Notifier,
		idempotency: deps.Idempotency,
		policy:      policy,
		now:         now,
		log:         log.With(zap.String("service", "booking")),
	}
}

func (s *bookingService) Create(ctx context.Context, actor Actor, req *request.CreateBookingRequest) (booking *entity.Booking, err error) {
	ctx, span := telemetry.StartSpan(ctx, "booking.Create", attribute.String("route_id", req.RouteID))
	defer func() { telemetry.EndSpan(span, err) }()

	if actor.ID == uuid.Nil {
		return nil, ErrForbidden
	}
	if err := s.validateCreate(req); err != nil {
		s.log.Warn("Create booking validation failed", zap.Error(err))
		return nil, err
	}

	routeID, err := uuid.Parse(req.RouteID)
	if err != nil {
		return nil, invalid("route_id", "must be a valid UUID")
	}

	now := s.now()
	departureDate, departureAt, err := s.departure(req.DepartureDate, req.DepartureTime, now)
	if err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" && s.idempotency != nil {
		key := "booking:" + actor.ID.String() + ":" + req.IdempotencyKey
		existing, claimed, cerr := s.claim(ctx, key)
		if cerr != nil {
			return nil, cerr
		}
		if existing != nil {
			return existing, nil
		}
		if claimed {
			defer func() { s.settle(ctx, key, booking, err) }()
		}
	}

	names := make([]string, len(req.PassengerNames))
	for i, name := range req.PassengerNames {
		names[i] = strings.TrimSpace(name)
	}

	_, err = s.inventory.TryReserve(ctx, ReservationRequest{
		RouteID:       routeID,
		DepartureDate: departureDate,
		Seats:         req.SeatCount,
	}, func(ctx context.Context, tx *repository.Repository, res *Reservation) error {
		fare, err := s.fares.Compute(res.Route.PricePerSeat, res.Seats, res.Route.DiscountPercent)
		if err != nil {
			return err
		}

		booking = &entity.Booking{
			Base:             entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
			BookingReference: utils.GenerateBookingReference(now.In(s.location())),
			RouteID:          res.Route.ID,
			VehicleID:        res.Vehicle.ID,
			RiderID:          actor.ID,
			TripKind:         res.Route.TripKind,
			SeatCount:        res.Seats,
			PassengerNames:   names,
			DepartureDate:    departureDate,
			DepartureAt:      departureAt,
			Subtotal:         fare.Subtotal,
			DiscountAmount:   fare.Discount,
			TaxAmount:        fare.Tax,
			TotalPrice:       fare.Total,
			Status:           entity.BookingStatusPending,
			PaymentStatus:    entity.BookingPaymentUnpaid,
			ExpiresAt:        now.Add(s.policy.HoldWindow),
			RefundAmount:     decimal.Zero,
			ContactEmail:     req.ContactEmail,
			ContactPhone:     req.ContactPhone,
		}

		if err := tx.Booking.Create(ctx, booking); err != nil {
			return infra("create booking", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.BookingsCreated.WithLabelValues(string(booking.TripKind)).Inc()
	s.log.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("booking_reference", booking.BookingReference),
		zap.String("route_id", booking.RouteID.String()),
		zap.Int("seats", booking.SeatCount),
		zap.String("amount", booking.TotalPrice.StringFixed(2)),
	)
	return booking, nil
}

func (s *bookingService) validateCreate(req *request.CreateBookingRequest) error {
	if err := validateRequest(req); err != nil {
		return err
	}
	if s.policy.MaxSeats > 0 && req.SeatCount > s.policy.MaxSeats {
		return invalid("seat_count", "exceeds the per-booking maximum")
	}
	if len(req.PassengerNames) != req.SeatCount {
		return invalid("passenger_names", "count must equal seat_count")
	}
	for _, name := range req.PassengerNames {
		if strings.TrimSpace(name) == "" {
			return invalid("passenger_names", "names must not be blank")
		}
	}
	return nil
}

func (s *bookingService) location() *time.Location {
	if s.policy.Location == nil {
		return time.UTC
	}
	return s.policy.Location
}

// departure resolves the local calendar date into the UTC-midnight slot key
// and the absolute departure instant. Without a time of day the departure
// is local midnight.
func (s *bookingService) departure(date, clock string, now time.Time) (time.Time, time.Time, error) {
	loc := s.location()
	local, err := time.ParseInLocation(time.DateOnly, date, loc)
	if err != nil {
		return time.Time{}, time.Time{}, invalid("departure_date", "must be formatted as YYYY-MM-DD")
	}

	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	at := local
	if clock != "" {
		t, err := time.Parse("15:04", clock)
		if err != nil {
			return time.Time{}, time.Time{}, invalid("departure_time", "must be formatted as HH:MM")
		}
		at = time.Date(local.Year(), local.Month(), local.Day(), t.Hour(), t.Minute(), 0, 0, loc)
	}

	today := now.In(loc)
	if day.Before(time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)) {
		return time.Time{}, time.Time{}, invalid("departure_date", "must not be in the past")
	}
	if clock != "" && at.Before(now) {
		return time.Time{}, time.Time{}, invalid("departure_time", "must not be in the past")
	}
	return day, at.UTC(), nil
}

// claim returns the booking a finished request under key produced, if any.
// Store failures disable deduplication for this request instead of failing it.
func (s *bookingService) claim(ctx context.Context, key string) (*entity.Booking, bool, error) {
	result, claimed, err := s.idempotency.Claim(ctx, key)
	if err != nil {
		s.log.Warn("Idempotency store unavailable", zap.String("key", key), zap.Error(err))
		return nil, false, nil
	}
	if claimed {
		return nil, true, nil
	}
	if result == "" {
		return nil, false, ErrRequestInProgress
	}

	id, err := uuid.Parse(result)
	if err != nil {
		return nil, false, infra("parse idempotent result", err)
	}
	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, false, infra("find booking", err)
	}
	if booking == nil {
		return nil, false, bookingNotFound(id)
	}
	return booking, false, nil
}

func (s *bookingService) settle(ctx context.Context, key string, booking *entity.Booking, err error) {
	ctx = context.WithoutCancel(ctx)
	if err != nil || booking == nil {
		if rerr := s.idempotency.Release(ctx, key); rerr != nil {
			s.log.Warn("Failed to release idempotency key", zap.String("key", key), zap.Error(rerr))
		}
		return
	}
	if cerr := s.idempotency.Complete(ctx, key, booking.ID.String()); cerr != nil {
		s.log.Warn("Failed to record idempotent result", zap.String("key", key), zap.Error(cerr))
	}
}

func (s *bookingService) ConfirmPayment(ctx context.Context, bookingID uuid.UUID, proof PaymentProof) (booking *entity.Booking, err error) {
	ctx, span := telemetry.StartSpan(ctx, "booking.ConfirmPayment", attribute.String("booking_id", bookingID.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	err = s.repo.Atomic(ctx, func(tx *repository.Repository) error {
		var err error
		booking, err = s.confirmTx(ctx, tx, bookingID, proof)
		return err
	})
	if err != nil {
		err = classify("confirm booking", err)
		s.log.Warn("Confirm payment failed",
			zap.String("booking_id", bookingID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	s.confirmed(ctx, booking)
	return booking, nil
}

// confirmTx mints the credential and performs the conditional
// Pending -> Confirmed transition on tx. It holds the slot lock so a
// reservation that already counted the hold as lapsed cannot commit
// alongside it, and it reads the clock only once the lock is held.
func (s *bookingService) confirmTx(ctx context.Context, tx *repository.Repository, bookingID uuid.UUID, proof PaymentProof) (*entity.Booking, error) {
	booking, err := tx.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, infra("find booking", err)
	}
	if booking == nil {
		return nil, bookingNotFound(bookingID)
	}

	if err := tx.Inventory.LockSlot(ctx, booking.RouteID, booking.DepartureDate); err != nil {
		return nil, infra("lock inventory slot", err)
	}

	now := s.now()
	if err := s.confirmable(booking, now); err != nil {
		return nil, err
	}
	if strings.TrimSpace(proof.Reference) == "" {
		return nil, invalid("reference", "payment reference is required")
	}
	if !proof.Amount.Equal(booking.TotalPrice) {
		return nil, invalid("amount", "does not match the booking total "+booking.TotalPrice.StringFixed(2))
	}

	credential, err := s.mint(booking)
	if err != nil {
		return nil, err
	}

	ok, err := tx.Booking.Confirm(ctx, repository.ConfirmParams{
		BookingID:  booking.ID,
		Method:     proof.Method,
		Reference:  proof.Reference,
		Credential: credential,
		Now:        now,
	})
	if err != nil {
		return nil, infra("confirm booking", err)
	}
	if !ok {
		return nil, s.diagnoseTransition(ctx, tx, bookingID, "confirm", now)
	}

	method := proof.Method
	reference := proof.Reference
	booking.Status = entity.BookingStatusConfirmed
	booking.PaymentStatus = entity.BookingPaymentPaid
	booking.PaymentMethod = &method
	booking.PaymentReference = &reference
	booking.TicketCredential = &credential
	booking.PaidAt = &now
	booking.UpdatedAt = now
	return booking, nil
}

func (s *bookingService) confirmable(booking *entity.Booking, now time.Time) error {
	if booking.Status != entity.BookingStatusPending {
		return &InvalidStateError{Operation: "confirm", Status: string(booking.Status)}
	}
	if booking.HoldExpired(now) {
		return ErrBookingExpired
	}
	return nil
}

func (s *bookingService) mint(booking *entity.Booking) (string, error) {
	kind, ttl := CredentialBooking, s.policy.BookingTTL
	if booking.TripKind == entity.TripKindShortTrip {
		kind, ttl = CredentialShortTrip, s.policy.ShortTripTTL
	}

	cred, err := s.credentials.Issue(kind, booking.ID, booking.RiderID, map[string]string{
		"bookingReference": booking.BookingReference,
		"routeId":          booking.RouteID.String(),
		"departureDate":    booking.DepartureDate.Format(time.DateOnly),
	}, ttl)
	if err != nil {
		return "", err
	}

	encoded, err := cred.Encode()
	if err != nil {
		return "", infra("encode ticket credential", err)
	}
	return encoded, nil
}

// diagnoseTransition explains why a conditional update matched no row.
func (s *bookingService) diagnoseTransition(ctx context.Context, tx *repository.Repository, bookingID uuid.UUID, op string, now time.Time) error {
	current, err := tx.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return infra("find booking", err)
	}
	if current == nil {
		return bookingNotFound(bookingID)
	}
	if op == "confirm" && current.HoldExpired(now) {
		return ErrBookingExpired
	}
	return &InvalidStateError{Operation: op, Status: string(current.Status)}
}

func (s *bookingService) confirmed(ctx context.Context, booking *entity.Booking) {
	metrics.BookingTransitions.WithLabelValues(string(entity.BookingStatusConfirmed)).Inc()
	s.log.Info("Booking confirmed",
		zap.String("booking_id", booking.ID.String()),
		zap.String("booking_reference", booking.BookingReference),
		zap.String("amount", booking.TotalPrice.StringFixed(2)),
	)

	notice := ReceiptNotice{
		BookingID:        booking.ID,
		BookingReference: booking.BookingReference,
		RecipientEmail:   booking.ContactEmail,
		RecipientPhone:   booking.ContactPhone,
		Amount:           booking.TotalPrice,
		Currency:         s.policy.Currency,
		DepartureAt:      booking.DepartureAt,
	}
	if booking.PaymentMethod != nil {
		notice.PaymentMethod = string(*booking.PaymentMethod)
	}
	if booking.TicketCredential != nil {
		notice.TicketPayload = *booking.TicketCredential
	}
	dispatch(ctx, s.log, "receipt", func(ctx context.Context) error {
		return s.notifier.PaymentReceipt(ctx, notice)
	})
}

// RefundPercent is the share of the total refunded when a booking departing
// at departureAt is cancelled at now.
func RefundPercent(departureAt, now time.Time) int {
	if departureAt.Sub(now) > fullRefundNotice {
		return fullRefundPercent
	}
	return lateRefundPercent
}

func (s *bookingService) Cancel(ctx context.Context, actor Actor, bookingID uuid.UUID) (result *CancellationResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "booking.Cancel", attribute.String("booking_id", bookingID.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	err = s.repo.Atomic(ctx, func(tx *repository.Repository) error {
		var err error
		result, err = s.cancelTx(ctx, tx, actor, bookingID)
		return err
	})
	if err != nil {
		err = classify("cancel booking", err)
		s.log.Warn("Cancel booking failed",
			zap.String("booking_id", bookingID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	booking := result.Booking
	metrics.BookingTransitions.WithLabelValues(string(entity.BookingStatusCancelled)).Inc()
	s.log.Info("Booking cancelled",
		zap.String("booking_id", booking.ID.String()),
		zap.String("booking_reference", booking.BookingReference),
		zap.String("refund_amount", result.RefundAmount.StringFixed(2)),
		zap.Int("refund_percent", result.RefundPercent),
	)

	notice := CancellationNotice{
		BookingID:        booking.ID,
		BookingReference: booking.BookingReference,
		RecipientEmail:   booking.ContactEmail,
		RecipientPhone:   booking.ContactPhone,
		RefundAmount:     result.RefundAmount,
		RefundPercent:    result.RefundPercent,
	}
	if booking.PaymentMethod != nil {
		notice.PaymentMethod = string(*booking.PaymentMethod)
	}
	dispatch(ctx, s.log, "cancellation", func(ctx context.Context) error {
		return s.notifier.CancellationNotice(ctx, notice)
	})

	return result, nil
}

func (s *bookingService) cancelTx(ctx context.Context, tx *repository.Repository, actor Actor, bookingID uuid.UUID) (*CancellationResult, error) {
	booking, err := tx.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, infra("find booking", err)
	}
	if booking == nil {
		return nil, bookingNotFound(bookingID)
	}
	if !actor.owns(booking.RiderID) {
		return nil, ErrForbidden
	}
	if booking.Status != entity.BookingStatusPending && booking.Status != entity.BookingStatusConfirmed {
		return nil, &InvalidStateError{Operation: "cancel", Status: string(booking.Status)}
	}

	now := s.now()
	percent := RefundPercent(booking.DepartureAt, now)
	amount := decimal.Zero
	paid := booking.PaymentStatus == entity.BookingPaymentPaid
	if paid {
		amount = booking.TotalPrice.Mul(decimal.NewFromInt(int64(percent))).Div(hundred).Round(moneyPlaces)
	}

	ok, err := tx.Booking.Cancel(ctx, repository.CancelParams{
		BookingID:     booking.ID,
		FromStatus:    booking.Status,
		RefundAmount:  amount,
		RefundPercent: percent,
		Now:           now,
	})
	if err != nil {
		return nil, infra("cancel booking", err)
	}
	if !ok {
		return nil, s.diagnoseTransition(ctx, tx, bookingID, "cancel", now)
	}

	if paid && amount.IsPositive() && booking.PaymentMethod != nil && *booking.PaymentMethod == entity.PaymentMethodCard {
		if err := s.refundToCard(ctx, tx, booking, amount); err != nil {
			return nil, err
		}
	}

	booking.Status = entity.BookingStatusCancelled
	if paid {
		booking.PaymentStatus = entity.BookingPaymentRefunded
	}
	booking.RefundAmount = amount
	booking.RefundPercent = percent
	booking.CancelledAt = &now
	booking.UpdatedAt = now

	return &CancellationResult{Booking: booking, RefundAmount: amount, RefundPercent: percent}, nil
}

// refundToCard credits a card-paid booking's refund back to the paying card.
// A card that can no longer take credit leaves the refund to manual handling.
func (s *bookingService) refundToCard(ctx context.Context, tx *repository.Repository, booking *entity.Booking, amount decimal.Decimal) error {
	payment, err := tx.Payment.FindLatestByBookingID(ctx, booking.ID, entity.PaymentStatusCompleted)
	if err != nil {
		return infra("find card payment", err)
	}
	if payment == nil || payment.CardID == nil {
		s.log.Warn("Card refund skipped, paying card unknown", zap.String("booking_id", booking.ID.String()))
		return nil
	}

	_, err = s.cards.applyTx(ctx, tx, cardOp{
		CardID:      *payment.CardID,
		Type:        entity.CardTransactionCredit,
		Amount:      amount,
		Reference:   booking.BookingReference,
		Description: "Refund for booking " + booking.BookingReference,
	})
	var notFound *NotFoundError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrCardInactive), errors.As(err, &notFound):
		s.log.Warn("Card refund skipped, card cannot be credited",
			zap.String("booking_id", booking.ID.String()),
			zap.String("card_id", payment.CardID.String()),
			zap.Error(err),
		)
		return nil
	default:
		return err
	}
}

func (s *bookingService) MarkCompleted(ctx context.Context, bookingID uuid.UUID) (*entity.Booking, error) {
	var booking *entity.Booking
	err := s.repo.Atomic(ctx, func(tx *repository.Repository) error {
		var err error
		booking, err = s.completeTx(ctx, tx, bookingID)
		return err
	})
	if err != nil {
		return nil, classify("complete booking", err)
	}

	metrics.BookingTransitions.WithLabelValues(string(entity.BookingStatusCompleted)).Inc()
	s.log.Info("Booking completed",
		zap.String("booking_id", booking.ID.String()),
		zap.String("booking_reference", booking.BookingReference),
	)
	return booking, nil
}

func (s *bookingService) completeTx(ctx context.Context, tx *repository.Repository, bookingID uuid.UUID) (*entity.Booking, error) {
	now := s.now()
	ok, err := tx.Booking.MarkCompleted(ctx, bookingID, now)
	if err != nil {
		return nil, infra("complete booking", err)
	}
	if !ok {
		return nil, s.diagnoseTransition(ctx, tx, bookingID, "complete", now)
	}

	booking, err := tx.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, infra("find booking", err)
	}
	if booking == nil {
		return nil, bookingNotFound(bookingID)
	}
	return booking, nil
}

// ExpirePending moves lapsed holds to Expired in batches and returns how many moved.
func (s *bookingService) ExpirePending(ctx context.Context) (int, error) {
	batch := s.policy.SweepBatchSize
	if batch <= 0 {
		batch = 100
	}

	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		ids, err := s.repo.Booking.ExpirePending(ctx, s.now(), batch)
		if err != nil {
			return total, infra("expire pending bookings", err)
		}
		total += len(ids)
		if len(ids) < batch {
			break
		}
	}

	if total > 0 {
		metrics.BookingTransitions.WithLabelValues(string(entity.BookingStatusExpired)).Add(float64(total))
		s.log.Info("Expired pending bookings", zap.Int("count", total))
	}
	return total, nil
}

func (s *bookingService) Get(ctx context.Context, actor Actor, bookingID uuid.UUID) (*entity.Booking, error) {
	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, infra("find booking", err)
	}
	if booking == nil {
		return nil, bookingNotFound(bookingID)
	}
	if !actor.owns(booking.RiderID) {
		return nil, ErrForbidden
	}
	return booking, nil
}

func (s *bookingService) GetByReference(ctx context.Context, actor Actor, reference string) (*entity.Booking, error) {
	booking, err := s.repo.Booking.FindByReference(ctx, reference)
	if err != nil {
		return nil, infra("find booking by reference", err)
	}
	if booking == nil {
		return nil, &NotFoundError{Resource: "booking", ID: reference}
	}
	if !actor.owns(booking.RiderID) {
		return nil, ErrForbidden
	}
	return booking, nil
}

func (s *bookingService) ListForRider(ctx context.Context, actor Actor, page request.PaginatedRequest) ([]*entity.Booking, int64, error) {
	if actor.ID == uuid.Nil {
		return nil, 0, ErrForbidden
	}

	bookings, err := s.repo.Booking.FindByRiderID(ctx, actor.ID, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, infra("list bookings", err)
	}
	total, err := s.repo.Booking.CountByRiderID(ctx, actor.ID)
	if err != nil {
		return nil, 0, infra("count bookings", err)
	}
	return bookings, total, nil
}
