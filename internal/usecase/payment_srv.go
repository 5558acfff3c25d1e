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

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type GatewayStatus string

const (
	GatewayPending    GatewayStatus = "pending"
	GatewaySuccessful GatewayStatus = "successful"
	GatewayFailed     GatewayStatus = "failed"
)

type MobileMoneyRequest struct {
	Amount      decimal.Decimal
	Currency    string
	Phone       string
	ExternalID  string
	Description string
}

// PaymentGateway is the mobile-money collaborator.
type PaymentGateway interface {
	Initiate(ctx context.Context, req MobileMoneyRequest) (correlationID string, err error)
	Status(ctx context.Context, correlationID string) (GatewayStatus, error)
}

var errGatewayUnavailable = errors.New("payment gateway is not configured")

type PaymentVerification struct {
	Payment *entity.Payment
	Status  GatewayStatus
	Booking *entity.Booking
}

type PaymentService interface {
	InitiateMobileMoney(ctx context.Context, actor Actor, req *request.InitiateMomoRequest) (*entity.Payment, error)
	VerifyMobileMoney(ctx context.Context, actor Actor, correlationID string) (*PaymentVerification, error)
	PayWithCard(ctx context.Context, actor Actor, req *request.CardPaymentRequest) (*entity.Booking, error)
	ConfirmManual(ctx context.Context, actor Actor, bookingID uuid.UUID, req *request.ConfirmBookingRequest) (*entity.Booking, error)
	Get(ctx context.Context, actor Actor, paymentID uuid.UUID) (*entity.Payment, error)
	ListForRider(ctx context.Context, actor Actor, page request.PaginatedRequest) ([]*entity.Payment, int64, error)
}

type paymentService struct {
	repo        *repository.Repository
	bookings    *bookingService
	cards       *cardService
	gateway     PaymentGateway
	idempotency IdempotencyStore
	policy      BookingPolicy
	now         func() time.Time
	log         *zap.Logger
}

func newPaymentService(
	repo *repository.Repository,
	bookings *bookingService,
	cards *cardService,
	deps Dependencies,
	policy BookingPolicy,
	now func() time.Time,
	log *zap.Logger,
) *paymentService {
	return &paymentService{
		repo:        repo,
		bookings:    bookings,
		cards:       cards,
		gateway:     deps.Gateway,
		idempotency: deps.Idempotency,
		policy:      policy,
		now:         now,
		log:         log.With(zap.String("service", "payment")),
	}
}

// NormalizePhone turns local Rwandan mobile formats into +250XXXXXXXXX.
func NormalizePhone(raw string) (string, error) {
	phone := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(raw))

	switch {
	case strings.HasPrefix(phone, "+250"):
	case strings.HasPrefix(phone, "250"):
		phone = "+" + phone
	case strings.HasPrefix(phone, "0"):
		phone = "+250" + phone[1:]
	case len(phone) == 9:
		phone = "+250" + phone
	}

	digits := strings.TrimPrefix(phone, "+250")
	if len(phone) != 13 || len(digits) != 9 || !strings.HasPrefix(digits, "7") {
		return "", invalid("phone", "must be a Rwandan mobile number")
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", invalid("phone", "must contain only digits")
		}
	}
	return phone, nil
}

func (s *paymentService) InitiateMobileMoney(ctx context.Context, actor Actor, req *request.InitiateMomoRequest) (payment *entity.Payment, err error) {
	ctx, span := telemetry.StartSpan(ctx, "payment.InitiateMobileMoney", attribute.String("booking_id", req.BookingID))
	defer func() { telemetry.EndSpan(span, err) }()

	if err := validateRequest(req); err != nil {
		return nil, err
	}
	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		return nil, invalid("booking_id", "must be a valid UUID")
	}
	phone, err := NormalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}
	if s.gateway == nil {
		return nil, infra("initiate mobile money", errGatewayUnavailable)
	}

	booking, err := s.bookings.Get(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.bookings.confirmable(booking, s.now()); err != nil {
		return nil, err
	}

	if s.idempotency != nil {
		key := "momo:" + bookingID.String()
		_, claimed, err := s.idempotency.Claim(ctx, key)
		switch {
		case err != nil:
			s.log.Warn("Idempotency store unavailable", zap.String("key", key), zap.Error(err))
		case !claimed:
			return nil, ErrRequestInProgress
		default:
			defer func() {
				if rerr := s.idempotency.Release(context.WithoutCancel(ctx), key); rerr != nil {
					s.log.Warn("Failed to release idempotency key", zap.String("key", key), zap.Error(rerr))
				}
			}()
		}
	}

	existing, err := s.repo.Payment.FindLatestByBookingID(ctx, bookingID, entity.PaymentStatusPending)
	if err != nil {
		return nil, infra("find pending payment", err)
	}
	if existing != nil && existing.Method == entity.PaymentMethodMobileMoney {
		return existing, nil
	}

	correlationID, err := s.gateway.Initiate(ctx, MobileMoneyRequest{
		Amount:      booking.TotalPrice,
		Currency:    s.policy.Currency,
		Phone:       phone,
		ExternalID:  booking.BookingReference,
		Description: "Ticket " + booking.BookingReference,
	})
	if err != nil {
		s.log.Error("Mobile money initiation failed",
			zap.String("booking_id", bookingID.String()),
			zap.Error(err),
		)
		return nil, infra("initiate mobile money", err)
	}

	now := s.now()
	payment = &entity.Payment{
		Base:          entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		BookingID:     bookingID,
		Method:        entity.PaymentMethodMobileMoney,
		Amount:        booking.TotalPrice,
		Currency:      s.policy.Currency,
		Status:        entity.PaymentStatusPending,
		CorrelationID: &correlationID,
		PayerPhone:    &phone,
	}
	if err := s.repo.Payment.Create(ctx, payment); err != nil {
		return nil, infra("create payment", err)
	}

	s.log.Info("Mobile money payment initiated",
		zap.String("booking_id", bookingID.String()),
		zap.String("correlation_id", correlationID),
		zap.String("amount", payment.Amount.StringFixed(2)),
	)
	return payment, nil
}

func (s *paymentService) VerifyMobileMoney(ctx context.Context, actor Actor, correlationID string) (result *PaymentVerification, err error) {
	ctx, span := telemetry.StartSpan(ctx, "payment.VerifyMobileMoney", attribute.String("correlation_id", correlationID))
	defer func() { telemetry.EndSpan(span, err) }()

	payment, err := s.repo.Payment.FindByCorrelationID(ctx, correlationID)
	if err != nil {
		return nil, infra("find payment", err)
	}
	if payment == nil {
		return nil, &NotFoundError{Resource: "payment", ID: correlationID}
	}

	booking, err := s.bookings.Get(ctx, actor, payment.BookingID)
	if err != nil {
		return nil, err
	}

	switch payment.Status {
	case entity.PaymentStatusCompleted:
		return &PaymentVerification{Payment: payment, Status: GatewaySuccessful, Booking: booking}, nil
	case entity.PaymentStatusFailed:
		return &PaymentVerification{Payment: payment, Status: GatewayFailed, Booking: booking}, nil
	}

	if s.gateway == nil {
		return nil, infra("verify mobile money", errGatewayUnavailable)
	}
	status, err := s.gateway.Status(ctx, correlationID)
	if err != nil {
		return nil, infra("query mobile money status", err)
	}

	switch status {
	case GatewaySuccessful:
		return s.settle(ctx, payment)
	case GatewayFailed:
		return s.fail(ctx, payment, booking)
	default:
		return &PaymentVerification{Payment: payment, Status: GatewayPending, Booking: booking}, nil
	}
}

// settle records the completed payment and confirms the booking. The
// payment stays completed even when the booking can no longer be confirmed,
// since the gateway already moved the money.
func (s *paymentService) settle(ctx context.Context, payment *entity.Payment) (*PaymentVerification, error) {
	var (
		booking    *entity.Booking
		confirmErr error
	)
	now := s.now()

	err := s.repo.Atomic(ctx, func(tx *repository.Repository) error {
		ok, err := tx.Payment.UpdateStatus(ctx, payment.ID, entity.PaymentStatusPending, entity.PaymentStatusCompleted, now)
		if err != nil {
			return infra("complete payment", err)
		}
		if !ok {
			booking, err = tx.Booking.FindByID(ctx, payment.BookingID)
			if err != nil {
				return infra("find booking", err)
			}
			return nil
		}

		reference := ""
		if payment.CorrelationID != nil {
			reference = *payment.CorrelationID
		}
		booking, confirmErr = s.bookings.confirmTx(ctx, tx, payment.BookingID, PaymentProof{
			Method:    entity.PaymentMethodMobileMoney,
			Reference: reference,
			Amount:    payment.Amount,
		})
		if confirmErr != nil && !IsBusinessError(confirmErr) {
			return confirmErr
		}
		return nil
	})
	if err != nil {
		return nil, classify("settle mobile money payment", err)
	}

	payment.Status = entity.PaymentStatusCompleted
	payment.UpdatedAt = now

	if confirmErr != nil {
		s.log.Warn("Payment settled for a booking that cannot be confirmed",
			zap.String("payment_id", payment.ID.String()),
			zap.String("booking_id", payment.BookingID.String()),
			zap.Error(confirmErr),
		)
		return nil, confirmErr
	}
	if booking != nil && booking.Status == entity.BookingStatusConfirmed {
		s.bookings.confirmed(ctx, booking)
	}
	return &PaymentVerification{Payment: payment, Status: GatewaySuccessful, Booking: booking}, nil
}

func (s *paymentService) fail(ctx context.Context, payment *entity.Payment, booking *entity.Booking) (*PaymentVerification, error) {
	now := s.now()
	err := s.repo.Atomic(ctx, func(tx *repository.Repository) error {
		ok, err := tx.Payment.UpdateStatus(ctx, payment.ID, entity.PaymentStatusPending, entity.PaymentStatusFailed, now)
		if err != nil {
			return infra("fail payment", err)
		}
		if !ok {
			return nil
		}
		if _, err := tx.Booking.MarkPaymentFailed(ctx, payment.BookingID, now); err != nil {
			return infra("mark booking payment failed", err)
		}
		return nil
	})
	if err != nil {
		return nil, classify("fail mobile money payment", err)
	}

	payment.Status = entity.PaymentStatusFailed
	payment.UpdatedAt = now
	if booking.Status == entity.BookingStatusPending {
		booking.PaymentStatus = entity.BookingPaymentFailed
	}

	s.log.Warn("Mobile money payment failed",
		zap.String("payment_id", payment.ID.String()),
		zap.String("booking_id", payment.BookingID.String()),
	)
	return &PaymentVerification{Payment: payment, Status: GatewayFailed, Booking: booking}, nil
}

// PayWithCard debits the card, records the payment and confirms the booking
// in one transaction; any failure leaves the balance untouched.
func (s *paymentService) PayWithCard(ctx context.Context, actor Actor, req *request.CardPaymentRequest) (booking *entity.Booking, err error) {
	ctx, span := telemetry.StartSpan(ctx, "payment.PayWithCard", attribute.String("booking_id", req.BookingID))
	defer func() { telemetry.EndSpan(span, err) }()

	if err := validateRequest(req); err != nil {
		return nil, err
	}
	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		return nil, invalid("booking_id", "must be a valid UUID")
	}
	cardID, err := uuid.Parse(req.CardID)
	if err != nil {
		return nil, invalid("card_id", "must be a valid UUID")
	}

	if _, err := s.cards.owned(ctx, actor, cardID); err != nil {
		return nil, err
	}
	current, err := s.bookings.Get(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.bookings.confirmable(current, s.now()); err != nil {
		return nil, err
	}

	err = s.repo.Atomic(ctx, func(tx *repository.Repository) error {
		txn, err := s.cards.applyTx(ctx, tx, cardOp{
			CardID:      cardID,
			Type:        entity.CardTransactionDebit,
			Amount:      current.TotalPrice,
			RouteID:     &current.RouteID,
			Reference:   current.BookingReference,
			Description: "Payment for booking " + current.BookingReference,
		})
		if err != nil {
			return err
		}

		now := s.now()
		reference := txn.ID.String()
		payment := &entity.Payment{
			Base:          entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
			BookingID:     bookingID,
			Method:        entity.PaymentMethodCard,
			Amount:        current.TotalPrice,
			Currency:      s.policy.Currency,
			Status:        entity.PaymentStatusCompleted,
			CorrelationID: &reference,
			CardID:        &cardID,
		}
		if err := tx.Payment.Create(ctx, payment); err != nil {
			return infra("create payment", err)
		}

		booking, err = s.bookings.confirmTx(ctx, tx, bookingID, PaymentProof{
			Method:    entity.PaymentMethodCard,
			Reference: reference,
			Amount:    current.TotalPrice,
		})
		return err
	})
	metrics.CardOperations.WithLabelValues(string(entity.CardTransactionDebit), cardResult(err)).Inc()
	if err != nil {
		err = classify("pay with card", err)
		s.log.Warn("Card payment failed",
			zap.String("booking_id", bookingID.String()),
			zap.String("card_id", cardID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	s.bookings.confirmed(ctx, booking)
	return booking, nil
}

// ConfirmManual records an out-of-band payment verified by an administrator.
func (s *paymentService) ConfirmManual(ctx context.Context, actor Actor, bookingID uuid.UUID, req *request.ConfirmBookingRequest) (*entity.Booking, error) {
	if !actor.IsAdmin {
		return nil, ErrForbidden
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, invalid("amount", "must be a decimal number")
	}

	var booking *entity.Booking
	err = s.repo.Atomic(ctx, func(tx *repository.Repository) error {
		var err error
		booking, err = s.bookings.confirmTx(ctx, tx, bookingID, PaymentProof{
			Method:    entity.PaymentMethodManual,
			Reference: req.Reference,
			Amount:    amount,
		})
		if err != nil {
			return err
		}

		now := s.now()
		reference := "manual:" + req.Reference
		return classify("create payment", tx.Payment.Create(ctx, &entity.Payment{
			Base:          entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
			BookingID:     bookingID,
			Method:        entity.PaymentMethodManual,
			Amount:        amount,
			Currency:      s.policy.Currency,
			Status:        entity.PaymentStatusCompleted,
			CorrelationID: &reference,
		}))
	})
	if err != nil {
		return nil, classify("confirm manual payment", err)
	}

	s.bookings.confirmed(ctx, booking)
	return booking, nil
}

// Get returns a payment to the rider who owns its booking, or to an admin.
func (s *paymentService) Get(ctx context.Context, actor Actor, paymentID uuid.UUID) (*entity.Payment, error) {
	payment, err := s.repo.Payment.FindByID(ctx, paymentID)
	if err != nil {
		return nil, infra("find payment", err)
	}
	if payment == nil {
		return nil, &NotFoundError{Resource: "payment", ID: paymentID.String()}
	}
	if _, err := s.bookings.Get(ctx, actor, payment.BookingID); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *paymentService) ListForRider(ctx context.Context, actor Actor, page request.PaginatedRequest) ([]*entity.Payment, int64, error) {
	if actor.ID == uuid.Nil {
		return nil, 0, ErrForbidden
	}

	payments, err := s.repo.Payment.FindByRiderID(ctx, actor.ID, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, infra("list payments", err)
	}
	total, err := s.repo.Payment.CountByRiderID(ctx, actor.ID)
	if err != nil {
		return nil, 0, infra("count payments", err)
	}
	return payments, total, nil
}
