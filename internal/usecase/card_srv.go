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
	"transit-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type IssuedCard struct {
	Card       *entity.Card
	Credential string
}

type CardService interface {
	Issue(ctx context.Context, actor Actor) (*IssuedCard, error)
	Get(ctx context.Context, actor Actor, cardID uuid.UUID) (*entity.Card, error)
	ListForRider(ctx context.Context, actor Actor) ([]*entity.Card, error)
	Credit(ctx context.Context, cardID uuid.UUID, amount decimal.Decimal, reference, description string) (*entity.CardTransaction, error)
	Debit(ctx context.Context, cardID uuid.UUID, amount decimal.Decimal, reference, description string) (*entity.CardTransaction, error)
	TopUp(ctx context.Context, actor Actor, cardID uuid.UUID, req *request.TopUpRequest) (*entity.CardTransaction, error)
	SetStatus(ctx context.Context, actor Actor, cardID uuid.UUID, status entity.CardStatus) (*entity.Card, error)
	Transactions(ctx context.Context, actor Actor, cardID uuid.UUID, page request.PaginatedRequest) ([]*entity.CardTransaction, int64, error)
}

type cardService struct {
	repo        *repository.Repository
	credentials CredentialService
	policy      BookingPolicy
	now         func() time.Time
	log         *zap.Logger
}

func newCardService(repo *repository.Repository, credentials CredentialService, policy BookingPolicy, now func() time.Time, log *zap.Logger) *cardService {
	return &cardService{
		repo:        repo,
		credentials: credentials,
		policy:      policy,
		now:         now,
		log:         log.With(zap.String("service", "card")),
	}
}

// cardOp is one balance movement. Amount is always positive; Type decides the sign.
type cardOp struct {
	CardID      uuid.UUID
	Type        entity.CardTransactionType
	Amount      decimal.Decimal
	RouteID     *uuid.UUID
	Reference   string
	Description string
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return invalid("amount", "must be greater than zero")
	}
	if !amount.Equal(amount.Round(moneyPlaces)) {
		return invalid("amount", "must have at most 2 decimal places")
	}
	return nil
}

// applyTx moves the balance and appends the ledger row on tx. The balance
// update is a single conditional statement, so concurrent debits can never
// drive it below zero.
func (s *cardService) applyTx(ctx context.Context, tx *repository.Repository, op cardOp) (*entity.CardTransaction, error) {
	if err := validateAmount(op.Amount); err != nil {
		return nil, err
	}

	delta := op.Amount
	if op.Type == entity.CardTransactionDebit {
		delta = op.Amount.Neg()
	}

	now := s.now()
	change, ok, err := tx.Card.ApplyDelta(ctx, repository.BalanceDelta{
		CardID:  op.CardID,
		Delta:   delta,
		RouteID: op.RouteID,
		Now:     now,
	})
	if err != nil {
		return nil, infra("apply card balance delta", err)
	}
	if !ok {
		return nil, s.diagnose(ctx, tx, op)
	}

	txn := &entity.CardTransaction{
		BaseSimple:      entity.BaseSimple{ID: uuid.New(), CreatedAt: now},
		CardID:          op.CardID,
		Type:            op.Type,
		Amount:          op.Amount,
		PreviousBalance: change.PreviousBalance,
		NewBalance:      change.NewBalance,
		Description:     op.Description,
	}
	if op.Reference != "" {
		ref := op.Reference
		txn.ReferenceID = &ref
	}

	if err := tx.CardTransaction.Create(ctx, txn); err != nil {
		return nil, infra("create card transaction", err)
	}
	return txn, nil
}

func (s *cardService) diagnose(ctx context.Context, tx *repository.Repository, op cardOp) error {
	card, err := tx.Card.FindByID(ctx, op.CardID)
	if err != nil {
		return infra("find card", err)
	}
	switch {
	case card == nil:
		return cardNotFound(op.CardID)
	case card.Status != entity.CardStatusActive:
		return ErrCardInactive
	default:
		return &InsufficientBalanceError{Balance: card.Balance, Amount: op.Amount}
	}
}

func (s *cardService) apply(ctx context.Context, op cardOp) (txn *entity.CardTransaction, err error) {
	ctx, span := telemetry.StartSpan(ctx, "card."+string(op.Type),
		attribute.String("card_id", op.CardID.String()),
		attribute.String("amount", op.Amount.String()),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	err = s.repo.Atomic(ctx, func(tx *repository.Repository) error {
		var err error
		txn, err = s.applyTx(ctx, tx, op)
		return err
	})
	metrics.CardOperations.WithLabelValues(string(op.Type), cardResult(err)).Inc()

	if err != nil {
		err = classify("apply card operation", err)
		if IsBusinessError(err) {
			s.log.Warn("Card operation rejected",
				zap.String("card_id", op.CardID.String()),
				zap.String("type", string(op.Type)),
				zap.String("amount", op.Amount.StringFixed(2)),
				zap.Error(err),
			)
		}
		return nil, err
	}

	s.log.Info("Card balance changed",
		zap.String("card_id", op.CardID.String()),
		zap.String("type", string(op.Type)),
		zap.String("amount", op.Amount.StringFixed(2)),
		zap.String("new_balance", txn.NewBalance.StringFixed(2)),
	)
	return txn, nil
}

func cardResult(err error) string {
	var balance *InsufficientBalanceError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &balance):
		return "insufficient_balance"
	case errors.Is(err, ErrCardInactive):
		return "inactive"
	case IsBusinessError(err):
		return "rejected"
	default:
		return "error"
	}
}

func (s *cardService) Credit(ctx context.Context, cardID uuid.UUID, amount decimal.Decimal, reference, description string) (*entity.CardTransaction, error) {
	return s.apply(ctx, cardOp{
		CardID:      cardID,
		Type:        entity.CardTransactionCredit,
		Amount:      amount,
		Reference:   reference,
		Description: description,
	})
}

func (s *cardService) Debit(ctx context.Context, cardID uuid.UUID, amount decimal.Decimal, reference, description string) (*entity.CardTransaction, error) {
	return s.apply(ctx, cardOp{
		CardID:      cardID,
		Type:        entity.CardTransactionDebit,
		Amount:      amount,
		Reference:   reference,
		Description: description,
	})
}

func (s *cardService) TopUp(ctx context.Context, actor Actor, cardID uuid.UUID, req *request.TopUpRequest) (*entity.CardTransaction, error) {
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

	description := req.Description
	if description == "" {
		description = "Top-up"
	}
	return s.Credit(ctx, cardID, amount, req.Reference, description)
}

func (s *cardService) Issue(ctx context.Context, actor Actor) (*IssuedCard, error) {
	if actor.ID == uuid.Nil {
		return nil, ErrForbidden
	}

	now := s.now()
	card := &entity.Card{
		Base:       entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		RiderID:    actor.ID,
		CardNumber: utils.GenerateCardNumber(),
		Balance:    decimal.Zero,
		Status:     entity.CardStatusActive,
	}

	if err := s.repo.Card.Create(ctx, card); err != nil {
		return nil, infra("create card", err)
	}

	cred, err := s.credentials.Issue(CredentialCard, card.ID, actor.ID, map[string]string{
		"cardNumber": card.CardNumber,
	}, s.policy.CardTTL)
	if err != nil {
		return nil, err
	}
	encoded, err := cred.Encode()
	if err != nil {
		return nil, infra("encode card credential", err)
	}

	s.log.Info("Card issued",
		zap.String("card_id", card.ID.String()),
		zap.String("rider_id", actor.ID.String()),
	)
	return &IssuedCard{Card: card, Credential: encoded}, nil
}

func (s *cardService) owned(ctx context.Context, actor Actor, cardID uuid.UUID) (*entity.Card, error) {
	card, err := s.repo.Card.FindByID(ctx, cardID)
	if err != nil {
		return nil, infra("find card", err)
	}
	if card == nil {
		return nil, cardNotFound(cardID)
	}
	if !actor.owns(card.RiderID) {
		return nil, ErrForbidden
	}
	return card, nil
}

func (s *cardService) Get(ctx context.Context, actor Actor, cardID uuid.UUID) (*entity.Card, error) {
	return s.owned(ctx, actor, cardID)
}

// ListForRider returns the actor's own cards, newest first.
func (s *cardService) ListForRider(ctx context.Context, actor Actor) ([]*entity.Card, error) {
	if actor.ID == uuid.Nil {
		return nil, ErrForbidden
	}
	cards, err := s.repo.Card.FindByRiderID(ctx, actor.ID)
	if err != nil {
		return nil, infra("list cards", err)
	}
	return cards, nil
}

// SetStatus lets admins move a card either way; owners may only block their own card.
func (s *cardService) SetStatus(ctx context.Context, actor Actor, cardID uuid.UUID, status entity.CardStatus) (*entity.Card, error) {
	if status != entity.CardStatusActive && status != entity.CardStatusBlocked {
		return nil, invalid("status", "must be one of: active, blocked")
	}

	card, err := s.owned(ctx, actor, cardID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && status != entity.CardStatusBlocked {
		return nil, ErrForbidden
	}

	now := s.now()
	ok, err := s.repo.Card.UpdateStatus(ctx, cardID, status, now)
	if err != nil {
		return nil, infra("update card status", err)
	}
	if !ok {
		return nil, cardNotFound(cardID)
	}

	card.Status = status
	card.UpdatedAt = now
	s.log.Info("Card status changed",
		zap.String("card_id", cardID.String()),
		zap.String("status", string(status)),
	)
	return card, nil
}

func (s *cardService) Transactions(ctx context.Context, actor Actor, cardID uuid.UUID, page request.PaginatedRequest) ([]*entity.CardTransaction, int64, error) {
	if _, err := s.owned(ctx, actor, cardID); err != nil {
		return nil, 0, err
	}

	txns, err := s.repo.CardTransaction.FindByCardID(ctx, cardID, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, infra("list card transactions", err)
	}
	total, err := s.repo.CardTransaction.CountByCardID(ctx, cardID)
	if err != nil {
		return nil, 0, infra("count card transactions", err)
	}
	return txns, total, nil
}
