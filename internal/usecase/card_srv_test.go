package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"transit-booking/internal/data/entity"
	"transit-booking/internal/dto/request"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var admin = Actor{ID: uuid.New(), IsAdmin: true}

func TestCardCreditAndDebitLedger(t *testing.T) {
	h := newHarness(t)
	card := h.db.addCard(uuid.New(), "0", entity.CardStatusActive)
	ctx := context.Background()

	credit, err := h.svc.Card.Credit(ctx, card.ID, dec("5000"), "TOPUP-1", "Top-up")
	require.NoError(t, err)
	assert.True(t, credit.PreviousBalance.IsZero())
	assert.True(t, credit.NewBalance.Equal(dec("5000")))

	debit, err := h.svc.Card.Debit(ctx, card.ID, dec("1180"), "EHUT-1", "Fare")
	require.NoError(t, err)
	assert.True(t, debit.PreviousBalance.Equal(dec("5000")))
	assert.True(t, debit.NewBalance.Equal(dec("3820")))
	require.NotNil(t, debit.ReferenceID)
	assert.Equal(t, "EHUT-1", *debit.ReferenceID)

	assert.True(t, h.db.card(card.ID).Balance.Equal(dec("3820")))
	assert.NotNil(t, h.db.card(card.ID).LastUsedAt)

	txns := h.db.cardTxns(card.ID)
	require.Len(t, txns, 2)
	for _, txn := range txns {
		delta := txn.Amount
		if txn.Type == entity.CardTransactionDebit {
			delta = delta.Neg()
		}
		assert.True(t, txn.NewBalance.Equal(txn.PreviousBalance.Add(delta)))
	}
}

func TestCardDebitInsufficientBalance(t *testing.T) {
	h := newHarness(t)
	card := h.db.addCard(uuid.New(), "100", entity.CardStatusActive)

	_, err := h.svc.Card.Debit(context.Background(), card.ID, dec("100.01"), "", "Fare")
	var short *InsufficientBalanceError
	require.True(t, errors.As(err, &short))
	assert.True(t, short.Balance.Equal(dec("100")))
	assert.True(t, short.Amount.Equal(dec("100.01")))

	assert.True(t, h.db.card(card.ID).Balance.Equal(dec("100")))
	assert.Empty(t, h.db.cardTxns(card.ID))

	// Draining to exactly zero is allowed.
	_, err = h.svc.Card.Debit(context.Background(), card.ID, dec("100"), "", "Fare")
	require.NoError(t, err)
	assert.True(t, h.db.card(card.ID).Balance.IsZero())
}

func TestConcurrentDebitsNeverGoNegative(t *testing.T) {
	h := newHarness(t)
	card := h.db.addCard(uuid.New(), "100", entity.CardStatusActive)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		ok    int
		short int
	)
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.Card.Debit(context.Background(), card.ID, dec("60"), "", "Fare")

			mu.Lock()
			defer mu.Unlock()
			var ib *InsufficientBalanceError
			switch {
			case err == nil:
				ok++
			case errors.As(err, &ib):
				short++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, short)
	assert.True(t, h.db.card(card.ID).Balance.Equal(dec("40")))
	assert.Len(t, h.db.cardTxns(card.ID), 1)
}

func TestManyConcurrentDebits(t *testing.T) {
	h := newHarness(t)
	card := h.db.addCard(uuid.New(), "1000", entity.CardStatusActive)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.svc.Card.Debit(context.Background(), card.ID, dec("30"), "", "Fare")
		}()
	}
	wg.Wait()

	// 33 debits of 30 fit into 1000.
	assert.True(t, h.db.card(card.ID).Balance.Equal(dec("10")))
	assert.Len(t, h.db.cardTxns(card.ID), 33)
}

func TestBlockedCardRejectsMovements(t *testing.T) {
	h := newHarness(t)
	card := h.db.addCard(uuid.New(), "500", entity.CardStatusBlocked)
	ctx := context.Background()

	_, err := h.svc.Card.Debit(ctx, card.ID, dec("10"), "", "Fare")
	assert.ErrorIs(t, err, ErrCardInactive)
	_, err = h.svc.Card.Credit(ctx, card.ID, dec("10"), "", "Top-up")
	assert.ErrorIs(t, err, ErrCardInactive)

	_, err = h.svc.Card.Debit(ctx, uuid.New(), dec("10"), "", "Fare")
	var notFound *NotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestCardAmountValidation(t *testing.T) {
	h := newHarness(t)
	card := h.db.addCard(uuid.New(), "500", entity.CardStatusActive)

	for _, amount := range []string{"0", "-5", "1.005"} {
		_, err := h.svc.Card.Credit(context.Background(), card.ID, dec(amount), "", "Top-up")
		var ve *ValidationError
		assert.True(t, errors.As(err, &ve), "amount %s", amount)
	}
}

func TestIssueCard(t *testing.T) {
	h := newHarness(t)
	rider := uuid.New()

	issued, err := h.svc.Card.Issue(context.Background(), Actor{ID: rider})
	require.NoError(t, err)
	assert.Equal(t, rider, issued.Card.RiderID)
	assert.True(t, issued.Card.Balance.IsZero())
	assert.Equal(t, entity.CardStatusActive, issued.Card.Status)
	assert.Regexp(t, `^IHC-[0-9A-F]{12}$`, issued.Card.CardNumber)

	cred, err := h.svc.Credential.Verify(issued.Credential)
	require.NoError(t, err)
	assert.Equal(t, CredentialCard, cred.Type)
	assert.Equal(t, issued.Card.ID.String(), cred.SubjectID)
	assert.Equal(t, issued.Card.CardNumber, cred.Extra["cardNumber"])

	_, err = h.svc.Card.Issue(context.Background(), Actor{})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestTopUpIsAdminOnly(t *testing.T) {
	h := newHarness(t)
	rider := uuid.New()
	card := h.db.addCard(rider, "0", entity.CardStatusActive)
	ctx := context.Background()

	req := &request.TopUpRequest{Amount: "2500", Reference: "BANK-77"}
	_, err := h.svc.Card.TopUp(ctx, Actor{ID: rider}, card.ID, req)
	assert.ErrorIs(t, err, ErrForbidden)

	txn, err := h.svc.Card.TopUp(ctx, admin, card.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "Top-up", txn.Description)
	assert.True(t, txn.NewBalance.Equal(dec("2500")))

	_, err = h.svc.Card.TopUp(ctx, admin, card.ID, &request.TopUpRequest{Amount: "abc", Reference: "x"})
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestSetCardStatus(t *testing.T) {
	h := newHarness(t)
	rider := uuid.New()
	card := h.db.addCard(rider, "0", entity.CardStatusActive)
	ctx := context.Background()
	owner := Actor{ID: rider}

	_, err := h.svc.Card.SetStatus(ctx, Actor{ID: uuid.New()}, card.ID, entity.CardStatusBlocked)
	assert.ErrorIs(t, err, ErrForbidden)

	blocked, err := h.svc.Card.SetStatus(ctx, owner, card.ID, entity.CardStatusBlocked)
	require.NoError(t, err)
	assert.Equal(t, entity.CardStatusBlocked, blocked.Status)

	_, err = h.svc.Card.SetStatus(ctx, owner, card.ID, entity.CardStatusActive)
	assert.ErrorIs(t, err, ErrForbidden)

	active, err := h.svc.Card.SetStatus(ctx, admin, card.ID, entity.CardStatusActive)
	require.NoError(t, err)
	assert.Equal(t, entity.CardStatusActive, active.Status)
	assert.Equal(t, entity.CardStatusActive, h.db.card(card.ID).Status)

	_, err = h.svc.Card.SetStatus(ctx, admin, card.ID, "frozen")
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestCardTransactionsHistory(t *testing.T) {
	h := newHarness(t)
	rider := uuid.New()
	card := h.db.addCard(rider, "0", entity.CardStatusActive)
	ctx := context.Background()

	for _, amount := range []string{"100", "200", "300"} {
		_, err := h.svc.Card.Credit(ctx, card.ID, dec(amount), "", "Top-up")
		require.NoError(t, err)
	}

	txns, total, err := h.svc.Card.Transactions(ctx, Actor{ID: rider}, card.ID, request.PaginatedRequest{Page: 1, PerPage: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, txns, 2)
	assert.True(t, txns[0].Amount.Equal(dec("300")))

	_, _, err = h.svc.Card.Transactions(ctx, Actor{ID: uuid.New()}, card.ID, request.PaginatedRequest{Page: 1, PerPage: 2})
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := h.svc.Card.Get(ctx, admin, card.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(dec("600")))
}

func TestListCardsForRider(t *testing.T) {
	h := newHarness(t)
	rider := uuid.New()
	first := h.db.addCard(rider, "100", entity.CardStatusActive)
	second := h.db.addCard(rider, "0", entity.CardStatusBlocked)
	h.db.addCard(uuid.New(), "900", entity.CardStatusActive)
	ctx := context.Background()

	cards, err := h.svc.Card.ListForRider(ctx, Actor{ID: rider})
	require.NoError(t, err)
	require.Len(t, cards, 2)

	var ids []uuid.UUID
	for _, c := range cards {
		assert.Equal(t, rider, c.RiderID)
		ids = append(ids, c.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{first.ID, second.ID}, ids)

	none, err := h.svc.Card.ListForRider(ctx, Actor{ID: uuid.New()})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = h.svc.Card.ListForRider(ctx, Actor{})
	assert.ErrorIs(t, err, ErrForbidden)
}
