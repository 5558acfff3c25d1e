package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"transit-booking/internal/data/entity"
	"transit-booking/internal/data/repository"
	"transit-booking/internal/dto/request"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (h *harness) confirm(t *testing.T, booking *entity.Booking) *entity.Booking {
	t.Helper()
	confirmed, err := h.svc.Booking.ConfirmPayment(context.Background(), booking.ID, PaymentProof{
		Method:    entity.PaymentMethodMobileMoney,
		Reference: "MOMO-" + booking.BookingReference,
		Amount:    booking.TotalPrice,
	})
	require.NoError(t, err)
	return confirmed
}

func TestCreateBooking(t *testing.T) {
	h := newHarness(t)
	route := h.route("1000", 30)
	rider := uuid.New()

	booking, err := h.book(rider, route, "2025-03-14", "07:30", 3)
	require.NoError(t, err)

	assert.Equal(t, entity.BookingStatusPending, booking.Status)
	assert.Equal(t, entity.BookingPaymentUnpaid, booking.PaymentStatus)
	assert.Equal(t, rider, booking.RiderID)
	assert.Equal(t, 3, booking.SeatCount)
	assert.Len(t, booking.PassengerNames, 3)
	assert.True(t, booking.TotalPrice.Equal(dec("3540")))
	assert.Regexp(t, `^EHUT-20250312-[0-9A-F]{8}$`, booking.BookingReference)
	assert.True(t, booking.ExpiresAt.Equal(testStart.Add(10*time.Minute)))

	// 07:30 in Kigali is 05:30 UTC; the slot key is the local calendar date.
	assert.True(t, booking.DepartureDate.Equal(slot("2025-03-14")))
	assert.True(t, booking.DepartureAt.Equal(time.Date(2025, 3, 14, 5, 30, 0, 0, time.UTC)))

	stored := h.db.booking(booking.ID)
	assert.Equal(t, booking.BookingReference, stored.BookingReference)
}

func TestCreateBookingValidation(t *testing.T) {
	h := newHarness(t)
	route := h.route("1000", 30)
	rider := Actor{ID: uuid.New()}
	ctx := context.Background()

	mismatch := bookingRequest(route.ID, "2025-03-14", "", 2)
	mismatch.PassengerNames = mismatch.PassengerNames[:1]

	blank := bookingRequest(route.ID, "2025-03-14", "", 2)
	blank.PassengerNames[1] = "   "

	tooMany := bookingRequest(route.ID, "2025-03-14", "", 8)
	tooMany.SeatCount = 9

	tests := map[string]*request.CreateBookingRequest{
		"names do not match seats": mismatch,
		"blank passenger name":     blank,
		"too many seats":           tooMany,
		"past date":                bookingRequest(route.ID, "2025-03-11", "", 1),
		"past time today":          bookingRequest(route.ID, "2025-03-12", "09:00", 1),
		"bad date":                 bookingRequest(route.ID, "14/03/2025", "", 1),
		"bad route":                {RouteID: "nope", DepartureDate: "2025-03-14", SeatCount: 1, PassengerNames: []string{"A"}},
	}

	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := h.svc.Booking.Create(ctx, rider, req)
			var ve *ValidationError
			assert.True(t, errors.As(err, &ve), "got %v", err)
		})
	}

	// Later today is still bookable.
	_, err := h.svc.Booking.Create(ctx, rider, bookingRequest(route.ID, "2025-03-12", "18:00", 1))
	require.NoError(t, err)

	_, err = h.svc.Booking.Create(ctx, Actor{}, bookingRequest(route.ID, "2025-03-14", "", 1))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCreateBookingIdempotencyKey(t *testing.T) {
	h := newHarness(t)
	route := h.route("1000", 30)
	rider := Actor{ID: uuid.New()}
	ctx := context.Background()

	req := bookingRequest(route.ID, "2025-03-14", "", 2)
	req.IdempotencyKey = "retry-1"

	first, err := h.svc.Booking.Create(ctx, rider, req)
	require.NoError(t, err)
	second, err := h.svc.Booking.Create(ctx, rider, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	avail, err := h.svc.Inventory.Availability(ctx, route.ID, slot("2025-03-14"))
	require.NoError(t, err)
	assert.Equal(t, 2, avail.Committed)

	// A failed request frees its key.
	small := h.route("1000", 1)
	full := bookingRequest(small.ID, "2025-03-14", "", 2)
	full.IdempotencyKey = "retry-2"
	_, err = h.svc.Booking.Create(ctx, rider, full)
	var capacity *CapacityExceededError
	require.True(t, errors.As(err, &capacity))
	_, held := h.idem.keys["booking:"+rider.ID.String()+":retry-2"]
	assert.False(t, held)

	// An unavailable store does not block booking.
	h.idem.err = errors.New("redis down")
	req.IdempotencyKey = "retry-3"
	_, err = h.svc.Booking.Create(ctx, rider, req)
	require.NoError(t, err)
}

func TestCreateBookingInProgressKey(t *testing.T) {
	h := newHarness(t)
	route := h.route("1000", 30)
	rider := Actor{ID: uuid.New()}

	h.idem.keys["booking:"+rider.ID.String()+":dup"] = ""

	req := bookingRequest(route.ID, "2025-03-14", "", 1)
	req.IdempotencyKey = "dup"
	_, err := h.svc.Booking.Create(context.Background(), rider, req)
	assert.ErrorIs(t, err, ErrRequestInProgress)
}

func TestConfirmPayment(t *testing.T) {
	h := newHarness(t)
	route := h.route("1000", 30)
	rider := uuid.New()

	booking, err := h.book(rider, route, "2025-03-14", "", 2)
	require.NoError(t, err)

	confirmed := h.confirm(t, booking)
	assert.Equal(t, entity.BookingStatusConfirmed, confirmed.Status)
	assert.Equal(t, entity.BookingPaymentPaid, confirmed.PaymentStatus)
	require.NotNil(t, confirmed.TicketCredential)

	cred, err := h.svc.Credential.Verify(*confirmed.TicketCredential)
	require.NoError(t, err)
	assert.Equal(t, CredentialBooking, cred.Type)
	assert.Equal(t, booking.ID.String(), cred.SubjectID)
	assert.Equal(t, rider.String(), cred.RiderID)
	assert.Equal(t, booking.BookingReference, cred.Extra["bookingReference"])
	assert.Equal(t, "2025-03-14", cred.Extra["departureDate"])

	require.Len(t, h.notifier.receipts, 1)
	assert.Equal(t, booking.BookingReference, h.notifier.receipts[0].BookingReference)
	assert.Equal(t, *confirmed.TicketCredential, h.notifier.receipts[0].TicketPayload)

	_, err = h.svc.Booking.ConfirmPayment(context.Background(), booking.ID, PaymentProof{
		Method: entity.PaymentMethodMobileMoney, Reference: "again", Amount: booking.TotalPrice,
	})
	var state *InvalidStateError
	require.True(t, errors.As(err, &state))
	assert.Equal(t, "confirmed", state.Status)
}

func TestConfirmPaymentRejections(t *testing.T) {
	h := newHarness(t)
	route := h.route("1500", 20)
	ctx := context.Background()

	booking, err := h.book(uuid.New(), route, "2025-03-14", "", 1)
	require.NoError(t, err)

	_, err = h.svc.Booking.ConfirmPayment(ctx, booking.ID, PaymentProof{Method: entity.PaymentMethodMobileMoney, Reference: "r", Amount: dec("1")})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "amount", ve.Field)

	_, err = h.svc.Booking.ConfirmPayment(ctx, booking.ID, PaymentProof{Method: entity.PaymentMethodMobileMoney, Amount: booking.TotalPrice})
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "reference", ve.Field)

	_, err = h.svc.Booking.ConfirmPayment(ctx, uuid.New(), PaymentProof{Reference: "r"})
	var notFound *NotFoundError
	assert.True(t, errors.As(err, &notFound))

	h.clock.Advance(10 * time.Minute)
	_, err = h.svc.Booking.ConfirmPayment(ctx, booking.ID, PaymentProof{Method: entity.PaymentMethodMobileMoney, Reference: "r", Amount: booking.TotalPrice})
	assert.ErrorIs(t, err, ErrBookingExpired)
	assert.Empty(t, h.notifier.receipts)
}

func TestShortTripCredentialKind(t *testing.T) {
	h := newHarness(t)
	route := h.db.addRoute(entity.Route{TripKind: entity.TripKindShortTrip, PricePerSeat: dec("300"), DiscountPercent: dec("0")})
	h.db.addVehicle(route.CompanyID, 50)

	booking, err := h.book(uuid.New(), route, "2025-03-12", "18:00", 1)
	require.NoError(t, err)
	confirmed := h.confirm(t, booking)

	cred, err := h.svc.Credential.Verify(*confirmed.TicketCredential)
	require.NoError(t, err)
	assert.Equal(t, CredentialShortTrip, cred.Type)
	assert.True(t, cred.ExpiresAt.Equal(testStart.Add(24*time.Hour)))
}

func TestCancelRefundPolicy(t *testing.T) {
	tests := []struct {
		name    string
		date    string
		clock   string
		percent int
		refund  string
	}{
		// testStart is 10:00 local; 16:00 local tomorrow is 30h away.
		{"more than a day ahead", "2025-03-13", "16:00", 100, "1180.00"},
		// 20:00 local today is 10h away.
		{"within a day", "2025-03-12", "20:00", 50, "590.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			route := h.route("1000", 30)
			rider := uuid.New()

			booking, err := h.book(rider, route, tt.date, tt.clock, 1)
			require.NoError(t, err)
			h.confirm(t, booking)

			result, err := h.svc.Booking.Cancel(context.Background(), Actor{ID: rider}, booking.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.percent, result.RefundPercent)
			assert.Equal(t, tt.refund, result.RefundAmount.StringFixed(2))
			assert.Equal(t, entity.BookingStatusCancelled, result.Booking.Status)
			assert.Equal(t, entity.BookingPaymentRefunded, result.Booking.PaymentStatus)

			stored := h.db.booking(booking.ID)
			assert.Equal(t, entity.BookingStatusCancelled, stored.Status)
			assert.Equal(t, tt.refund, stored.RefundAmount.StringFixed(2))

			require.Len(t, h.notifier.cancellations, 1)
			assert.Equal(t, tt.percent, h.notifier.cancellations[0].RefundPercent)
		})
	}
}

func TestRefundPercentBoundary(t *testing.T) {
	now := testStart
	assert.Equal(t, 100, RefundPercent(now.Add(24*time.Hour+time.Second), now))
	assert.Equal(t, 50, RefundPercent(now.Add(24*time.Hour), now))
	assert.Equal(t, 50, RefundPercent(now.Add(-time.Hour), now))
}

func TestCancelUnpaidBookingRefundsNothing(t *testing.T) {
	h := newHarness(t)
	route := h.route("1000", 2)
	rider := uuid.New()

	booking, err := h.book(rider, route, "2025-03-14", "", 2)
	require.NoError(t, err)

	result, err := h.svc.Booking.Cancel(context.Background(), Actor{ID: rider}, booking.ID)
	require.NoError(t, err)
	assert.True(t, result.RefundAmount.IsZero())
	assert.Equal(t, entity.BookingPaymentUnpaid, result.Booking.PaymentStatus)

	// Seats are released immediately.
	_, err = h.book(uuid.New(), route, "2025-03-14", "", 2)
	require.NoError(t, err)
}

func TestCancelTwice(t *testing.T) {
	h := newHarness(t)
	route := h.route("1000", 30)
	rider := uuid.New()

	booking, err := h.book(rider, route, "2025-03-14", "", 1)
	require.NoError(t, err)

	_, err = h.svc.Booking.Cancel(context.Background(), Actor{ID: rider}, booking.ID)
	require.NoError(t, err)

	_, err = h.svc.Booking.Cancel(context.Background(), Actor{ID: rider}, booking.ID)
	var state *InvalidStateError
	require.True(t, errors.As(err, &state))
	assert.Equal(t, "cancelled", state.Status)
	assert.Len(t, h.notifier.cancellations, 1)
}

func TestConcurrentCancelSucceedsOnce(t *testing.T) {
	h := newHarness(t)
	route := h.route("1000", 30)
	rider := uuid.New()

	booking, err := h.book(rider, route, "2025-03-14", "", 1)
	require.NoError(t, err)
	h.confirm(t, booking)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.svc.Booking.Cancel(context.Background(), Actor{ID: rider}, booking.ID); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
}

func TestCancelRequiresOwnership(t *testing.T) {
	h := newHarness(t)
	route := h.route("1000", 30)
	rider := uuid.New()

	booking, err := h.book(rider, route, "2025-03-14", "", 1)
	require.NoError(t, err)

	_, err = h.svc.Booking.Cancel(context.Background(), Actor{ID: uuid.New()}, booking.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = h.svc.Booking.Cancel(context.Background(), Actor{ID: uuid.New(), IsAdmin: true}, booking.ID)
	assert.NoError(t, err)
}

func TestCancelCompletedBookingFails(t *testing.T) {
	h := newHarness(t)
	route := h.route("1000", 30)
	rider := uuid.New()

	booking, err := h.book(rider, route, "2025-03-14", "", 1)
	require.NoError(t, err)
	h.confirm(t, booking)
	_, err = h.svc.Booking.MarkCompleted(context.Background(), booking.ID)
	require.NoError(t, err)

	_, err = h.svc.Booking.Cancel(context.Background(), Actor{ID: rider}, booking.ID)
	var state *InvalidStateError
	require.True(t, errors.As(err, &state))
	assert.Equal(t, "completed", state.Status)

	_, err = h.svc.Booking.MarkCompleted(context.Background(), booking.ID)
	require.True(t, errors.As(err, &state))
}

func TestExpirePending(t *testing.T) {
	h := newHarness(t)
	route := h.route("1000", 30)
	ctx := context.Background()

	var pending []*entity.Booking
	for range 5 {
		b, err := h.book(uuid.New(), route, "2025-03-14", "", 1)
		require.NoError(t, err)
		pending = append(pending, b)
	}
	h.confirm(t, pending[0])

	n, err := h.svc.Booking.ExpirePending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	h.clock.Advance(11 * time.Minute)
	fresh, err := h.book(uuid.New(), route, "2025-03-14", "", 1)
	require.NoError(t, err)

	// Batch size is two, so the four lapsed holds take several batches.
	n, err = h.svc.Booking.ExpirePending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	assert.Equal(t, entity.BookingStatusConfirmed, h.db.booking(pending[0].ID).Status)
	for _, b := range pending[1:] {
		assert.Equal(t, entity.BookingStatusExpired, h.db.booking(b.ID).Status)
	}
	assert.Equal(t, entity.BookingStatusPending, h.db.booking(fresh.ID).Status)

	n, err = h.svc.Booking.ExpirePending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestListAndGetBookings(t *testing.T) {
	h := newHarness(t)
	route := h.route("1000", 30)
	rider := uuid.New()
	ctx := context.Background()

	for range 3 {
		_, err := h.book(rider, route, "2025-03-14", "", 1)
		require.NoError(t, err)
		h.clock.Advance(time.Second)
	}
	other, err := h.book(uuid.New(), route, "2025-03-14", "", 1)
	require.NoError(t, err)

	list, total, err := h.svc.Booking.ListForRider(ctx, Actor{ID: rider}, request.PaginatedRequest{Page: 1, PerPage: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, list, 2)

	_, err = h.svc.Booking.Get(ctx, Actor{ID: rider}, other.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := h.svc.Booking.GetByReference(ctx, Actor{ID: rider, IsAdmin: true}, other.BookingReference)
	require.NoError(t, err)
	assert.Equal(t, other.ID, got.ID)

	_, err = h.svc.Booking.GetByReference(ctx, Actor{ID: rider}, "EHUT-NOPE")
	var notFound *NotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestNotificationFailureDoesNotFailConfirm(t *testing.T) {
	h := newHarness(t)
	h.notifier.err = errors.New("broker unavailable")
	route := h.route("1000", 30)

	booking, err := h.book(uuid.New(), route, "2025-03-14", "", 1)
	require.NoError(t, err)
	confirmed := h.confirm(t, booking)
	assert.Equal(t, entity.BookingStatusConfirmed, confirmed.Status)
	assert.Len(t, h.notifier.receipts, 1)
}

func TestConfirmTakesSlotLockFirst(t *testing.T) {
	h := newHarness(t)
	route := h.route("1000", 30)
	booking, err := h.book(uuid.New(), route, "2025-03-14", "", 1)
	require.NoError(t, err)

	h.db.setOnLock(nil)
	h.confirm(t, booking)

	assert.Equal(t, []string{
		"lock " + repository.SlotKey(route.ID, booking.DepartureDate),
		"confirm " + booking.ID.String(),
	}, h.db.journalEntries())
}

func TestConfirmReadsClockAfterSlotLock(t *testing.T) {
	h := newHarness(t)
	route := h.route("1000", 30)
	booking, err := h.book(uuid.New(), route, "2025-03-14", "", 1)
	require.NoError(t, err)

	// The hold is still live when confirm starts but lapses while it waits
	// for the slot.
	h.clock.Advance(9 * time.Minute)
	h.db.setOnLock(func() { h.clock.Advance(2 * time.Minute) })

	_, err = h.svc.Booking.ConfirmPayment(context.Background(), booking.ID, PaymentProof{
		Method:    entity.PaymentMethodMobileMoney,
		Reference: "MOMO-LATE",
		Amount:    booking.TotalPrice,
	})
	assert.ErrorIs(t, err, ErrBookingExpired)

	stored := h.db.booking(booking.ID)
	assert.Equal(t, entity.BookingStatusPending, stored.Status)
	assert.Nil(t, stored.TicketCredential)
	assert.NotContains(t, h.db.journalEntries(), "confirm "+booking.ID.String())
}

func TestLapsedHoldCannotBeConfirmedAfterSeatsResold(t *testing.T) {
	h := newHarness(t)
	route := h.route("1000", 2)
	lapsed, err := h.book(uuid.New(), route, "2025-03-14", "", 2)
	require.NoError(t, err)

	h.clock.Advance(11 * time.Minute)
	_, err = h.book(uuid.New(), route, "2025-03-14", "", 2)
	require.NoError(t, err)

	_, err = h.svc.Booking.ConfirmPayment(context.Background(), lapsed.ID, PaymentProof{
		Method:    entity.PaymentMethodMobileMoney,
		Reference: "MOMO-LATE",
		Amount:    lapsed.TotalPrice,
	})
	assert.ErrorIs(t, err, ErrBookingExpired)

	avail, err := h.svc.Inventory.Availability(context.Background(), route.ID, slot("2025-03-14"))
	require.NoError(t, err)
	assert.Equal(t, 2, avail.Committed)
	assert.Equal(t, 0, avail.Remaining)
}
