package usecase

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"transit-booking/internal/data/entity"
	"transit-booking/internal/data/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const testSecret = "test-credential-secret-0123456789abcdef"

// memDB is an in-memory stand-in for Postgres. Transactions are serialized
// and rolled back from a snapshot; statements outside a transaction run as
// their own autocommit unit.
type memDB struct {
	mu sync.Mutex

	routes   map[uuid.UUID]entity.Route
	vehicles map[uuid.UUID]entity.Vehicle
	bookings map[uuid.UUID]entity.Booking
	payments map[uuid.UUID]entity.Payment
	cards    map[uuid.UUID]entity.Card
	txns     []entity.CardTransaction
	scans    []entity.TicketScan

	lockCalls int
	// journal records slot locks and confirm attempts in order.
	journal []string
	// onLock runs while LockSlot holds the slot, standing in for time spent
	// waiting on a concurrent reservation.
	onLock func()
}

func newMemDB() *memDB {
	return &memDB{
		routes:   map[uuid.UUID]entity.Route{},
		vehicles: map[uuid.UUID]entity.Vehicle{},
		bookings: map[uuid.UUID]entity.Booking{},
		payments: map[uuid.UUID]entity.Payment{},
		cards:    map[uuid.UUID]entity.Card{},
	}
}

type memSnapshot struct {
	bookings map[uuid.UUID]entity.Booking
	payments map[uuid.UUID]entity.Payment
	cards    map[uuid.UUID]entity.Card
	txns     []entity.CardTransaction
	scans    []entity.TicketScan
}

func (db *memDB) snapshot() memSnapshot {
	return memSnapshot{
		bookings: maps.Clone(db.bookings),
		payments: maps.Clone(db.payments),
		cards:    maps.Clone(db.cards),
		txns:     slices.Clone(db.txns),
		scans:    slices.Clone(db.scans),
	}
}

func (db *memDB) restore(s memSnapshot) {
	db.bookings = s.bookings
	db.payments = s.payments
	db.cards = s.cards
	db.txns = s.txns
	db.scans = s.scans
}

func (db *memDB) repository() *repository.Repository {
	return db.bind(false).WithTransactor(&memTransactor{db: db})
}

func (db *memDB) bind(inTx bool) *repository.Repository {
	c := &memConn{db: db, inTx: inTx}
	return &repository.Repository{
		Route:           memRoutes{c},
		Vehicle:         memVehicles{c},
		Inventory:       memInventory{c},
		Booking:         memBookings{c},
		Payment:         memPayments{c},
		Card:            memCards{c},
		CardTransaction: memCardTxns{c},
		TicketScan:      memScans{c},
	}
}

type memTransactor struct {
	db *memDB
}

func (t *memTransactor) Atomic(ctx context.Context, fn func(tx *repository.Repository) error) error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	snap := t.db.snapshot()
	if err := fn(t.db.bind(true)); err != nil {
		t.db.restore(snap)
		return err
	}
	return nil
}

type memConn struct {
	db   *memDB
	inTx bool
}

func (c *memConn) do(fn func(db *memDB)) {
	if !c.inTx {
		c.db.mu.Lock()
		defer c.db.mu.Unlock()
	}
	fn(c.db)
}

// seeding helpers run outside any transaction

func (db *memDB) addRoute(route entity.Route) entity.Route {
	db.mu.Lock()
	defer db.mu.Unlock()
	if route.ID == uuid.Nil {
		route.ID = uuid.New()
	}
	if route.CompanyID == uuid.Nil {
		route.CompanyID = uuid.New()
	}
	if route.Status == "" {
		route.Status = entity.RouteStatusActive
	}
	if route.TripKind == "" {
		route.TripKind = entity.TripKindLongDistance
	}
	db.routes[route.ID] = route
	return route
}

func (db *memDB) addVehicle(companyID uuid.UUID, capacity int) entity.Vehicle {
	db.mu.Lock()
	defer db.mu.Unlock()
	v := entity.Vehicle{
		Base:         entity.Base{ID: uuid.New()},
		CompanyID:    companyID,
		PlateNumber:  fmt.Sprintf("RAB%03d", len(db.vehicles)+1),
		SeatCapacity: capacity,
		Status:       entity.VehicleStatusActive,
	}
	db.vehicles[v.ID] = v
	return v
}

func (db *memDB) addCard(riderID uuid.UUID, balance string, status entity.CardStatus) entity.Card {
	db.mu.Lock()
	defer db.mu.Unlock()
	card := entity.Card{
		Base:       entity.Base{ID: uuid.New()},
		RiderID:    riderID,
		CardNumber: fmt.Sprintf("TC%014d", len(db.cards)+1),
		Balance:    decimal.RequireFromString(balance),
		Status:     status,
	}
	db.cards[card.ID] = card
	return card
}

func (db *memDB) setOnLock(fn func()) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.onLock = fn
	db.journal = nil
}

func (db *memDB) journalEntries() []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	return slices.Clone(db.journal)
}

func (db *memDB) booking(id uuid.UUID) entity.Booking {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.bookings[id]
}

func (db *memDB) card(id uuid.UUID) entity.Card {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.cards[id]
}

func (db *memDB) cardTxns(cardID uuid.UUID) []entity.CardTransaction {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []entity.CardTransaction
	for _, t := range db.txns {
		if t.CardID == cardID {
			out = append(out, t)
		}
	}
	return out
}

func (db *memDB) allScans() []entity.TicketScan {
	db.mu.Lock()
	defer db.mu.Unlock()
	return slices.Clone(db.scans)
}

func (db *memDB) paymentsFor(bookingID uuid.UUID) []entity.Payment {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []entity.Payment
	for _, p := range db.payments {
		if p.BookingID == bookingID {
			out = append(out, p)
		}
	}
	return out
}

// repositories

type memRoutes struct{ c *memConn }

func (r memRoutes) FindByID(ctx context.Context, id uuid.UUID) (route *entity.Route, err error) {
	r.c.do(func(db *memDB) {
		if v, ok := db.routes[id]; ok {
			route = &v
		}
	})
	return route, nil
}

type memVehicles struct{ c *memConn }

func (r memVehicles) FindByID(ctx context.Context, id uuid.UUID) (vehicle *entity.Vehicle, err error) {
	r.c.do(func(db *memDB) {
		if v, ok := db.vehicles[id]; ok {
			vehicle = &v
		}
	})
	return vehicle, nil
}

func (r memVehicles) FindActiveForRoute(ctx context.Context, routeID uuid.UUID) (vehicle *entity.Vehicle, err error) {
	r.c.do(func(db *memDB) {
		route, ok := db.routes[routeID]
		if !ok {
			return
		}
		for _, v := range db.vehicles {
			if v.CompanyID != route.CompanyID || v.Status != entity.VehicleStatusActive {
				continue
			}
			if vehicle == nil || v.SeatCapacity > vehicle.SeatCapacity {
				v := v
				vehicle = &v
			}
		}
	})
	return vehicle, nil
}

type memInventory struct{ c *memConn }

func (r memInventory) LockSlot(ctx context.Context, routeID uuid.UUID, departureDate time.Time) error {
	r.c.do(func(db *memDB) {
		db.lockCalls++
		db.journal = append(db.journal, "lock "+repository.SlotKey(routeID, departureDate))
		if db.onLock != nil {
			db.onLock()
		}
	})
	return nil
}

func (r memInventory) CommittedSeats(ctx context.Context, routeID uuid.UUID, departureDate, now time.Time) (total int, err error) {
	r.c.do(func(db *memDB) {
		for _, b := range db.bookings {
			if b.RouteID == routeID && b.DepartureDate.Equal(departureDate) && b.HoldsSeats(now) {
				total += b.SeatCount
			}
		}
	})
	return total, nil
}

type memBookings struct{ c *memConn }

func (r memBookings) Create(ctx context.Context, booking *entity.Booking) (err error) {
	r.c.do(func(db *memDB) {
		for _, b := range db.bookings {
			if b.BookingReference == booking.BookingReference {
				err = fmt.Errorf("duplicate booking_reference %s", booking.BookingReference)
				return
			}
		}
		db.bookings[booking.ID] = *booking
	})
	return err
}

func (r memBookings) FindByID(ctx context.Context, id uuid.UUID) (booking *entity.Booking, err error) {
	r.c.do(func(db *memDB) {
		if b, ok := db.bookings[id]; ok {
			booking = &b
		}
	})
	return booking, nil
}

func (r memBookings) FindByReference(ctx context.Context, reference string) (booking *entity.Booking, err error) {
	r.c.do(func(db *memDB) {
		for _, b := range db.bookings {
			if b.BookingReference == reference {
				booking = &b
				return
			}
		}
	})
	return booking, nil
}

func (r memBookings) FindByRiderID(ctx context.Context, riderID uuid.UUID, limit, offset int) (out []*entity.Booking, err error) {
	r.c.do(func(db *memDB) {
		for _, b := range db.bookings {
			if b.RiderID == riderID {
				b := b
				out = append(out, &b)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

func (r memBookings) CountByRiderID(ctx context.Context, riderID uuid.UUID) (n int64, err error) {
	r.c.do(func(db *memDB) {
		for _, b := range db.bookings {
			if b.RiderID == riderID {
				n++
			}
		}
	})
	return n, nil
}

func (r memBookings) Confirm(ctx context.Context, p repository.ConfirmParams) (ok bool, err error) {
	r.c.do(func(db *memDB) {
		db.journal = append(db.journal, "confirm "+p.BookingID.String())
		b, found := db.bookings[p.BookingID]
		if !found || b.Status != entity.BookingStatusPending || !b.ExpiresAt.After(p.Now) {
			return
		}
		method, reference, credential, now := p.Method, p.Reference, p.Credential, p.Now
		b.Status = entity.BookingStatusConfirmed
		b.PaymentStatus = entity.BookingPaymentPaid
		b.PaymentMethod = &method
		b.PaymentReference = &reference
		b.TicketCredential = &credential
		b.PaidAt = &now
		b.UpdatedAt = now
		db.bookings[b.ID] = b
		ok = true
	})
	return ok, nil
}

func (r memBookings) Cancel(ctx context.Context, p repository.CancelParams) (ok bool, err error) {
	r.c.do(func(db *memDB) {
		b, found := db.bookings[p.BookingID]
		if !found || b.Status != p.FromStatus {
			return
		}
		now := p.Now
		b.Status = entity.BookingStatusCancelled
		if b.PaymentStatus == entity.BookingPaymentPaid {
			b.PaymentStatus = entity.BookingPaymentRefunded
		}
		b.RefundAmount = p.RefundAmount
		b.RefundPercent = p.RefundPercent
		b.CancelledAt = &now
		b.UpdatedAt = now
		db.bookings[b.ID] = b
		ok = true
	})
	return ok, nil
}

func (r memBookings) MarkCompleted(ctx context.Context, bookingID uuid.UUID, now time.Time) (ok bool, err error) {
	r.c.do(func(db *memDB) {
		b, found := db.bookings[bookingID]
		if !found || b.Status != entity.BookingStatusConfirmed {
			return
		}
		b.Status = entity.BookingStatusCompleted
		b.CompletedAt = &now
		b.UpdatedAt = now
		db.bookings[b.ID] = b
		ok = true
	})
	return ok, nil
}

func (r memBookings) MarkPaymentFailed(ctx context.Context, bookingID uuid.UUID, now time.Time) (ok bool, err error) {
	r.c.do(func(db *memDB) {
		b, found := db.bookings[bookingID]
		if !found || b.Status != entity.BookingStatusPending {
			return
		}
		if b.PaymentStatus != entity.BookingPaymentUnpaid && b.PaymentStatus != entity.BookingPaymentFailed {
			return
		}
		b.PaymentStatus = entity.BookingPaymentFailed
		b.UpdatedAt = now
		db.bookings[b.ID] = b
		ok = true
	})
	return ok, nil
}

func (r memBookings) ExpirePending(ctx context.Context, now time.Time, limit int) (ids []uuid.UUID, err error) {
	r.c.do(func(db *memDB) {
		var lapsed []entity.Booking
		for _, b := range db.bookings {
			if b.Status == entity.BookingStatusPending && !b.ExpiresAt.After(now) {
				lapsed = append(lapsed, b)
			}
		}
		sort.Slice(lapsed, func(i, j int) bool { return lapsed[i].ExpiresAt.Before(lapsed[j].ExpiresAt) })
		if len(lapsed) > limit {
			lapsed = lapsed[:limit]
		}
		for _, b := range lapsed {
			b.Status = entity.BookingStatusExpired
			b.UpdatedAt = now
			db.bookings[b.ID] = b
			ids = append(ids, b.ID)
		}
	})
	return ids, nil
}

type memPayments struct{ c *memConn }

func (r memPayments) Create(ctx context.Context, payment *entity.Payment) (err error) {
	r.c.do(func(db *memDB) {
		if payment.CorrelationID != nil {
			for _, p := range db.payments {
				if p.CorrelationID != nil && *p.CorrelationID == *payment.CorrelationID {
					err = fmt.Errorf("duplicate correlation_id %s", *payment.CorrelationID)
					return
				}
			}
		}
		db.payments[payment.ID] = *payment
	})
	return err
}

func (r memPayments) FindByID(ctx context.Context, id uuid.UUID) (payment *entity.Payment, err error) {
	r.c.do(func(db *memDB) {
		if v, ok := db.payments[id]; ok {
			payment = &v
		}
	})
	return payment, nil
}

func (r memPayments) riderPayments(db *memDB, riderID uuid.UUID) []*entity.Payment {
	var out []*entity.Payment
	for _, p := range db.payments {
		if b, ok := db.bookings[p.BookingID]; ok && b.RiderID == riderID {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r memPayments) FindByRiderID(ctx context.Context, riderID uuid.UUID, limit, offset int) (out []*entity.Payment, err error) {
	r.c.do(func(db *memDB) { out = r.riderPayments(db, riderID) })
	return page(out, limit, offset), nil
}

func (r memPayments) CountByRiderID(ctx context.Context, riderID uuid.UUID) (n int64, err error) {
	r.c.do(func(db *memDB) { n = int64(len(r.riderPayments(db, riderID))) })
	return n, nil
}

func (r memPayments) FindByCorrelationID(ctx context.Context, correlationID string) (payment *entity.Payment, err error) {
	r.c.do(func(db *memDB) {
		for _, p := range db.payments {
			if p.CorrelationID != nil && *p.CorrelationID == correlationID {
				payment = &p
				return
			}
		}
	})
	return payment, nil
}

func (r memPayments) FindLatestByBookingID(ctx context.Context, bookingID uuid.UUID, status entity.PaymentStatus) (payment *entity.Payment, err error) {
	r.c.do(func(db *memDB) {
		for _, p := range db.payments {
			if p.BookingID != bookingID || p.Status != status {
				continue
			}
			if payment == nil || p.CreatedAt.After(payment.CreatedAt) {
				p := p
				payment = &p
			}
		}
	})
	return payment, nil
}

func (r memPayments) UpdateStatus(ctx context.Context, paymentID uuid.UUID, from, to entity.PaymentStatus, now time.Time) (ok bool, err error) {
	r.c.do(func(db *memDB) {
		p, found := db.payments[paymentID]
		if !found || p.Status != from {
			return
		}
		p.Status = to
		p.UpdatedAt = now
		db.payments[p.ID] = p
		ok = true
	})
	return ok, nil
}

type memCards struct{ c *memConn }

func (r memCards) Create(ctx context.Context, card *entity.Card) (err error) {
	r.c.do(func(db *memDB) { db.cards[card.ID] = *card })
	return nil
}

func (r memCards) FindByID(ctx context.Context, id uuid.UUID) (card *entity.Card, err error) {
	r.c.do(func(db *memDB) {
		if v, ok := db.cards[id]; ok {
			card = &v
		}
	})
	return card, nil
}

func (r memCards) FindByRiderID(ctx context.Context, riderID uuid.UUID) (out []*entity.Card, err error) {
	r.c.do(func(db *memDB) {
		for _, card := range db.cards {
			if card.RiderID == riderID {
				card := card
				out = append(out, &card)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r memCards) ApplyDelta(ctx context.Context, p repository.BalanceDelta) (change repository.BalanceChange, ok bool, err error) {
	r.c.do(func(db *memDB) {
		card, found := db.cards[p.CardID]
		if !found || card.Status != entity.CardStatusActive {
			return
		}
		next := card.Balance.Add(p.Delta)
		if next.IsNegative() {
			return
		}
		change = repository.BalanceChange{PreviousBalance: card.Balance, NewBalance: next}
		card.Balance = next
		if p.Delta.IsNegative() {
			now := p.Now
			card.LastUsedAt = &now
		}
		if p.RouteID != nil {
			routeID := *p.RouteID
			card.LastUsedRouteID = &routeID
		}
		card.UpdatedAt = p.Now
		db.cards[card.ID] = card
		ok = true
	})
	return change, ok, nil
}

func (r memCards) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.CardStatus, now time.Time) (ok bool, err error) {
	r.c.do(func(db *memDB) {
		card, found := db.cards[id]
		if !found {
			return
		}
		card.Status = status
		card.UpdatedAt = now
		db.cards[id] = card
		ok = true
	})
	return ok, nil
}

type memCardTxns struct{ c *memConn }

func (r memCardTxns) Create(ctx context.Context, txn *entity.CardTransaction) error {
	r.c.do(func(db *memDB) { db.txns = append(db.txns, *txn) })
	return nil
}

func (r memCardTxns) FindByCardID(ctx context.Context, cardID uuid.UUID, limit, offset int) (out []*entity.CardTransaction, err error) {
	r.c.do(func(db *memDB) {
		for i := len(db.txns) - 1; i >= 0; i-- {
			if t := db.txns[i]; t.CardID == cardID {
				out = append(out, &t)
			}
		}
	})
	return page(out, limit, offset), nil
}

func (r memCardTxns) CountByCardID(ctx context.Context, cardID uuid.UUID) (n int64, err error) {
	r.c.do(func(db *memDB) {
		for _, t := range db.txns {
			if t.CardID == cardID {
				n++
			}
		}
	})
	return n, nil
}

type memScans struct{ c *memConn }

func (r memScans) Create(ctx context.Context, scan *entity.TicketScan) error {
	r.c.do(func(db *memDB) { db.scans = append(db.scans, *scan) })
	return nil
}

func matchScan(f repository.TicketScanFilter, s entity.TicketScan) bool {
	eq := func(want, got *uuid.UUID) bool {
		return want == nil || (got != nil && *got == *want)
	}
	return eq(f.VehicleID, s.VehicleID) && eq(f.BookingID, s.BookingID) &&
		(f.ScannerID == nil || *f.ScannerID == s.ScannerID)
}

func (r memScans) Find(ctx context.Context, f repository.TicketScanFilter, limit, offset int) (out []*entity.TicketScan, err error) {
	r.c.do(func(db *memDB) {
		for i := len(db.scans) - 1; i >= 0; i-- {
			if s := db.scans[i]; matchScan(f, s) {
				out = append(out, &s)
			}
		}
	})
	return page(out, limit, offset), nil
}

func (r memScans) Count(ctx context.Context, f repository.TicketScanFilter) (n int64, err error) {
	r.c.do(func(db *memDB) {
		for _, s := range db.scans {
			if matchScan(f, s) {
				n++
			}
		}
	})
	return n, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := min(offset+limit, len(items))
	return items[offset:end]
}

// collaborators

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock(t time.Time) *testClock { return &testClock{t: t} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingNotifier struct {
	mu            sync.Mutex
	receipts      []ReceiptNotice
	cancellations []CancellationNotice
	err           error
}

func (n *recordingNotifier) PaymentReceipt(ctx context.Context, notice ReceiptNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.receipts = append(n.receipts, notice)
	return n.err
}

func (n *recordingNotifier) CancellationNotice(ctx context.Context, notice CancellationNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancellations = append(n.cancellations, notice)
	return n.err
}

type fakeGateway struct {
	mu        sync.Mutex
	status    GatewayStatus
	initiated []MobileMoneyRequest
	err       error
}

func (g *fakeGateway) Initiate(ctx context.Context, req MobileMoneyRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	g.initiated = append(g.initiated, req)
	return uuid.NewString(), nil
}

func (g *fakeGateway) Status(ctx context.Context, correlationID string) (GatewayStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status, g.err
}

type memIdempotency struct {
	mu   sync.Mutex
	keys map[string]string
	err  error
}

func newMemIdempotency() *memIdempotency {
	return &memIdempotency{keys: map[string]string{}}
}

func (m *memIdempotency) Claim(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", false, m.err
	}
	value, ok := m.keys[key]
	if !ok {
		m.keys[key] = ""
		return "", true, nil
	}
	return value, false, nil
}

func (m *memIdempotency) Complete(ctx context.Context, key, result string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = result
	return nil
}

func (m *memIdempotency) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

// harness

type harness struct {
	db       *memDB
	clock    *testClock
	notifier *recordingNotifier
	gateway  *fakeGateway
	idem     *memIdempotency
	svc      *Service
	policy   BookingPolicy
}

// testStart is a Wednesday morning in Kigali.
var testStart = time.Date(2025, 3, 12, 8, 0, 0, 0, time.UTC)

func newHarness(t *testing.T) *harness {
	t.Helper()

	log := zap.NewNop()
	db := newMemDB()
	clock := newTestClock(testStart)

	credentials, err := NewCredentialService(testSecret, log)
	if err != nil {
		t.Fatalf("credential service: %v", err)
	}
	credentials.(*credentialService).now = clock.Now

	kigali, err := time.LoadLocation("Africa/Kigali")
	if err != nil {
		kigali = time.FixedZone("CAT", 2*60*60)
	}

	policy := BookingPolicy{
		HoldWindow:     10 * time.Minute,
		MaxSeats:       8,
		SweepBatchSize: 2,
		BookingTTL:     30 * 24 * time.Hour,
		ShortTripTTL:   24 * time.Hour,
		CardTTL:        365 * 24 * time.Hour,
		Currency:       "RWF",
		Location:       kigali,
	}

	h := &harness{
		db:       db,
		clock:    clock,
		notifier: &recordingNotifier{},
		gateway:  &fakeGateway{status: GatewayPending},
		idem:     newMemIdempotency(),
		policy:   policy,
	}
	deps := Dependencies{Notifier: h.notifier, Gateway: h.gateway, Idempotency: h.idem}
	h.svc = newService(db.repository(), FareEngine{}, credentials, deps, policy, clock.Now, log)
	return h
}

// route seeds an active route priced at price with one vehicle of capacity seats.
func (h *harness) route(price string, capacity int) entity.Route {
	route := h.db.addRoute(entity.Route{
		Origin:          "Kigali",
		Destination:     "Huye",
		PricePerSeat:    decimal.RequireFromString(price),
		DiscountPercent: decimal.Zero,
	})
	h.db.addVehicle(route.CompanyID, capacity)
	return route
}
