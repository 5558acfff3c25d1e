package repository

import (
	"context"

	"transit-booking/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type Repository struct {
	Route           RouteRepository
	Vehicle         VehicleRepository
	Inventory       InventoryRepository
	Booking         BookingRepository
	Payment         PaymentRepository
	Card            CardRepository
	CardTransaction CardTransactionRepository
	TicketScan      TicketScanRepository

	tx Transactor
}

// Transactor scopes a unit of work to a single transaction. Repositories
// handed to fn are bound to that transaction.
type Transactor interface {
	Atomic(ctx context.Context, fn func(tx *Repository) error) error
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	repo := newRepository(db, log)
	repo.tx = &pgxTransactor{db: db, log: log}
	return repo
}

func newRepository(q database.Querier, log *zap.Logger) *Repository {
	return &Repository{
		Route:           NewRouteRepository(q, log),
		Vehicle:         NewVehicleRepository(q, log),
		Inventory:       NewInventoryRepository(q, log),
		Booking:         NewBookingRepository(q, log),
		Payment:         NewPaymentRepository(q, log),
		Card:            NewCardRepository(q, log),
		CardTransaction: NewCardTransactionRepository(q, log),
		TicketScan:      NewTicketScanRepository(q, log),
	}
}

// WithTransactor returns a copy of r whose Atomic calls go through t.
func (r *Repository) WithTransactor(t Transactor) *Repository {
	cp := *r
	cp.tx = t
	return &cp
}

// Atomic runs fn inside a transaction. Calls made on a repository that is
// already transaction-bound join the open transaction.
func (r *Repository) Atomic(ctx context.Context, fn func(tx *Repository) error) error {
	if r.tx == nil {
		return fn(r)
	}
	return r.tx.Atomic(ctx, fn)
}

type pgxTransactor struct {
	db  database.PgxIface
	log *zap.Logger
}

func (t *pgxTransactor) Atomic(ctx context.Context, fn func(tx *Repository) error) error {
	return database.RunInTx(ctx, t.db, func(tx pgx.Tx) error {
		return fn(newRepository(tx, t.log))
	})
}
