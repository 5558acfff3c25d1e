package repository

import (
	"context"
	"fmt"
	"strings"

	"transit-booking/internal/data/entity"
	"transit-booking/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TicketScanRepository is append-only.
type TicketScanRepository interface {
	Create(ctx context.Context, scan *entity.TicketScan) error
	Find(ctx context.Context, filter TicketScanFilter, limit, offset int) ([]*entity.TicketScan, error)
	Count(ctx context.Context, filter TicketScanFilter) (int64, error)
}

type TicketScanFilter struct {
	VehicleID *uuid.UUID
	ScannerID *uuid.UUID
	BookingID *uuid.UUID
}

func (f TicketScanFilter) where() (string, []any) {
	var conds []string
	var args []any

	add := func(column string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if f.VehicleID != nil {
		add("vehicle_id", *f.VehicleID)
	}
	if f.ScannerID != nil {
		add("scanner_id", *f.ScannerID)
	}
	if f.BookingID != nil {
		add("booking_id", *f.BookingID)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type ticketScanRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewTicketScanRepository(db database.Querier, log *zap.Logger) TicketScanRepository {
	return &ticketScanRepository{
		db:  db,
		log: log.With(zap.String("repository", "ticket_scan")),
	}
}

func (r *ticketScanRepository) Create(ctx context.Context, scan *entity.TicketScan) error {
	query := `
		INSERT INTO ticket_scans (id, booking_id, card_id, scanner_id, vehicle_id, route_id, scan_type, outcome, notes, scanned_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Exec(ctx, query,
		scan.ID,
		scan.BookingID,
		scan.CardID,
		scan.ScannerID,
		scan.VehicleID,
		scan.RouteID,
		scan.ScanType,
		scan.Outcome,
		scan.Notes,
		scan.ScannedAt,
		scan.CreatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create ticket scan",
			zap.Error(err),
			zap.String("scanner_id", scan.ScannerID.String()),
			zap.String("outcome", string(scan.Outcome)),
		)
		return fmt.Errorf("create ticket scan: %w", err)
	}

	return nil
}

func (r *ticketScanRepository) Find(ctx context.Context, filter TicketScanFilter, limit, offset int) ([]*entity.TicketScan, error) {
	where, args := filter.where()
	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT id, booking_id, card_id, scanner_id, vehicle_id, route_id, scan_type, outcome, notes, scanned_at, created_at
		FROM ticket_scans%s
		ORDER BY scanned_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to find ticket scans", zap.Error(err))
		return nil, fmt.Errorf("find ticket scans: %w", err)
	}
	defer rows.Close()

	var scans []*entity.TicketScan
	for rows.Next() {
		var scan entity.TicketScan
		err := rows.Scan(
			&scan.ID,
			&scan.BookingID,
			&scan.CardID,
			&scan.ScannerID,
			&scan.VehicleID,
			&scan.RouteID,
			&scan.ScanType,
			&scan.Outcome,
			&scan.Notes,
			&scan.ScannedAt,
			&scan.CreatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan ticket scan row", zap.Error(err))
			return nil, fmt.Errorf("scan ticket scan row: %w", err)
		}
		scans = append(scans, &scan)
	}

	return scans, rows.Err()
}

func (r *ticketScanRepository) Count(ctx context.Context, filter TicketScanFilter) (int64, error) {
	where, args := filter.where()

	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM ticket_scans`+where, args...).Scan(&count); err != nil {
		r.log.Error("Failed to count ticket scans", zap.Error(err))
		return 0, fmt.Errorf("count ticket scans: %w", err)
	}
	return count, nil
}
