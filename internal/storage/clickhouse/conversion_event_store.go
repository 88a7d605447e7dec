package clickhouse

import (
	"context"
	"fmt"

	"stablebond-keeper/internal/domain"
	"stablebond-keeper/internal/storage"
)

// ConversionEventStore implements storage.ConversionEventStore using ClickHouse.
type ConversionEventStore struct {
	conn *Conn
}

// NewConversionEventStore creates a new ConversionEventStore.
func NewConversionEventStore(conn *Conn) *ConversionEventStore {
	return &ConversionEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ConversionEventStore = (*ConversionEventStore)(nil)

// Insert adds an event. Returns ErrDuplicateKey if (user, nonce) exists.
func (s *ConversionEventStore) Insert(ctx context.Context, e *domain.ConversionEvent) error {
	if e == nil || e.User == "" {
		return storage.ErrInvalidInput
	}

	var count uint64
	err := s.conn.QueryRow(ctx, `
		SELECT count(*) FROM conversion_events
		WHERE user_address = ? AND nonce = ?
	`, e.User, e.Nonce).Scan(&count)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if count > 0 {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO conversion_events (
			user_address, bond_type, nonce, source_amount, settlement_received,
			exchange_rate, fee_paid, shares_issued, slot, signature, timestamp_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		e.User, uint8(e.BondType), e.Nonce, e.SourceAmount, e.SettlementReceived,
		e.ExchangeRate, e.FeePaid, e.SharesIssued, e.Slot, e.Signature, e.TimestampMs,
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByUser retrieves a user's conversions ordered by nonce ASC.
func (s *ConversionEventStore) GetByUser(ctx context.Context, user string) ([]*domain.ConversionEvent, error) {
	query := `
		SELECT user_address, bond_type, nonce, source_amount, settlement_received,
			exchange_rate, fee_paid, shares_issued, slot, signature, timestamp_ms
		FROM conversion_events FINAL
		WHERE user_address = ?
		ORDER BY nonce ASC
	`

	rows, err := s.conn.Query(ctx, query, user)
	if err != nil {
		return nil, fmt.Errorf("query by user: %w", err)
	}
	defer rows.Close()

	return scanConversionEvents(rows)
}

func scanConversionEvents(rows chRows) ([]*domain.ConversionEvent, error) {
	var result []*domain.ConversionEvent
	for rows.Next() {
		var e domain.ConversionEvent
		var bondType uint8
		err := rows.Scan(
			&e.User, &bondType, &e.Nonce, &e.SourceAmount, &e.SettlementReceived,
			&e.ExchangeRate, &e.FeePaid, &e.SharesIssued, &e.Slot, &e.Signature, &e.TimestampMs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan conversion event: %w", err)
		}
		e.BondType = domain.BondType(bondType)
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversion events: %w", err)
	}
	return result, nil
}
