package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/meniumate/internal/models"
)

// CreateTransaction persists a transaction and its splits.
func (s *SQLiteStore) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Date == 0 {
		t.Date = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO transactions (id, group_id, payer_id, total_amount, split_type, date)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.GroupID, t.PayerID, t.TotalAmount, string(t.SplitType), t.Date,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	for _, split := range t.Splits {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO splits (transaction_id, member_id, value) VALUES (?, ?, ?)",
			t.ID, split.MemberID, split.Value,
		)
		if err != nil {
			return fmt.Errorf("failed to insert split: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListTransactionsByGroup returns a group's transactions, newest first, with
// splits and the payer's current name.
func (s *SQLiteStore) ListTransactionsByGroup(ctx context.Context, groupID string) ([]*models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.group_id, t.payer_id, COALESCE(m.name, ''), t.total_amount, t.split_type, t.date
		 FROM transactions t
		 LEFT JOIN members m ON m.id = t.payer_id
		 WHERE t.group_id = ?
		 ORDER BY t.date DESC, t.id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	var txs []*models.Transaction
	byID := make(map[string]*models.Transaction)
	for rows.Next() {
		t := &models.Transaction{}
		var splitType string
		if err := rows.Scan(&t.ID, &t.GroupID, &t.PayerID, &t.PayerName, &t.TotalAmount, &splitType, &t.Date); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.SplitType = models.SplitType(splitType)
		txs = append(txs, t)
		byID[t.ID] = t
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	if len(txs) == 0 {
		return txs, nil
	}
	if err := s.attachSplits(ctx, groupID, byID); err != nil {
		return nil, err
	}
	return txs, nil
}

func (s *SQLiteStore) attachSplits(ctx context.Context, groupID string, byID map[string]*models.Transaction) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.transaction_id, s.member_id, s.value
		 FROM splits s
		 JOIN transactions t ON t.id = s.transaction_id
		 WHERE t.group_id = ?
		 ORDER BY s.rowid`,
		groupID,
	)
	if err != nil {
		return fmt.Errorf("failed to get splits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var txID string
		var split models.Split
		if err := rows.Scan(&txID, &split.MemberID, &split.Value); err != nil {
			return fmt.Errorf("failed to scan split: %w", err)
		}
		if t, ok := byID[txID]; ok {
			t.Splits = append(t.Splits, split)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate splits: %w", err)
	}
	return nil
}
