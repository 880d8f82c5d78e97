package storage

import (
	"context"
	"fmt"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// SaveBudget inserts a budget, or updates it when budget.ID is set.
// On insert the new id is written back to budget.ID.
func (s *SQLiteStorage) SaveBudget(ctx context.Context, budget *model.Budget) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBudget(budget); err != nil {
		return err
	}

	if budget.ID != 0 {
		result, err := s.db.ExecContext(ctx, `
			UPDATE budgets
			SET category = ?, amount = ?, period = ?, start_date = ?, end_date = ?
			WHERE id = ?
		`, budget.Category, encodeAmount(budget.Amount), string(budget.Period),
			encodeTime(budget.StartDate), encodeTime(budget.EndDate), budget.ID)
		if err != nil {
			return fmt.Errorf("failed to update budget: %w", err)
		}
		return requireAffected(result, fmt.Sprintf("budget %d", budget.ID))
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO budgets (category, amount, period, start_date, end_date)
		VALUES (?, ?, ?, ?, ?)
	`, budget.Category, encodeAmount(budget.Amount), string(budget.Period),
		encodeTime(budget.StartDate), encodeTime(budget.EndDate))
	if err != nil {
		return fmt.Errorf("failed to insert budget: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get budget id: %w", err)
	}
	budget.ID = id
	return nil
}

// GetBudgets returns every budget in creation order.
func (s *SQLiteStorage) GetBudgets(ctx context.Context) ([]model.Budget, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category, amount, period, start_date, end_date
		FROM budgets
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var budgets []model.Budget
	for rows.Next() {
		var (
			b                  model.Budget
			amount, period     string
			startDate, endDate string
		)
		if err := rows.Scan(&b.ID, &b.Category, &amount, &period, &startDate, &endDate); err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		b.Period = model.BudgetPeriod(period)
		if b.Amount, err = decodeAmount(amount); err != nil {
			return nil, err
		}
		if b.StartDate, err = decodeTime(startDate); err != nil {
			return nil, err
		}
		if b.EndDate, err = decodeTime(endDate); err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// DeleteBudget removes a budget.
func (s *SQLiteStorage) DeleteBudget(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete budget: %w", err)
	}
	return requireAffected(result, fmt.Sprintf("budget %d", id))
}
