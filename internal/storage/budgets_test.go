package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
)

func TestSQLiteStorage_BudgetLifecycle(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	budget := model.MonthlyBudget("Food", decimal.RequireFromString("500.00"), time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	if err := store.SaveBudget(ctx, &budget); err != nil {
		t.Fatalf("SaveBudget() error = %v", err)
	}
	if budget.ID == 0 {
		t.Fatal("SaveBudget() did not assign an id")
	}

	budgets, err := store.GetBudgets(ctx)
	if err != nil {
		t.Fatalf("GetBudgets() error = %v", err)
	}
	if len(budgets) != 1 {
		t.Fatalf("got %d budgets, want 1", len(budgets))
	}
	got := budgets[0]
	if got.Category != "Food" || got.Period != model.PeriodMonthly || got.Amount.StringFixed(2) != "500.00" {
		t.Errorf("GetBudgets()[0] = %+v", got)
	}
	if !got.StartDate.Equal(budget.StartDate) || !got.EndDate.Equal(budget.EndDate) {
		t.Errorf("window = [%v, %v), want [%v, %v)", got.StartDate, got.EndDate, budget.StartDate, budget.EndDate)
	}

	got.Amount = decimal.NewFromInt(750)
	if err := store.SaveBudget(ctx, &got); err != nil {
		t.Fatalf("SaveBudget() update error = %v", err)
	}
	budgets, err = store.GetBudgets(ctx)
	if err != nil {
		t.Fatalf("GetBudgets() error = %v", err)
	}
	if len(budgets) != 1 || budgets[0].Amount.String() != "750" {
		t.Errorf("update not applied: %+v", budgets)
	}

	if err := store.DeleteBudget(ctx, got.ID); err != nil {
		t.Fatalf("DeleteBudget() error = %v", err)
	}
	if err := store.DeleteBudget(ctx, got.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("second DeleteBudget() error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStorage_SaveBudgetValidation(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	bad := model.Budget{Category: "Food", Amount: decimal.NewFromInt(10), Period: model.PeriodMonthly}
	if err := store.SaveBudget(context.Background(), &bad); !errors.Is(err, ErrInvalidBudget) {
		t.Errorf("expected ErrInvalidBudget, got %v", err)
	}
}
