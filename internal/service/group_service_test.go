package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/mmynk/meniumate/internal/models"
)

func setupGroup(t *testing.T) (*GroupService, context.Context, *models.Group) {
	t.Helper()
	svc := NewGroupService(setupStore(t), discardLogger())
	ctx := asUser("owner")

	group, err := svc.CreateGroup(ctx, "Roommates", []string{"Alice", "Bob", "Charlie"})
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	return svc, ctx, group
}

func equalSplit(group *models.Group, payer int, total float64) *models.Transaction {
	share := total / float64(len(group.Members))
	tx := &models.Transaction{
		PayerID:     group.Members[payer].ID,
		TotalAmount: total,
		SplitType:   models.SplitEqual,
	}
	for _, m := range group.Members {
		tx.Splits = append(tx.Splits, models.Split{MemberID: m.ID, Value: share})
	}
	return tx
}

func TestCreateGroup(t *testing.T) {
	svc, ctx, group := setupGroup(t)

	if group.ID == "" {
		t.Error("expected group ID to be generated")
	}
	if group.Title != "Roommates" {
		t.Errorf("expected title 'Roommates', got %q", group.Title)
	}
	if len(group.Members) != 3 {
		t.Fatalf("expected 3 members, got %d", len(group.Members))
	}

	t.Run("blank title rejected", func(t *testing.T) {
		_, err := svc.CreateGroup(ctx, "  ", nil)
		var verr *models.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("err = %v, want ValidationError", err)
		}
	})

	t.Run("unauthenticated", func(t *testing.T) {
		if _, err := svc.CreateGroup(context.Background(), "X", nil); !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("err = %v, want ErrUnauthenticated", err)
		}
	})
}

func TestGetGroupOwnership(t *testing.T) {
	svc, ctx, group := setupGroup(t)

	if _, err := svc.GetGroup(ctx, group.ID); err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if _, err := svc.GetGroup(asUser("intruder"), group.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
	if _, err := svc.GetGroup(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	groups, err := svc.ListGroups(asUser("intruder"), "")
	if err != nil {
		t.Fatalf("ListGroups failed: %v", err)
	}
	if len(groups) != 0 {
		t.Errorf("intruder sees %d groups, want 0", len(groups))
	}
}

func TestDebtsAndSettle(t *testing.T) {
	svc, ctx, group := setupGroup(t)
	alice, bob, charlie := group.Members[0].ID, group.Members[1].ID, group.Members[2].ID

	// Alice pays 30 split three ways.
	if _, err := svc.CreateTransaction(ctx, group.ID, equalSplit(group, 0, 30)); err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}

	debts, err := svc.ListDebts(ctx, group.ID)
	if err != nil {
		t.Fatalf("ListDebts failed: %v", err)
	}
	if len(debts) != 2 {
		t.Fatalf("expected 2 debts, got %d: %+v", len(debts), debts)
	}
	for _, d := range debts {
		if d.ToMemberID != alice || math.Abs(d.Amount-10) > 0.01 {
			t.Errorf("unexpected debt %+v", d)
		}
	}

	t.Run("balances on group list", func(t *testing.T) {
		groups, err := svc.ListGroups(ctx, alice)
		if err != nil {
			t.Fatalf("ListGroups failed: %v", err)
		}
		if len(groups) != 1 || math.Abs(groups[0].Balance-20) > 0.01 {
			t.Errorf("Alice's balance = %+v, want 20", groups)
		}
	})

	t.Run("member with debts cannot be removed", func(t *testing.T) {
		if err := svc.RemoveMember(ctx, group.ID, bob); !errors.Is(err, ErrConflict) {
			t.Errorf("err = %v, want ErrConflict", err)
		}
	})

	t.Run("settle clears the pair", func(t *testing.T) {
		st, err := svc.Settle(ctx, group.ID, bob, alice)
		if err != nil {
			t.Fatalf("Settle failed: %v", err)
		}
		if math.Abs(st.Amount-10) > 0.01 {
			t.Errorf("settled %v, want 10", st.Amount)
		}
		if st.CreatedBy != "owner" {
			t.Errorf("CreatedBy = %q, want owner", st.CreatedBy)
		}

		debts, _ := svc.ListDebts(ctx, group.ID)
		if len(debts) != 1 || debts[0].FromMemberID != charlie {
			t.Errorf("remaining debts = %+v, want only Charlie's", debts)
		}

		if _, err := svc.Settle(ctx, group.ID, bob, alice); !errors.Is(err, ErrConflict) {
			t.Errorf("second settle err = %v, want ErrConflict", err)
		}
	})

	t.Run("settled member can be removed", func(t *testing.T) {
		if err := svc.RemoveMember(ctx, group.ID, bob); err != nil {
			t.Fatalf("RemoveMember failed: %v", err)
		}
		g, _ := svc.GetGroup(ctx, group.ID)
		if len(g.Members) != 2 {
			t.Errorf("members = %d, want 2", len(g.Members))
		}
	})

	t.Run("settle with unknown member", func(t *testing.T) {
		if _, err := svc.Settle(ctx, group.ID, "ghost", alice); !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
		var verr *models.ValidationError
		if _, err := svc.Settle(ctx, group.ID, alice, alice); !errors.As(err, &verr) {
			t.Errorf("err = %v, want ValidationError", err)
		}
	})
}

func TestCreateTransactionValidation(t *testing.T) {
	svc, ctx, group := setupGroup(t)

	tx := equalSplit(group, 0, 30)
	tx.Splits[0].Value = 1
	var verr *models.ValidationError
	if _, err := svc.CreateTransaction(ctx, group.ID, tx); !errors.As(err, &verr) {
		t.Errorf("err = %v, want ValidationError", err)
	}

	ok := equalSplit(group, 1, 9)
	created, err := svc.CreateTransaction(ctx, group.ID, ok)
	if err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}
	if created.PayerName != "Bob" {
		t.Errorf("PayerName = %q, want Bob", created.PayerName)
	}

	txs, err := svc.ListTransactions(ctx, group.ID)
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if len(txs) != 1 {
		t.Errorf("got %d transactions, want 1", len(txs))
	}
}

func TestAddAndRemoveMember(t *testing.T) {
	svc, ctx, group := setupGroup(t)

	m, err := svc.AddMember(ctx, group.ID, " Diana ")
	if err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	if m.Name != "Diana" {
		t.Errorf("Name = %q, want trimmed", m.Name)
	}

	if err := svc.RemoveMember(ctx, group.ID, m.ID); err != nil {
		t.Fatalf("RemoveMember failed: %v", err)
	}
	if err := svc.RemoveMember(ctx, group.ID, m.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := svc.AddMember(asUser("intruder"), group.ID, "Eve"); !errors.Is(err, ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
}
