package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmynk/meniumate/internal/ledger"
	"github.com/mmynk/meniumate/internal/middleware"
	"github.com/mmynk/meniumate/internal/models"
	"github.com/mmynk/meniumate/internal/storage"
)

// GroupStore is the persistence the group service needs.
type GroupStore interface {
	storage.GroupStore
	storage.LedgerStore
}

// GroupService manages expense groups, their members and ledgers.
// Every operation is scoped to groups owned by the authenticated user.
type GroupService struct {
	store  GroupStore
	logger *slog.Logger
}

// NewGroupService creates a new GroupService with the given storage backend.
func NewGroupService(store GroupStore, logger *slog.Logger) *GroupService {
	return &GroupService{store: store, logger: logger}
}

// ListGroups returns the caller's groups. When memberID names a member of a
// group, that group's Balance is the member's net balance.
func (s *GroupService) ListGroups(ctx context.Context, memberID string) ([]*models.Group, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	groups, err := s.store.ListGroupsByOwner(ctx, userID)
	if err != nil {
		s.logger.Error("ListGroups failed", "user_id", userID, "error", err)
		return nil, err
	}

	if memberID != "" {
		for _, g := range groups {
			if !hasMember(g.Members, memberID) {
				continue
			}
			debts, err := s.debts(ctx, g)
			if err != nil {
				return nil, err
			}
			g.Balance = ledger.NetBalance(debts, memberID)
		}
	}

	s.logger.Debug("ListGroups successful", "user_id", userID, "count", len(groups))
	return groups, nil
}

// CreateGroup creates a group owned by the caller with the given members.
func (s *GroupService) CreateGroup(ctx context.Context, title string, memberNames []string) (*models.Group, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := models.ValidateGroupTitle(title); err != nil {
		return nil, err
	}

	group := &models.Group{Title: strings.TrimSpace(title), OwnerID: userID}
	for _, name := range memberNames {
		if err := models.ValidateMemberName(name); err != nil {
			return nil, err
		}
		group.Members = append(group.Members, models.Member{Name: strings.TrimSpace(name)})
	}

	if err := s.store.CreateGroup(ctx, group); err != nil {
		s.logger.Error("CreateGroup failed", "error", err)
		return nil, err
	}

	s.logger.Info("Group created", "group_id", group.ID, "members", len(group.Members))
	return group, nil
}

// GetGroup returns one of the caller's groups.
func (s *GroupService) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.OwnerID != userID {
		s.logger.Warn("Group access denied", "group_id", groupID, "user_id", userID)
		return nil, fmt.Errorf("group %s: %w", groupID, ErrForbidden)
	}
	return group, nil
}

// AddMember adds a named member to a group.
func (s *GroupService) AddMember(ctx context.Context, groupID, name string) (*models.Member, error) {
	if err := models.ValidateMemberName(name); err != nil {
		return nil, err
	}
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}

	member := &models.Member{GroupID: groupID, Name: strings.TrimSpace(name)}
	if err := s.store.AddMember(ctx, member); err != nil {
		return nil, err
	}

	s.logger.Info("Member added", "group_id", groupID, "member_id", member.ID)
	return member, nil
}

// RemoveMember deletes a member that neither owes nor is owed anything.
func (s *GroupService) RemoveMember(ctx context.Context, groupID, memberID string) error {
	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}

	debts, err := s.debts(ctx, group)
	if err != nil {
		return err
	}
	matrix := ledger.BuildMatrix(group.Members, debts)
	i, ok := matrix.Index(memberID)
	if !ok {
		return fmt.Errorf("member %s: %w", memberID, ErrNotFound)
	}
	if !matrix.Removable(i) {
		return fmt.Errorf("%w: member %s has outstanding debts", ErrConflict, memberID)
	}

	if err := s.store.DeleteMember(ctx, groupID, memberID); err != nil {
		return err
	}

	s.logger.Info("Member removed", "group_id", groupID, "member_id", memberID)
	return nil
}

// ListDebts returns the group's pairwise net debts.
func (s *GroupService) ListDebts(ctx context.Context, groupID string) ([]models.Debt, error) {
	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return s.debts(ctx, group)
}

// ListTransactions returns the group's transactions, newest first.
func (s *GroupService) ListTransactions(ctx context.Context, groupID string) ([]*models.Transaction, error) {
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return s.store.ListTransactionsByGroup(ctx, groupID)
}

// CreateTransaction validates and records a transaction in the group.
func (s *GroupService) CreateTransaction(ctx context.Context, groupID string, tx *models.Transaction) (*models.Transaction, error) {
	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	tx.ID = ""
	tx.GroupID = groupID
	if err := ledger.CheckTransaction(group.Members, tx); err != nil {
		return nil, err
	}

	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		s.logger.Error("CreateTransaction failed", "group_id", groupID, "error", err)
		return nil, err
	}

	for _, m := range group.Members {
		if m.ID == tx.PayerID {
			tx.PayerName = m.Name
		}
	}

	s.logger.Info("Transaction created", "group_id", groupID, "transaction_id", tx.ID, "amount", tx.TotalAmount)
	return tx, nil
}

// Settle records that from paid to everything from currently owes to.
func (s *GroupService) Settle(ctx context.Context, groupID, fromMemberID, toMemberID string) (*models.Settlement, error) {
	if fromMemberID == "" || toMemberID == "" || fromMemberID == toMemberID {
		return nil, &models.ValidationError{Field: "members", Message: "two different members are required"}
	}

	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !hasMember(group.Members, fromMemberID) || !hasMember(group.Members, toMemberID) {
		return nil, fmt.Errorf("settlement members: %w", ErrNotFound)
	}

	debts, err := s.debts(ctx, group)
	if err != nil {
		return nil, err
	}
	amount := ledger.NetOwed(debts, fromMemberID, toMemberID)
	if amount <= 0 {
		return nil, fmt.Errorf("%w: nothing to settle", ErrConflict)
	}

	settlement := &models.Settlement{
		GroupID:      groupID,
		FromMemberID: fromMemberID,
		ToMemberID:   toMemberID,
		Amount:       amount,
		CreatedBy:    middleware.GetUserID(ctx),
	}
	if err := s.store.CreateSettlement(ctx, settlement); err != nil {
		return nil, err
	}

	s.logger.Info("Debt settled", "group_id", groupID, "from", fromMemberID, "to", toMemberID, "amount", amount)
	return settlement, nil
}

func (s *GroupService) debts(ctx context.Context, group *models.Group) ([]models.Debt, error) {
	txs, err := s.store.ListTransactionsByGroup(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	settlements, err := s.store.ListSettlementsByGroup(ctx, group.ID)
	if err != nil {
		return nil, err
	}

	txValues := make([]models.Transaction, len(txs))
	for i, t := range txs {
		txValues[i] = *t
	}
	settlementValues := make([]models.Settlement, len(settlements))
	for i, st := range settlements {
		settlementValues[i] = *st
	}
	return ledger.PairwiseDebts(group.Members, txValues, settlementValues), nil
}

func requireUser(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", ErrUnauthenticated
	}
	return userID, nil
}

func hasMember(members []models.Member, id string) bool {
	for _, m := range members {
		if m.ID == id {
			return true
		}
	}
	return false
}
