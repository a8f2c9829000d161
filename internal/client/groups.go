package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mmynk/meniumate/internal/ledger"
	"github.com/mmynk/meniumate/internal/models"
)

// ListGroups returns the signed-in user's groups. When memberID is set each
// group's Balance is that member's net balance.
func (c *Client) ListGroups(ctx context.Context, memberID string) ([]*models.Group, error) {
	path := "/api/groups"
	if memberID != "" {
		path += "?memberId=" + url.QueryEscape(memberID)
	}
	var groups []*models.Group
	if err := c.get(ctx, path, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// CreateGroup creates a group with the named members.
func (c *Client) CreateGroup(ctx context.Context, title string, memberNames []string) (*models.Group, error) {
	if err := models.ValidateGroupTitle(title); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(memberNames))
	for _, name := range memberNames {
		if err := models.ValidateMemberName(name); err != nil {
			return nil, err
		}
		names = append(names, strings.TrimSpace(name))
	}

	var group models.Group
	body := map[string]any{"title": strings.TrimSpace(title), "members": names}
	if err := c.send(ctx, http.MethodPost, "/api/groups", body, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// GetGroup returns a group with its members.
func (c *Client) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	var group models.Group
	if err := c.get(ctx, "/api/groups/"+escape(groupID), &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// AddMember adds a named member to a group.
func (c *Client) AddMember(ctx context.Context, groupID, name string) (*models.Member, error) {
	if err := models.ValidateMemberName(name); err != nil {
		return nil, err
	}
	var member models.Member
	body := map[string]string{"name": strings.TrimSpace(name)}
	if err := c.send(ctx, http.MethodPost, "/api/groups/"+escape(groupID)+"/members", body, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

// RemoveMember removes a member. The server refuses with 409 unless the
// member is removable.
func (c *Client) RemoveMember(ctx context.Context, groupID, memberID string) error {
	return c.send(ctx, http.MethodDelete, "/api/groups/"+escape(groupID)+"/members/"+escape(memberID), nil, nil)
}

// ListDebts returns the group's pairwise debts.
func (c *Client) ListDebts(ctx context.Context, groupID string) ([]models.Debt, error) {
	var debts []models.Debt
	if err := c.get(ctx, "/api/groups/"+escape(groupID)+"/debts", &debts); err != nil {
		return nil, err
	}
	return debts, nil
}

// ListTransactions returns the group's transactions, newest first.
func (c *Client) ListTransactions(ctx context.Context, groupID string) ([]*models.Transaction, error) {
	var txs []*models.Transaction
	if err := c.get(ctx, "/api/groups/"+escape(groupID)+"/transactions", &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// CreateTransaction computes the splits for req against members and records
// the transaction.
func (c *Client) CreateTransaction(ctx context.Context, groupID string, members []models.Member, req ledger.SplitRequest) (*models.Transaction, error) {
	if req.PayerID == "" {
		return nil, &models.ValidationError{Field: "payerId", Message: "payer is required"}
	}
	splits, err := ledger.BuildSplits(members, req)
	if err != nil {
		return nil, err
	}

	tx := &models.Transaction{
		GroupID:     groupID,
		PayerID:     req.PayerID,
		TotalAmount: req.Total,
		SplitType:   req.Type,
		Splits:      splits,
		Date:        time.Now().Unix(),
	}
	var created models.Transaction
	if err := c.send(ctx, http.MethodPost, "/api/groups/"+escape(groupID)+"/transactions", tx, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Settle records a settlement of everything from owes to.
func (c *Client) Settle(ctx context.Context, groupID, fromMemberID, toMemberID string) (*models.Settlement, error) {
	if fromMemberID == "" || toMemberID == "" || fromMemberID == toMemberID {
		return nil, &models.ValidationError{Field: "members", Message: "two different members are required"}
	}
	q := url.Values{"fromMemberId": {fromMemberID}, "toMemberId": {toMemberID}}
	var settlement models.Settlement
	if err := c.send(ctx, http.MethodPost, "/api/groups/"+escape(groupID)+"/settle?"+q.Encode(), nil, &settlement); err != nil {
		return nil, err
	}
	return &settlement, nil
}

// GroupView is everything the group detail screen shows.
type GroupView struct {
	Group        *models.Group
	Debts        []models.Debt
	Transactions []*models.Transaction
	Matrix       *ledger.Matrix

	// Removable maps member ID to whether the member can be removed.
	Removable map[string]bool
}

// SettleCandidates returns the debts memberID can settle: its outgoing
// debts with a positive amount.
func (v *GroupView) SettleCandidates(memberID string) []models.Debt {
	var out []models.Debt
	for _, d := range v.Debts {
		if d.FromMemberID == memberID && d.Amount > 0 {
			out = append(out, d)
		}
	}
	return out
}

// GroupView fetches a group, its debts and its transactions concurrently and
// builds the debt matrix from them.
func (c *Client) GroupView(ctx context.Context, groupID string) (*GroupView, error) {
	view := &GroupView{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		group, err := c.GetGroup(ctx, groupID)
		view.Group = group
		return err
	})
	g.Go(func() error {
		debts, err := c.ListDebts(ctx, groupID)
		view.Debts = debts
		return err
	})
	g.Go(func() error {
		txs, err := c.ListTransactions(ctx, groupID)
		view.Transactions = txs
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	view.Matrix = ledger.BuildMatrix(view.Group.Members, view.Debts)
	view.Removable = view.Matrix.Eligibility()
	return view, nil
}
