package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mmynk/meniumate/internal/ledger"
	"github.com/mmynk/meniumate/internal/models"
)

func runRegister(ctx context.Context, a *app, args []string) error {
	fs := newFlags("register")
	user := fs.String("user", "", "user name")
	email := fs.String("email", "", "email address")
	password := fs.String("password", os.Getenv("MENIUMATE_PASSWORD"), "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	u, err := a.client.Register(ctx, *user, *email, *password)
	if err != nil {
		return err
	}
	fmt.Printf("registered %s (%s)\n", u.Username, strings.Join(u.Roles, ", "))
	return nil
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlags("login")
	user := fs.String("user", "", "user name")
	password := fs.String("password", os.Getenv("MENIUMATE_PASSWORD"), "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.client.Login(ctx, *user, *password); err != nil {
		return err
	}
	fmt.Println("logged in as", a.client.Session().Credentials().Username)
	return nil
}

func runLogout(ctx context.Context, a *app, _ []string) error {
	return a.client.Logout(ctx)
}

func runWhoami(ctx context.Context, a *app, _ []string) error {
	u, err := a.client.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s <%s> roles=%s\n", u.Username, u.Email, strings.Join(u.Roles, ","))
	return nil
}

func runGroups(ctx context.Context, a *app, args []string) error {
	fs := newFlags("groups")
	member := fs.String("member", "", "member ID whose balance to show")
	if err := fs.Parse(args); err != nil {
		return err
	}
	groups, err := a.client.ListGroups(ctx, *member)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tMEMBERS\tBALANCE")
	for _, g := range groups {
		balance := ""
		if *member != "" {
			balance = ledger.BalanceLabel(g.Balance)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", g.ID, g.Title, len(g.Members), balance)
	}
	return w.Flush()
}

func runGroup(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return errors.New("group: missing subcommand")
	}
	switch sub, rest := args[0], args[1:]; sub {
	case "create":
		fs := newFlags("group create")
		title := fs.String("title", "", "group title")
		members := fs.String("members", "", "comma-separated member names")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		g, err := a.client.CreateGroup(ctx, *title, splitList(*members))
		if err != nil {
			return err
		}
		fmt.Println(g.ID)
		return nil

	case "show":
		if len(rest) != 1 {
			return errors.New("usage: group show GROUP")
		}
		return showGroup(ctx, a, rest[0])

	case "add-member":
		if len(rest) != 2 {
			return errors.New("usage: group add-member GROUP NAME")
		}
		m, err := a.client.AddMember(ctx, rest[0], rest[1])
		if err != nil {
			return err
		}
		fmt.Println(m.ID)
		return nil

	case "remove-member":
		if len(rest) != 2 {
			return errors.New("usage: group remove-member GROUP MEMBER")
		}
		return a.client.RemoveMember(ctx, rest[0], rest[1])
	}
	return fmt.Errorf("group: unknown subcommand %q", args[0])
}

func showGroup(ctx context.Context, a *app, groupID string) error {
	view, err := a.client.GroupView(ctx, groupID)
	if err != nil {
		return err
	}
	members := view.Matrix.Members()
	fmt.Printf("%s (%d members)\n\n", view.Group.Title, len(members))

	// Debt matrix: row owes column.
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(w, "\t")
	for _, m := range members {
		fmt.Fprintf(w, "%s\t", m.Name)
	}
	fmt.Fprintln(w, "removable\t")
	for i, m := range members {
		fmt.Fprintf(w, "%s\t", m.Name)
		for j := range members {
			fmt.Fprintf(w, "%.2f\t", view.Matrix.At(i, j))
		}
		fmt.Fprintf(w, "%t\t\n", view.Matrix.Removable(i))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	for _, m := range members {
		for _, d := range view.SettleCandidates(m.ID) {
			fmt.Printf("%s owes %s %.2f  (meniumate settle %s %s %s)\n",
				d.FromMemberName, d.ToMemberName, d.Amount, groupID, d.FromMemberID, d.ToMemberID)
		}
	}

	if len(view.Transactions) > 0 {
		fmt.Println("\nTransactions:")
		for _, tx := range view.Transactions {
			fmt.Printf("  %s  %-10s paid %.2f (%s)\n",
				time.Unix(tx.Date, 0).Format(time.DateOnly), tx.PayerName, tx.TotalAmount, tx.SplitType)
		}
	}
	return nil
}

func runExpense(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: expense GROUP -payer ID -total N -type TYPE")
	}
	groupID := args[0]
	fs := newFlags("expense")
	payer := fs.String("payer", "", "paying member ID")
	total := fs.Float64("total", 0, "total amount")
	splitType := fs.String("type", string(models.SplitEqual), "Equal, Percentage or Dynamic")
	shares := fs.String("shares", "", "ID=value pairs, percentages or amounts")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	values, err := parseShares(*shares)
	if err != nil {
		return err
	}
	req := ledger.SplitRequest{PayerID: *payer, Total: *total, Type: models.SplitType(*splitType)}
	switch req.Type {
	case models.SplitPercentage:
		req.Percentages = values
	case models.SplitDynamic:
		req.Amounts = values
	}

	group, err := a.client.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	tx, err := a.client.CreateTransaction(ctx, groupID, group.Members, req)
	if err != nil {
		return err
	}
	fmt.Println(tx.ID)
	return nil
}

func runSettle(ctx context.Context, a *app, args []string) error {
	if len(args) != 3 {
		return errors.New("usage: settle GROUP FROM TO")
	}
	s, err := a.client.Settle(ctx, args[0], args[1], args[2])
	if err != nil {
		return err
	}
	fmt.Printf("settled %.2f\n", s.Amount)
	return nil
}

func runMenus(ctx context.Context, a *app, _ []string) error {
	menus, err := a.client.ListMenus(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
	for _, m := range menus {
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.ID, m.Name, m.Description)
	}
	return w.Flush()
}

func runMenu(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: menu MENU")
	}
	menu, err := a.client.GetMenu(ctx, args[0])
	if err != nil {
		return err
	}
	dishes, err := a.client.ListDishes(ctx, menu.ID)
	if err != nil {
		return err
	}

	fmt.Printf("%s\n%s\n\n", menu.Name, menu.Description)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDISH\tPRICE\tAVAILABLE")
	for _, d := range dishes {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%t\n", d.ID, d.Name, d.Price, d.IsAvailable)
	}
	return w.Flush()
}

func runKeepAlive(ctx context.Context, a *app, _ []string) error {
	a.logger.Info("Keeping session alive", "interval", a.cfg.KeepAliveInterval)
	return a.client.KeepAlive(ctx, a.cfg.KeepAliveInterval)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseShares(s string) (map[string]float64, error) {
	values := make(map[string]float64)
	for _, pair := range splitList(s) {
		id, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("share %q: expected ID=value", pair)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("share %q: %w", pair, err)
		}
		values[strings.TrimSpace(id)] = v
	}
	return values, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
