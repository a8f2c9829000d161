// Command meniumate is a terminal client for the MeniuMate API.
//
//	meniumate register -user alice -email a@example.com -password ...
//	meniumate login -user alice -password ...
//	meniumate groups [-member ID]
//	meniumate group create -title Trip -members Ann,Ben
//	meniumate group show GROUP
//	meniumate expense GROUP -payer ID -total 30 -type Equal
//	meniumate settle GROUP FROM TO
//	meniumate menus | menu MENU
//	meniumate keepalive
//	meniumate logout
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mmynk/meniumate/internal/client"
	"github.com/mmynk/meniumate/internal/config"
	"github.com/mmynk/meniumate/internal/models"
	"github.com/mmynk/meniumate/internal/session"
	"github.com/mmynk/meniumate/pkg/logging"
)

type command struct {
	usage string
	run   func(ctx context.Context, app *app, args []string) error
}

var commands = map[string]command{
	"register":  {"-user NAME -email EMAIL -password PASS", runRegister},
	"login":     {"-user NAME -password PASS", runLogin},
	"logout":    {"", runLogout},
	"whoami":    {"", runWhoami},
	"groups":    {"[-member ID]", runGroups},
	"group":     {"create|show|add-member|remove-member ...", runGroup},
	"expense":   {"GROUP -payer ID -total N -type Equal|Percentage|Dynamic [-shares ID=N,...]", runExpense},
	"settle":    {"GROUP FROM TO", runSettle},
	"menus":     {"", runMenus},
	"menu":      {"MENU", runMenu},
	"keepalive": {"", runKeepAlive},
}

type app struct {
	cfg    *config.Client
	client *client.Client
	logger *slog.Logger
}

func main() {
	logger := logging.Setup()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		usage()
		os.Exit(2)
	}

	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := session.NewSQLiteStore(cfg.SessionDBPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "session:", err)
		os.Exit(1)
	}
	defer store.Close()

	sess, err := session.Open(ctx, store)
	if err != nil {
		fmt.Fprintln(os.Stderr, "session:", err)
		os.Exit(1)
	}

	a := &app{
		cfg: cfg,
		client: client.New(cfg.BaseURL, sess, client.Options{
			RefreshTimeout: cfg.RefreshTimeout,
			Logger:         logger,
		}),
		logger: logger,
	}

	if err := cmd.run(ctx, a, os.Args[2:]); err != nil {
		report(err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: meniumate COMMAND [ARGS]")
	for _, name := range sortedKeys(commands) {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", name, commands[name].usage)
	}
}

// report prints err by category: bad input, session, or request failure.
func report(err error) {
	var verr *models.ValidationError
	var rerr *client.RequestError
	switch {
	case errors.As(err, &verr):
		fmt.Fprintf(os.Stderr, "invalid %s: %s\n", verr.Field, verr.Message)
	case errors.Is(err, client.ErrSessionExpired):
		fmt.Fprintln(os.Stderr, "session expired, run `meniumate login` again")
	case errors.As(err, &rerr):
		fmt.Fprintf(os.Stderr, "error (%d): %s\n", rerr.StatusCode, rerr.Message)
	default:
		fmt.Fprintln(os.Stderr, "error:", err)
	}
}

func newFlags(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}
