// Package cli implements the mealsync client commands on top of the sync engine.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iudanet/mealsync/internal/client/iocli"
	"github.com/iudanet/mealsync/internal/client/storage"
	"github.com/iudanet/mealsync/internal/clock"
)

// ErrUnknownCommand returned by Run for a command it does not know
var ErrUnknownCommand = errors.New("unknown command")

// Deps collaborators of the Cli
type Deps struct {
	IO       iocli.IO
	Auth     Authenticator
	Engine   Engine
	Data     DataService
	Pending  PendingQueue
	Clock    clock.Clock
	Logger   *slog.Logger
}

// Cli runs one client command per invocation
type Cli struct {
	io       iocli.IO
	auth     Authenticator
	engine   Engine
	data     DataService
	pending  PendingQueue
	clock    clock.Clock
	logger   *slog.Logger
	session  *storage.Session
}

// New creates the command runner
func New(deps Deps) *Cli {
	if deps.Clock == nil {
		deps.Clock = clock.System{}
	}
	return &Cli{
		io:       deps.IO,
		auth:     deps.Auth,
		engine:   deps.Engine,
		data:     deps.Data,
		pending:  deps.Pending,
		clock:    deps.Clock,
		logger:   deps.Logger,
	}
}

// Run executes command with its arguments
func (c *Cli) Run(ctx context.Context, command string, args []string) error {
	switch command {
	case "register":
		return c.runRegister(ctx)
	case "login":
		return c.runLogin(ctx)
	case "logout":
		return c.runLogout(ctx)
	case "status":
		return c.runStatus(ctx)
	case "help":
		PrintUsage(c.io)
		return nil
	}

	// Остальные команды работают с сервером или очередью от имени пользователя
	if err := c.requireSession(ctx); err != nil {
		return err
	}

	switch command {
	case "add":
		return c.runAdd(ctx, args)
	case "edit":
		return c.runEdit(ctx, args)
	case "delete":
		return c.runDelete(ctx, args)
	case "list":
		return c.runList(ctx, args)
	case "show":
		return c.runShow(ctx, args)
	case "sync":
		return c.runSync(ctx)
	case "pending":
		return c.runPending(ctx, args)
	case "conflicts":
		return c.runConflicts()
	case "resolve":
		return c.runResolve(ctx, args)
	case "config":
		return c.runConfig(ctx, args)
	case "daemon":
		return c.runDaemon(ctx)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}
}

func (c *Cli) requireSession(ctx context.Context) error {
	session, err := c.auth.Restore(ctx)
	if err != nil {
		return err
	}
	c.session = session
	return nil
}

// PrintUsage prints the command reference
func PrintUsage(out iocli.IO) {
	out.Println("MealSync Client")
	out.Println()
	out.Println("Usage:")
	out.Println("  mealsync [OPTIONS] COMMAND [ARGS]")
	out.Println()
	out.Println("Options:")
	out.Println("  --version            Show version information")
	out.Println("  --server URL         Server URL (default: http://localhost:8080)")
	out.Println("  --db PATH            Path to local database (default: mealsync-client.db)")
	out.Println("  --workers N          Parallel uploads during sync (default: 4)")
	out.Println("  --debug              Verbose logging")
	out.Println()
	out.Println("Commands:")
	out.Println("  register                     Register new user")
	out.Println("  login                        Login to server")
	out.Println("  logout                       Remove local session")
	out.Println("  status                       Show session and sync status")
	out.Println("  add <type>                   Add entity (recipe, meal_plan, shopping_list, user_profile)")
	out.Println("  edit <type> <id>             Edit entity")
	out.Println("  delete <type> <id>           Delete entity")
	out.Println("  list <type>                  List entities of a type")
	out.Println("  show <type> <id>             Show entity details")
	out.Println("  sync                         Send local changes and merge server state")
	out.Println("  pending [clear-failed]       Show or clean up unsent mutations")
	out.Println("  conflicts                    List open conflicts")
	out.Println("  resolve <id> <strategy>      Resolve conflict (use_local, use_server, merge)")
	out.Println("  config [<key> <value>]       Show or change settings (sync, interval, offline)")
	out.Println("  daemon                       Keep syncing in the background until interrupted")
	out.Println()
	out.Println("Examples:")
	out.Println("  mealsync register")
	out.Println("  mealsync login")
	out.Println("  mealsync add recipe")
	out.Println("  mealsync list recipe")
	out.Println("  mealsync resolve recipe_b692f5c0-2d88-4aa1-a9e1-13aa6e4976d5 merge")
	out.Println("  mealsync config interval 5m")
	out.Println("  mealsync --server https://example.com daemon")
}
