package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/iudanet/mealsync/internal/models"
)

func (c *Cli) runSync(ctx context.Context) error {
	c.io.Println("=== Synchronization ===")
	c.io.Println()

	if !c.engine.SyncEnabled() {
		return errors.New("sync is disabled. Run 'mealsync config sync on' to enable it")
	}

	c.io.Println("Sending local changes...")
	c.engine.Drain(ctx)

	c.io.Println("Fetching server state...")
	syncErr := c.engine.FullSync(ctx)

	// Результаты слияния могли добавить мутации в очередь
	c.engine.Drain(ctx)
	if _, err := c.engine.Flush(ctx); err != nil {
		return fmt.Errorf("failed to save unsent changes: %w", err)
	}

	if syncErr != nil {
		return fmt.Errorf("sync failed: %w", syncErr)
	}

	st := c.engine.CurrentStatus()
	c.io.Println()
	c.io.Println("✓ Synchronization completed")
	c.io.Printf("Last sync: %s\n", formatMillis(st.LastSyncTimestamp))

	counts, err := c.pending.Counts(ctx)
	if err != nil {
		return err
	}
	if counts.Pending > 0 || counts.Failed > 0 {
		c.io.Printf("⚠️  Not sent: %d pending, %d failed\n", counts.Pending, counts.Failed)
	}

	if open := countOpen(c.engine.Conflicts()); open > 0 {
		c.io.Printf("⚠️  %d conflict(s) require resolution, run 'mealsync conflicts'\n", open)
	}
	return nil
}

func (c *Cli) runPending(ctx context.Context, args []string) error {
	if len(args) > 0 {
		if args[0] != "clear-failed" {
			return fmt.Errorf("unknown pending action %q. Usage: mealsync pending [clear-failed]", args[0])
		}
		removed, err := c.pending.ClearFailed(ctx)
		if err != nil {
			return err
		}
		c.io.Printf("✓ Removed %d failed mutation(s)\n", removed)
		return nil
	}

	records, err := c.pending.Records(ctx)
	if err != nil {
		return err
	}

	c.io.Printf("=== Pending Mutations (%d) ===\n", len(records))
	c.io.Println()
	c.io.Printf("Offline mode: %s\n", onOff(c.pending.IsOfflineModeEnabled()))
	c.io.Println()

	if len(records) == 0 {
		c.io.Println("✓ Nothing waiting to be sent")
		return nil
	}

	for _, r := range records {
		c.io.Printf("%-8s %-7s %s  retries: %d/%d  queued: %s\n",
			r.Status,
			r.Item.Action,
			r.Item.Key(),
			r.Item.RetryCount,
			models.MaxRetries,
			r.CreatedAt.Local().Format(time.DateTime))
	}
	return nil
}

func (c *Cli) runConflicts() error {
	conflicts := c.engine.Conflicts()

	c.io.Printf("=== Conflicts (%d open) ===\n", countOpen(conflicts))
	c.io.Println()

	if len(conflicts) == 0 {
		c.io.Println("✓ No conflicts")
		return nil
	}

	for _, cf := range conflicts {
		state := "open"
		if cf.Resolved {
			state = "resolved: " + string(cf.Strategy)
		}
		c.io.Printf("%s  [%s]  detected %s\n", cf.ID, state, cf.DetectedAt.Local().Format(time.DateTime))
		c.io.Printf("  local:  %s (updated %s)\n", cf.LocalVersion.Name, cf.LocalVersion.UpdatedAt.Local().Format(time.DateTime))
		c.io.Printf("  server: %s (updated %s)\n", cf.ServerVersion.Name, cf.ServerVersion.UpdatedAt.Local().Format(time.DateTime))
	}
	return nil
}

func (c *Cli) runResolve(ctx context.Context, args []string) error {
	const usage = "Usage: mealsync resolve <conflict-id> <use_local|use_server|merge|ask_user>"
	if len(args) < 2 {
		return errors.New("missing arguments. " + usage)
	}

	id := args[0]
	strategy := models.ConflictStrategy(args[1])
	if !strategy.Valid() {
		return fmt.Errorf("unknown strategy %q. %s", args[1], usage)
	}

	var custom *models.Entity
	if strategy == models.StrategyAskUser {
		var err error
		if custom, err = c.readCustomVersion(id); err != nil {
			return err
		}
	}

	resolved, err := c.engine.ResolveConflict(ctx, id, strategy, custom)
	if err != nil {
		return fmt.Errorf("failed to resolve conflict: %w", err)
	}

	c.io.Printf("✓ Conflict %s resolved (%s)\n", resolved.ID, resolved.Strategy)

	c.engine.Drain(ctx)
	if _, err := c.engine.Flush(ctx); err != nil {
		return fmt.Errorf("failed to save unsent changes: %w", err)
	}
	return nil
}

// readCustomVersion запрашивает поля, начиная с локальной версии конфликта
func (c *Cli) readCustomVersion(id string) (*models.Entity, error) {
	for _, cf := range c.engine.Conflicts() {
		if cf.ID != id {
			continue
		}

		c.io.Println("Enter the resolved version. Press Enter to keep the local value.")
		e := cf.LocalVersion.Clone()
		if err := c.readFields(e, true); err != nil {
			return nil, err
		}
		e.UpdatedAt = c.clock.Now().UTC()
		return e, nil
	}
	return nil, fmt.Errorf("conflict %s not found", id)
}

func (c *Cli) runConfig(ctx context.Context, args []string) error {
	if len(args) == 0 {
		c.io.Println("=== Settings ===")
		c.io.Println()
		c.io.Printf("sync:     %s\n", onOff(c.engine.SyncEnabled()))
		c.io.Printf("interval: %s\n", c.engine.Interval())
		c.io.Printf("offline:  %s\n", onOff(c.pending.IsOfflineModeEnabled()))
		return nil
	}

	const usage = "Usage: mealsync config <sync|interval|offline> <value>"
	if len(args) < 2 {
		return errors.New("missing value. " + usage)
	}

	key, value := args[0], args[1]
	switch key {
	case "sync":
		enabled, err := parseSwitch(value)
		if err != nil {
			return err
		}
		if err := c.engine.SetSyncEnabled(ctx, enabled); err != nil {
			return err
		}
	case "interval":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid interval %q: %w", value, err)
		}
		if err := c.engine.SetSyncInterval(ctx, d); err != nil {
			return err
		}
	case "offline":
		enabled, err := parseSwitch(value)
		if err != nil {
			return err
		}
		if err := c.pending.SetOfflineModeEnabled(ctx, enabled); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown setting %q. %s", key, usage)
	}

	c.io.Printf("✓ %s = %s\n", key, value)
	return nil
}

func (c *Cli) runDaemon(ctx context.Context) error {
	c.io.Println("=== Sync Daemon ===")
	c.io.Printf("Sync interval: %s. Press Ctrl+C to stop.\n", c.engine.Interval())
	c.io.Println()

	watchCtx, stopWatch := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		last := models.SyncState("")
		for st := range c.engine.SubscribeStatus(watchCtx) {
			if st.State == last {
				continue
			}
			last = st.State
			if st.Message != "" {
				c.io.Printf("[%s] %s: %s\n", c.clock.Now().Local().Format(time.TimeOnly), st.State, st.Message)
			} else {
				c.io.Printf("[%s] %s\n", c.clock.Now().Local().Format(time.TimeOnly), st.State)
			}
		}
	}()

	if c.engine.SyncEnabled() {
		c.engine.Drain(ctx)
		if err := c.engine.FullSync(ctx); err != nil {
			c.logger.Warn("Initial sync failed", "error", err)
		}
	}

	err := c.engine.Run(ctx)

	stopWatch()
	<-done

	c.io.Println("Sync daemon stopped")
	return err
}

func countOpen(conflicts []*models.ConflictResolution) int {
	n := 0
	for _, cf := range conflicts {
		if !cf.Resolved {
			n++
		}
	}
	return n
}

func parseSwitch(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid switch value %q, use on or off", v)
	}
	return b, nil
}
