package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/mealsync/internal/client/auth"
)

func (c *Cli) readCredentials(confirm bool) (string, string, error) {
	username, err := c.io.ReadInput("Username: ")
	if err != nil {
		return "", "", fmt.Errorf("failed to read username: %w", err)
	}

	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return "", "", fmt.Errorf("failed to read password: %w", err)
	}

	if confirm {
		again, err := c.io.ReadPassword("Confirm password: ")
		if err != nil {
			return "", "", fmt.Errorf("failed to read password: %w", err)
		}
		if again != password {
			return "", "", errors.New("passwords do not match")
		}
	}

	return username, password, nil
}

func (c *Cli) runRegister(ctx context.Context) error {
	c.io.Println("=== Register ===")
	c.io.Println()

	username, password, err := c.readCredentials(true)
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("Registering...")

	userID, err := c.auth.Register(ctx, username, password)
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	c.io.Println()
	c.io.Println("✓ Registration successful!")
	c.io.Printf("User ID: %s\n", userID)
	c.io.Println()
	c.io.Println("Run 'mealsync login' to start syncing.")
	return nil
}

func (c *Cli) runLogin(ctx context.Context) error {
	c.io.Println("=== Login ===")
	c.io.Println()

	username, password, err := c.readCredentials(false)
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("Authenticating...")

	session, err := c.auth.Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	c.io.Println()
	c.io.Println("✓ Login successful!")
	c.io.Printf("Username: %s\n", session.Username)
	c.io.Printf("Session expires: %s\n", session.ExpiresAt.Local().Format(time.RFC3339))
	return nil
}

func (c *Cli) runLogout(ctx context.Context) error {
	if err := c.auth.Logout(ctx); err != nil {
		return err
	}
	c.io.Println("✓ Logged out")
	return nil
}

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Status ===")
	c.io.Println()

	session, err := c.auth.Restore(ctx)
	switch {
	case errors.Is(err, auth.ErrNotAuthenticated):
		c.io.Println("Session: Not authenticated")
		c.io.Println("Run 'mealsync login' to authenticate.")
	case err != nil:
		return fmt.Errorf("failed to check session: %w", err)
	default:
		remaining := session.ExpiresAt.Sub(c.clock.Now())
		c.io.Printf("Session: %s (expires in %s)\n", session.Username, remaining.Round(time.Second))
	}

	st := c.engine.CurrentStatus()
	c.io.Println()
	c.io.Printf("Device ID: %s\n", c.engine.DeviceID())
	c.io.Printf("Sync: %s\n", onOff(c.engine.SyncEnabled()))
	c.io.Printf("State: %s\n", st.State)
	if st.Message != "" {
		c.io.Printf("Message: %s\n", st.Message)
	}
	c.io.Printf("Last sync: %s\n", formatMillis(st.LastSyncTimestamp))

	counts, err := c.pending.Counts(ctx)
	if err != nil {
		c.io.Printf("\nWarning: failed to count pending mutations: %v\n", err)
		return nil
	}

	c.io.Println()
	if counts.Pending == 0 && counts.Failed == 0 {
		c.io.Println("✓ All changes synchronized with server")
	} else {
		c.io.Printf("⚠️  Pending: %d, failed: %d\n", counts.Pending, counts.Failed)
		c.io.Println("Run 'mealsync sync' to retry or 'mealsync pending' for details.")
	}

	if open := countOpen(c.engine.Conflicts()); open > 0 {
		c.io.Printf("⚠️  %d conflict(s) require resolution, run 'mealsync conflicts'\n", open)
	}
	return nil
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return "never"
	}
	return time.UnixMilli(ms).Format(time.RFC3339)
}

func onOff(v bool) string {
	if v {
		return "enabled"
	}
	return "disabled"
}
