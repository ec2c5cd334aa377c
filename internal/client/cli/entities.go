package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/iudanet/mealsync/internal/client/storage"
	"github.com/iudanet/mealsync/internal/models"
)

var typeTitles = map[models.EntityType]string{
	models.EntityRecipe:       "Recipe",
	models.EntityMealPlan:     "Meal Plan",
	models.EntityShoppingList: "Shopping List",
	models.EntityUserProfile:  "User Profile",
}

func parseType(args []string, usage string) (models.EntityType, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("missing entity type. Usage: mealsync %s", usage)
	}
	t := models.EntityType(args[0])
	if !t.Valid() {
		return "", fmt.Errorf("unknown entity type %q. Usage: mealsync %s", args[0], usage)
	}
	return t, nil
}

func parseTypeID(args []string, usage string) (models.EntityType, string, error) {
	t, err := parseType(args, usage)
	if err != nil {
		return "", "", err
	}
	if len(args) < 2 {
		return "", "", fmt.Errorf("missing entity id. Usage: mealsync %s", usage)
	}
	return t, args[1], nil
}

func (c *Cli) runAdd(ctx context.Context, args []string) error {
	t, err := parseType(args, "add <type>")
	if err != nil {
		return err
	}

	c.io.Printf("=== Add %s ===\n", typeTitles[t])
	c.io.Println()

	e := &models.Entity{Type: t}
	if err := c.readFields(e, false); err != nil {
		return err
	}

	added, err := c.data.Add(ctx, e)
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Printf("✓ %s added\n", typeTitles[t])
	c.io.Printf("ID: %s\n", added.ID)

	return c.deliver(ctx, added)
}

func (c *Cli) runEdit(ctx context.Context, args []string) error {
	t, id, err := parseTypeID(args, "edit <type> <id>")
	if err != nil {
		return err
	}

	current, err := c.get(ctx, t, id)
	if err != nil {
		return err
	}

	c.io.Printf("=== Edit %s ===\n", typeTitles[t])
	c.io.Println("Press Enter to keep the current value, '-' to clear it.")
	c.io.Println()

	e := current.Clone()
	if err := c.readFields(e, true); err != nil {
		return err
	}

	updated, err := c.data.Update(ctx, e)
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Printf("✓ %s updated\n", typeTitles[t])

	return c.deliver(ctx, updated)
}

func (c *Cli) runDelete(ctx context.Context, args []string) error {
	t, id, err := parseTypeID(args, "delete <type> <id>")
	if err != nil {
		return err
	}

	e, err := c.data.Delete(ctx, t, id)
	if errors.Is(err, storage.ErrEntityNotFound) {
		return fmt.Errorf("%s %s not found", t, id)
	}
	if err != nil {
		return err
	}

	c.io.Printf("✓ %s '%s' deleted\n", typeTitles[t], e.Name)

	return c.deliver(ctx, e)
}

func (c *Cli) runList(ctx context.Context, args []string) error {
	t, err := parseType(args, "list <type>")
	if err != nil {
		return err
	}

	list, err := c.data.List(ctx, t)
	if err != nil {
		return err
	}

	c.io.Printf("=== %s (%d) ===\n", typeTitles[t], len(list))
	c.io.Println()

	if len(list) == 0 {
		c.io.Println("Nothing here yet.")
		c.io.Printf("Run 'mealsync add %s' to create one.\n", t)
		return nil
	}

	for _, e := range list {
		c.io.Printf("%s  %s  (updated %s)\n", e.ID, e.Name, e.UpdatedAt.Local().Format(time.DateTime))
	}
	return nil
}

func (c *Cli) runShow(ctx context.Context, args []string) error {
	t, id, err := parseTypeID(args, "show <type> <id>")
	if err != nil {
		return err
	}

	e, err := c.get(ctx, t, id)
	if err != nil {
		return err
	}

	c.io.Printf("=== %s ===\n", typeTitles[t])
	c.io.Println()
	c.printEntity(e)
	return nil
}

func (c *Cli) get(ctx context.Context, t models.EntityType, id string) (*models.Entity, error) {
	e, err := c.data.Get(ctx, t, id)
	if errors.Is(err, storage.ErrEntityNotFound) {
		return nil, fmt.Errorf("%s %s not found", t, id)
	}
	return e, err
}

// deliver сразу пытается отправить поставленную в очередь мутацию e.
// Неотправленное сохраняется в pending store до следующего запуска.
func (c *Cli) deliver(ctx context.Context, e *models.Entity) error {
	key := models.EntityKey(e.Type, e.ID)

	c.engine.Drain(ctx)
	sent := !slices.ContainsFunc(c.engine.PendingItems(), func(item models.SyncItem) bool {
		return item.Key() == key
	})
	st := c.engine.CurrentStatus()

	if _, err := c.engine.Flush(ctx); err != nil {
		return fmt.Errorf("failed to save unsent change: %w", err)
	}

	records, err := c.pending.Records(ctx)
	if err != nil {
		return err
	}
	stored := slices.ContainsFunc(records, func(r *models.PendingMutationRecord) bool {
		return r.Item.Key() == key
	})

	c.io.Println()
	switch {
	case stored:
		c.io.Println("Note: the change is stored locally and will be sent on the next sync.")
	case sent && st.State != models.SyncStateError:
		c.io.Println("✓ Synced with server")
	case sent:
		c.io.Printf("⚠️  Sync finished with errors: %s\n", st.Message)
	default:
		c.io.Println("⚠️  The change was not sent and offline mode is disabled, it will not be retried.")
	}
	return nil
}

// readFields запрашивает поля, которые использует тип сущности
func (c *Cli) readFields(e *models.Entity, edit bool) error {
	var err error

	if e.Name, err = c.promptString("Name", e.Name, edit); err != nil {
		return err
	}

	switch e.Type {
	case models.EntityRecipe:
		if e.Description, err = c.promptString("Description", e.Description, edit); err != nil {
			return err
		}
		if e.Duration, err = c.promptInt("Duration (minutes)", e.Duration, edit); err != nil {
			return err
		}
		if e.Items, err = c.promptList("Ingredients (comma separated)", ",", e.Items, edit); err != nil {
			return err
		}
		if e.Steps, err = c.promptList("Steps (separated by ';')", ";", e.Steps, edit); err != nil {
			return err
		}
	case models.EntityMealPlan:
		if e.Description, err = c.promptString("Description", e.Description, edit); err != nil {
			return err
		}
		if e.Items, err = c.promptList("Recipes (comma separated)", ",", e.Items, edit); err != nil {
			return err
		}
		if e.Attributes, err = c.promptAttributes(e.Attributes, edit); err != nil {
			return err
		}
	case models.EntityShoppingList:
		if e.Items, err = c.promptList("Items (comma separated)", ",", e.Items, edit); err != nil {
			return err
		}
	case models.EntityUserProfile:
		if e.Description, err = c.promptString("About", e.Description, edit); err != nil {
			return err
		}
		if e.Attributes, err = c.promptAttributes(e.Attributes, edit); err != nil {
			return err
		}
	}
	return nil
}

// promptString при редактировании пустой ввод оставляет значение, "-" очищает
func (c *Cli) promptString(label, current string, edit bool) (string, error) {
	prompt := label + ": "
	if edit && current != "" {
		prompt = fmt.Sprintf("%s [%s]: ", label, current)
	}

	input, err := c.io.ReadInput(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}

	switch {
	case edit && input == "":
		return current, nil
	case edit && input == "-":
		return "", nil
	}
	return input, nil
}

func (c *Cli) promptInt(label string, current int, edit bool) (int, error) {
	cur := ""
	if current != 0 {
		cur = fmt.Sprint(current)
	}

	input, err := c.promptString(label, cur, edit)
	if err != nil || input == "" {
		return 0, err
	}

	var v int
	if _, err := fmt.Sscan(input, &v); err != nil {
		return 0, fmt.Errorf("%s must be a number", strings.ToLower(label))
	}
	return v, nil
}

func (c *Cli) promptList(label, sep string, current []string, edit bool) ([]string, error) {
	input, err := c.promptString(label, strings.Join(current, sep+" "), edit)
	if err != nil {
		return nil, err
	}
	return splitList(input, sep), nil
}

func (c *Cli) promptAttributes(current map[string]string, edit bool) (map[string]string, error) {
	input, err := c.promptString("Attributes (key=value, comma separated)", formatAttributes(current), edit)
	if err != nil {
		return nil, err
	}

	items := splitList(input, ",")
	if len(items) == 0 {
		return nil, nil
	}

	attrs := make(map[string]string, len(items))
	for _, item := range items {
		k, v, ok := strings.Cut(item, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid attribute %q, expected key=value", item)
		}
		attrs[k] = strings.TrimSpace(v)
	}
	return attrs, nil
}

func splitList(input, sep string) []string {
	var out []string
	for _, part := range strings.Split(input, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func formatAttributes(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+attrs[k])
	}
	return strings.Join(parts, ", ")
}

func (c *Cli) printEntity(e *models.Entity) {
	c.io.Printf("ID:          %s\n", e.ID)
	c.io.Printf("Name:        %s\n", e.Name)
	if e.Description != "" {
		c.io.Printf("Description: %s\n", e.Description)
	}
	if e.Duration > 0 {
		c.io.Printf("Duration:    %d min\n", e.Duration)
	}
	if len(e.Items) > 0 {
		c.io.Println("Items:")
		for _, it := range e.Items {
			c.io.Printf("  - %s\n", it)
		}
	}
	if len(e.Steps) > 0 {
		c.io.Println("Steps:")
		for i, s := range e.Steps {
			c.io.Printf("  %d. %s\n", i+1, s)
		}
	}
	if len(e.Attributes) > 0 {
		c.io.Printf("Attributes:  %s\n", formatAttributes(e.Attributes))
	}
	c.io.Printf("Updated:     %s\n", e.UpdatedAt.Local().Format(time.RFC3339))
}
