package conflict

import (
	"maps"
	"math"
	"slices"
	"time"

	"github.com/iudanet/mealsync/internal/models"
)

// DescriptionSeparator отделяет серверную часть при склейке описаний
const DescriptionSeparator = "\n\n--- server merge ---\n"

// averageDuration разница Duration (минуты), при которой значения усредняются
const averageDuration = 15

// MergeFields builds a field-level merge of two versions of the same entity.
// Name, lists and Duration (when far apart) come from the newer side.
// The result is stamped with now.
func MergeFields(local, server *models.Entity, now time.Time) *models.Entity {
	newer, older := server, local
	if local.IsNewerThan(server) {
		newer, older = local, server
	}

	merged := &models.Entity{
		ID:          local.ID,
		Type:        local.Type,
		Name:        newer.Name,
		Description: mergeDescription(local.Description, server.Description),
		Duration:    mergeDuration(newer.Duration, older.Duration),
		Items:       slices.Clone(newer.Items),
		Steps:       slices.Clone(newer.Steps),
		Attributes:  mergeAttributes(newer.Attributes, older.Attributes),
		UpdatedAt:   now,
	}

	return merged
}

func mergeDescription(local, server string) string {
	switch {
	case local == server:
		return local
	case local == "":
		return server
	case server == "":
		return local
	}
	return local + DescriptionSeparator + server
}

func mergeDuration(newer, older int) int {
	if abs(newer-older) <= averageDuration {
		return int(math.Round(float64(newer+older) / 2))
	}
	return newer
}

// mergeAttributes берет значения новой стороны, ключи только из старой сохраняются
func mergeAttributes(newer, older map[string]string) map[string]string {
	if len(newer) == 0 && len(older) == 0 {
		return nil
	}

	out := make(map[string]string, len(newer)+len(older))
	maps.Copy(out, older)
	maps.Copy(out, newer)
	return out
}
