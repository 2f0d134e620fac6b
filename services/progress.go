// services/progress.go
package services

import (
	"errors"

	"khatam-tracker/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Aggregate shapes for GET /progress/:slug. Qur'an khatams report item
// counts; counter khatams report unit sums over non-withdrawn pledges.
type QuranProgress struct {
	Type      string `json:"type"`
	Total     int    `json:"total"`
	Pledged   int    `json:"pledged"`
	Completed int    `json:"completed"`
}

type CounterProgress struct {
	Type           string `json:"type"`
	TargetUnits    int    `json:"target_units"`
	PledgedUnits   int    `json:"pledged_units"`
	CompletedUnits int    `json:"completed_units"`
}

// GetProgress delegates the aggregation to the database in single queries.
func (s *KhatamService) GetProgress(c *fiber.Ctx) error {
	slug := c.Params("slug")

	var khatam models.Khatam
	if err := s.DB.First(&khatam, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"ok": false, "error": "Khatam not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": "DB error"})
	}

	if khatam.Type == models.KhatamTypeQuran {
		var out QuranProgress
		err := s.DB.Raw(`
			SELECT
				COUNT(*) AS total,
				COUNT(CASE WHEN is_taken THEN 1 END) AS pledged,
				(SELECT COUNT(*) FROM pledges
				   WHERE pledges.khatam_id = ?
				     AND pledges.khatam_item_id IS NOT NULL
				     AND pledges.status = ?) AS completed
			FROM khatam_items
			WHERE khatam_id = ?`,
			khatam.ID, models.PledgeStatusCompleted, khatam.ID).Scan(&out).Error
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": err.Error()})
		}
		out.Type = models.KhatamTypeQuran
		return c.JSON(fiber.Map{"ok": true, "data": out})
	}

	var out CounterProgress
	err := s.DB.Raw(`
		SELECT
			COALESCE(SUM(units_pledged), 0)  AS pledged_units,
			COALESCE(SUM(units_completed), 0) AS completed_units
		FROM pledges
		WHERE khatam_id = ? AND status <> ?`,
		khatam.ID, models.PledgeStatusWithdrawn).Scan(&out).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": err.Error()})
	}
	out.Type = models.KhatamTypeCounter
	if khatam.TargetUnits != nil {
		out.TargetUnits = *khatam.TargetUnits
	}
	return c.JSON(fiber.Map{"ok": true, "data": out})
}
