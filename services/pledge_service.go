package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"khatam-tracker/models"
	"khatam-tracker/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Sentinel for losing the conditional Juz' claim.
var errJuzTaken = errors.New("juz already taken")

type PledgeService struct {
	DB         *gorm.DB
	Captcha    *CaptchaClient
	Email      *EmailClient
	AppBaseURL string
}

func NewPledgeService(db *gorm.DB, captcha *CaptchaClient, email *EmailClient, appBaseURL string) *PledgeService {
	return &PledgeService{DB: db, Captcha: captcha, Email: email, AppBaseURL: appBaseURL}
}

type CreatePledgeRequest struct {
	Slug         string `json:"slug" validate:"required"`
	DisplayName  string `json:"display_name" validate:"omitempty,max=100"`
	Message      string `json:"message" validate:"omitempty,max=250"`
	Email        string `json:"email" validate:"omitempty,email,max=200"`
	UnitsPledged int    `json:"units_pledged"` // custom_counter
	JuzNumber    int    `json:"juz_number"`    // quran, 1..30
	CaptchaToken string `json:"captcha_token"`
}

// CreatePledge verifies the CAPTCHA, claims a Juz' (Qur'an) or records a
// unit count (counter), and mints the manage token. The returned
// "id.secret" string is the only time the plaintext secret exists.
func (s *PledgeService) CreatePledge(c *fiber.Ctx) error {
	var req CreatePledgeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "invalid JSON body"})
	}

	okCaptcha, err := s.Captcha.Verify(req.CaptchaToken, c.IP())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": "CAPTCHA verification failed: " + err.Error()})
	}
	if !okCaptcha {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "CAPTCHA failed. Please retry."})
	}

	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": err.Error()})
	}

	var khatam models.Khatam
	if err := s.DB.First(&khatam, "slug = ?", req.Slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"ok": false, "error": "Khatam not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": "DB error"})
	}

	if time.Now().After(khatam.ReadByAt) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "Pledging has closed for this khatam"})
	}

	secret, err := utils.GenerateTokenSecret()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": "failed to generate token"})
	}
	hash, err := utils.HashTokenSecret(secret)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": "failed to hash token"})
	}

	pledge := &models.Pledge{
		ID:             uuid.NewString(),
		KhatamID:       khatam.ID,
		DisplayName:    req.DisplayName,
		Message:        req.Message,
		Email:          req.Email,
		EditTokenID:    uuid.NewString(),
		EditTokenHash:  hash,
		UnitsPledged:   1,
		UnitsCompleted: 0,
		Status:         models.PledgeStatusPledged,
	}

	switch khatam.Type {
	case models.KhatamTypeCounter:
		if req.UnitsPledged > 1 {
			pledge.UnitsPledged = req.UnitsPledged
		}
		if err := s.DB.Create(pledge).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": err.Error()})
		}

	default: // quran
		if req.JuzNumber < 1 || req.JuzNumber > models.QuranJuzCount {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "Please select a valid Juz' (1..30)"})
		}

		// Claim and insert share one transaction. The conditional update is
		// the arbiter when two pledges race for the same Juz': RowsAffected
		// is 1 only for the winner.
		txErr := s.DB.Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.KhatamItem{}).
				Where("khatam_id = ? AND juz_number = ? AND is_taken = ?", khatam.ID, req.JuzNumber, false).
				Update("is_taken", true)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errJuzTaken
			}

			var item models.KhatamItem
			if err := tx.First(&item, "khatam_id = ? AND juz_number = ?", khatam.ID, req.JuzNumber).Error; err != nil {
				return err
			}
			pledge.KhatamItemID = &item.ID

			return tx.Create(pledge).Error
		})
		if errors.Is(txErr, errJuzTaken) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "This Juz' is already taken. Please choose another."})
		}
		if txErr != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": txErr.Error()})
		}
	}

	manage := pledge.EditTokenID + "." + secret

	if req.Email != "" {
		manageURL := fmt.Sprintf("%s/p/%s", s.AppBaseURL, manage)
		if err := s.Email.SendManageLink(req.Email, manageURL, khatam.Title); err != nil {
			// best-effort only, the pledge already exists
			log.Printf("⚠️ Manage-link email for pledge %s failed: %v", pledge.ID, err)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true, "manage": manage})
}

// verifyManageToken resolves a raw "id.secret" token to its pledge. When ok
// fails, the returned status and message are ready for the response
// envelope. Unknown id and bad secret answer differently on purpose.
func (s *PledgeService) verifyManageToken(raw string) (*models.Pledge, int, string) {
	id, secret, ok := utils.SplitManageToken(raw)
	if !ok {
		return nil, fiber.StatusBadRequest, "Bad manage token"
	}

	var pledge models.Pledge
	if err := s.DB.First(&pledge, "edit_token_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.StatusNotFound, "Pledge not found"
		}
		return nil, fiber.StatusInternalServerError, "DB error"
	}

	if !utils.CompareTokenSecret(secret, pledge.EditTokenHash) {
		return nil, fiber.StatusForbidden, "Invalid manage token"
	}
	return &pledge, 0, ""
}

// GetPledge returns the token-holder's own pledge with its khatam summary.
// GET /pledge/get?token=<id.secret>
func (s *PledgeService) GetPledge(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "Missing token"})
	}

	pledge, status, msg := s.verifyManageToken(token)
	if pledge == nil {
		return c.Status(status).JSON(fiber.Map{"ok": false, "error": msg})
	}

	var khatam models.Khatam
	if err := s.DB.First(&khatam, "id = ?", pledge.KhatamID).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": "Khatam check failed"})
	}

	var juzNumber *int
	if pledge.KhatamItemID != nil {
		var item models.KhatamItem
		if err := s.DB.First(&item, "id = ?", *pledge.KhatamItemID).Error; err == nil {
			juzNumber = &item.JuzNumber
		}
	}

	return c.JSON(fiber.Map{"ok": true, "data": fiber.Map{
		"id":              pledge.ID,
		"display_name":    pledge.DisplayName,
		"message":         pledge.Message,
		"status":          pledge.Status,
		"units_pledged":   pledge.UnitsPledged,
		"units_completed": pledge.UnitsCompleted,
		"created_at":      pledge.CreatedAt,
		"juz_number":      juzNumber,
		"khatam": fiber.Map{
			"id":           khatam.ID,
			"title":        khatam.Title,
			"type":         khatam.Type,
			"unit_label":   khatam.UnitLabel,
			"target_units": khatam.TargetUnits,
			"slug":         khatam.Slug,
			"read_by_at":   khatam.ReadByAt,
			"tz":           khatam.Tz,
		},
	}})
}

type UpdatePledgeRequest struct {
	Manage         string `json:"manage" validate:"required"`
	Action         string `json:"action" validate:"required,oneof=setUnitsCompleted markCompleted withdraw"`
	UnitsCompleted int    `json:"units_completed"`
}

// UpdatePledge applies one of three transitions to the token-holder's
// pledge: partial progress, completion, or withdrawal. Only status
// "pledged" may transition; terminal states are frozen, and everything is
// rejected once the deadline has passed.
func (s *PledgeService) UpdatePledge(c *fiber.Ctx) error {
	var req UpdatePledgeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "invalid JSON body"})
	}
	if req.Manage == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "Missing manage token"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "Unknown action"})
	}

	pledge, status, msg := s.verifyManageToken(req.Manage)
	if pledge == nil {
		return c.Status(status).JSON(fiber.Map{"ok": false, "error": msg})
	}

	var khatam models.Khatam
	if err := s.DB.Select("id, read_by_at").First(&khatam, "id = ?", pledge.KhatamID).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": "Khatam check failed"})
	}
	if time.Now().After(khatam.ReadByAt) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "This khatam is closed"})
	}

	pledged := s.DB.Model(&models.Pledge{}).
		Where("id = ? AND status = ?", pledge.ID, models.PledgeStatusPledged)

	var res *gorm.DB
	switch req.Action {
	case "withdraw":
		res = pledged.Update("status", models.PledgeStatusWithdrawn)
	case "markCompleted":
		res = pledged.Updates(map[string]interface{}{
			"status":          models.PledgeStatusCompleted,
			"units_completed": pledge.UnitsPledged,
		})
	case "setUnitsCompleted":
		n := req.UnitsCompleted
		if n < 0 {
			n = 0
		}
		if n > pledge.UnitsPledged {
			n = pledge.UnitsPledged
		}
		res = pledged.Update("units_completed", n)
	}

	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": res.Error.Error()})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "Pledge is already completed or withdrawn"})
	}

	return c.JSON(fiber.Map{"ok": true})
}
