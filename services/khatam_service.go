package services

import (
	"errors"
	"log"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"khatam-tracker/models"
	"khatam-tracker/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Attempts before giving up on a colliding slug.
const slugInsertAttempts = 3

var validate = validator.New()

type KhatamService struct {
	DB      *gorm.DB
	Captcha *CaptchaClient
}

func NewKhatamService(db *gorm.DB, captcha *CaptchaClient) *KhatamService {
	return &KhatamService{DB: db, Captcha: captcha}
}

type CreateKhatamRequest struct {
	Type           string `json:"type" validate:"required,oneof=quran custom_counter"`
	Title          string `json:"title" validate:"required"`
	DedicationText string `json:"dedication_text" validate:"omitempty,max=2000"`
	ReadByISO      string `json:"read_by_iso" validate:"required"`
	Tz             string `json:"tz" validate:"required"`
	CaptchaToken   string `json:"captcha_token"`

	// custom_counter only
	UnitLabel   string `json:"unit_label"`
	TargetUnits int    `json:"target_units"`
}

// CreateKhatam creates a campaign. For Qur'an khatams the 30 Juz' items are
// seeded inside the same transaction, so a khatam can never persist
// half-initialized.
func (s *KhatamService) CreateKhatam(c *fiber.Ctx) error {
	var req CreateKhatamRequest
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

	title := strings.TrimSpace(req.Title)
	if utf8.RuneCountInString(title) < 3 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "Title is required (min 3 chars)."})
	}

	readBy, err := time.Parse(time.RFC3339, req.ReadByISO)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "Invalid read_by_iso date."})
	}

	khatam := &models.Khatam{
		ID:             uuid.NewString(),
		Title:          title,
		DedicationText: req.DedicationText,
		Type:           req.Type,
		ReadByAt:       readBy.UTC(),
		Tz:             req.Tz,
	}

	if req.Type == models.KhatamTypeCounter {
		if req.UnitLabel == "" || req.TargetUnits <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "unit_label and positive target_units are required for custom counters."})
		}
		unitLabel := req.UnitLabel
		target := req.TargetUnits
		khatam.UnitLabel = &unitLabel
		khatam.TargetUnits = &target
	}

	// Khatam insert and Juz' seeding share one transaction. A collision on
	// the slug's unique index gets a fresh suffix and another attempt.
	var insertErr error
	for attempt := 1; attempt <= slugInsertAttempts; attempt++ {
		khatam.Slug = utils.GenerateSlug(title)
		insertErr = s.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(khatam).Error; err != nil {
				return err
			}
			if khatam.Type == models.KhatamTypeQuran {
				items := make([]models.KhatamItem, 0, models.QuranJuzCount)
				for juz := 1; juz <= models.QuranJuzCount; juz++ {
					items = append(items, models.KhatamItem{
						ID:        uuid.NewString(),
						KhatamID:  khatam.ID,
						JuzNumber: juz,
					})
				}
				if err := tx.Create(&items).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if insertErr == nil || !errors.Is(insertErr, gorm.ErrDuplicatedKey) {
			break
		}
		log.Printf("⚠️ Slug %q collided, retrying (%d/%d)", khatam.Slug, attempt, slugInsertAttempts)
	}
	if insertErr != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": insertErr.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true, "slug": khatam.Slug})
}

// GetKhatam returns the public khatam row by slug.
func (s *KhatamService) GetKhatam(c *fiber.Ctx) error {
	slug := strings.TrimSpace(c.Query("slug"))
	if slug == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "Missing slug"})
	}

	var khatam models.Khatam
	if err := s.DB.First(&khatam, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"ok": false, "error": "Khatam not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": "DB error"})
	}
	return c.JSON(fiber.Map{"ok": true, "data": khatam})
}

// RosterPledge is the creator-facing pledge shape. Emails are private: the
// SELECT below lists columns explicitly and this struct has no email field.
type RosterPledge struct {
	ID             string    `json:"id"`
	DisplayName    string    `json:"display_name,omitempty"`
	Message        string    `json:"message,omitempty"`
	Status         string    `json:"status"`
	UnitsPledged   int       `json:"units_pledged"`
	UnitsCompleted int       `json:"units_completed"`
	CreatedAt      time.Time `json:"created_at"`
	JuzNumber      *int      `json:"juz_number,omitempty"`
}

// ListPledges returns the roster for a khatam, newest first, without emails.
func (s *KhatamService) ListPledges(c *fiber.Ctx) error {
	slug := strings.TrimSpace(c.Query("slug"))
	if slug == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "Missing slug"})
	}

	var khatam models.Khatam
	if err := s.DB.First(&khatam, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"ok": false, "error": "Khatam not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": "DB error"})
	}

	var pledges []RosterPledge
	err := s.DB.Table("pledges").
		Select(`pledges.id, pledges.display_name, pledges.message, pledges.status,
			pledges.units_pledged, pledges.units_completed, pledges.created_at,
			khatam_items.juz_number AS juz_number`).
		Joins("LEFT JOIN khatam_items ON khatam_items.id = pledges.khatam_item_id").
		Where("pledges.khatam_id = ?", khatam.ID).
		Order("pledges.created_at DESC").
		Scan(&pledges).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": "failed to fetch pledges"})
	}
	if pledges == nil {
		pledges = []RosterPledge{}
	}

	return c.JSON(fiber.Map{"ok": true, "data": fiber.Map{
		"khatam": fiber.Map{
			"id":           khatam.ID,
			"slug":         khatam.Slug,
			"title":        khatam.Title,
			"type":         khatam.Type,
			"unit_label":   khatam.UnitLabel,
			"target_units": khatam.TargetUnits,
		},
		"pledges": pledges,
	}})
}

// UploadCover stores a cover image on R2 and records its public URL.
// Unauthenticated until creator auth exists, like the roster endpoint.
func (s *KhatamService) UploadCover(c *fiber.Ctx) error {
	slug := c.Params("slug")

	var khatam models.Khatam
	if err := s.DB.First(&khatam, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"ok": false, "error": "Khatam not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": "DB error"})
	}

	coverFile, err := c.FormFile("cover")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "cover file is required"})
	}
	if coverFile.Size > 10*1024*1024 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "file too large (max 10MB)"})
	}
	if !utils.R2Enabled() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"ok": false, "error": "cover uploads are not configured"})
	}

	coverExt := filepath.Ext(coverFile.Filename)
	if coverExt == "" {
		coverExt = ".jpg"
	}
	coverKey := "covers/" + uuid.NewString() + coverExt
	coverURL, err := utils.UploadFileToR2(coverFile, coverKey)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": "failed to upload cover to R2"})
	}

	if err := s.DB.Model(&khatam).Update("cover_image_url", coverURL).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": "DB error"})
	}

	return c.JSON(fiber.Map{"ok": true, "cover_image_url": coverURL})
}
