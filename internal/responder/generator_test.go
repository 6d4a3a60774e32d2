package responder

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"thalrakshak-assistant/internal/document"
	"thalrakshak-assistant/internal/intent"
	"thalrakshak-assistant/internal/inventory"
	"thalrakshak-assistant/internal/models"
	"thalrakshak-assistant/internal/vitals"

	"github.com/stretchr/testify/assert"
)

func testSnapshot() *models.InventorySnapshot {
	return models.NewInventorySnapshot(map[models.BloodType]int{
		models.APositive:  45,
		models.ANegative:  12,
		models.BPositive:  38,
		models.BNegative:  9,
		models.ABPositive: 22,
		models.ABNegative: 8,
		models.OPositive:  52,
		models.ONegative:  15,
	}, models.SourceLive, time.Now())
}

func TestGenerate_CheckStockCritical(t *testing.T) {
	g := NewGenerator(Options{})
	text := "do you have AB- blood"

	reply := g.Generate(intent.Classify(text), Context{Text: text, Inventory: testSnapshot()})

	assert.Contains(t, reply, "AB-: 8 units")
	assert.Contains(t, reply, "critical")
	// 相容且有库存的替代血型（不含自身）
	assert.Contains(t, reply, "- O-: 15 units")
	assert.Contains(t, reply, "- A-: 12 units")
	assert.Contains(t, reply, "- B-: 9 units")
	assert.NotContains(t, reply, "- AB-:")
}

func TestGenerate_CheckStockGoodWithCities(t *testing.T) {
	g := NewGenerator(Options{})
	snapshot := inventory.FallbackSnapshot(time.Now())

	reply := g.Generate(models.IntentCheckStock, Context{Text: "is O+ in stock?", Inventory: snapshot})

	assert.Contains(t, reply, "O+: 52 units — status: good")
	assert.Contains(t, reply, "By city:")
	assert.Contains(t, reply, "- Mumbai: 14 units")
	assert.NotContains(t, reply, "alternatives")
}

func TestGenerate_CheckStockWithoutTypeListsAll(t *testing.T) {
	g := NewGenerator(Options{})
	reply := g.Generate(models.IntentCheckStock, Context{Text: "what is in stock", Inventory: testSnapshot()})

	assert.Contains(t, reply, "Current blood inventory:")
	for _, bt := range models.AllBloodTypes {
		assert.Contains(t, reply, fmt.Sprintf("- %s:", bt))
	}
	assert.Contains(t, reply, "Total: 201 units")
}

func TestGenerate_DataUnavailable(t *testing.T) {
	g := NewGenerator(Options{})
	for _, in := range []models.Intent{models.IntentCheckStock, models.IntentInventory} {
		assert.Equal(t, LoadingMessage, g.Generate(in, Context{Text: "do you have O+"}), in)
	}

	// 不需要库存数量的意图不受影响
	reply := g.Generate(models.IntentRequestBlood, Context{Text: "I need O+"})
	assert.Contains(t, reply, "Blood Request")
	assert.NotContains(t, reply, "stock")
}

func TestGenerate_RequestBloodFlow(t *testing.T) {
	g := NewGenerator(Options{})
	text := "I need 2 units of O+ blood urgently"
	req := &models.ActiveRequest{
		RequestID: "REQ-1A2B3C4D",
		BloodType: models.OPositive,
		Units:     2,
		Urgent:    true,
		Status:    models.RequestStatusPending,
	}

	got := intent.Classify(text)
	assert.Equal(t, models.IntentRequestBlood, got)

	reply := g.Generate(got, Context{Text: text, Inventory: testSnapshot(), ActiveRequest: req})
	assert.Contains(t, reply, "Blood Request")
	assert.Contains(t, reply, "1. Blood type: O+")
	assert.Contains(t, reply, "Hospital name and city")
	assert.Contains(t, reply, `REQ-1A2B3C4D for 2 units of O+ has been logged with status "pending"`)
	assert.Contains(t, reply, "marked urgent")
	assert.NotContains(t, reply, "Current blood inventory:")
}

func TestGenerate_RequestBloodWithoutType(t *testing.T) {
	reply := NewGenerator(Options{}).Generate(models.IntentRequestBlood, Context{Text: "I need blood"})
	assert.Contains(t, reply, "not detected")
}

func TestGenerate_TrackRequest(t *testing.T) {
	g := NewGenerator(Options{})

	assert.Contains(t, g.Generate(models.IntentTrackRequest, Context{}), "no active blood request")

	created := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	reply := g.Generate(models.IntentTrackRequest, Context{ActiveRequest: &models.ActiveRequest{
		RequestID: "REQ-42", BloodType: models.BNegative, Units: 3, Status: models.RequestStatusMatched, CreatedAt: created,
	}})
	assert.Contains(t, reply, "Request REQ-42")
	assert.Contains(t, reply, "- Status: matched")
	assert.Contains(t, reply, "01 May 2024 09:30")
}

func TestGenerate_DonateUsesTextThenProfile(t *testing.T) {
	g := NewGenerator(Options{})

	reply := g.Generate(models.IntentDonate, Context{Text: "who can O- donate to"})
	assert.Contains(t, reply, "Compatibility for O-")
	assert.Contains(t, reply, "- Can donate to: A+, A-, B+, B-, AB+, AB-, O+, O-")
	assert.Contains(t, reply, "- Can receive from: O-")
	assert.Contains(t, reply, "universal donor")

	reply = g.Generate(models.IntentDonate, Context{Text: "I want to donate", Profile: &models.UserProfile{BloodType: models.APositive}})
	assert.Contains(t, reply, "Compatibility for A+")
	assert.Contains(t, reply, "- Can donate to: A+, AB+")

	reply = g.Generate(models.IntentDonate, Context{Text: "I want to donate"})
	assert.Contains(t, reply, "Tell me your blood type")
}

func TestGenerate_EligibilityCriteria(t *testing.T) {
	g := NewGenerator(Options{MaxFileBytes: 5 * 1024 * 1024, MaxPages: 10})
	reply := g.Generate(models.IntentEligibility, Context{})

	assert.Contains(t, reply, "- Hemoglobin: 12.5 to 18 g/dL")
	assert.Contains(t, reply, "- Weight: at least 50 kg")
	assert.Contains(t, reply, "- Age: 18 to 65 years")
	assert.Contains(t, reply, "up to 5 MB and 10 pages")
}

func TestGenerate_Emergency(t *testing.T) {
	g := NewGenerator(Options{})
	reply := g.Generate(models.IntentEmergency, Context{Text: "emergency, patient is A-", Inventory: testSnapshot()})

	assert.Contains(t, reply, "call 108")
	assert.Contains(t, reply, "compatible donor types are: A-, O-")
	assert.Contains(t, reply, "- O-: 15 units")
	assert.Contains(t, reply, "- A-: 12 units")
}

func TestGenerate_RegisterAndSchedule(t *testing.T) {
	g := NewGenerator(Options{})

	assert.Contains(t, g.Generate(models.IntentRegister, Context{}), "Register as a Donor")
	assert.Contains(t, g.Generate(models.IntentRegister, Context{Profile: &models.UserProfile{UserID: "u1", Name: "Asha"}}),
		"already registered as Asha")

	reply := g.Generate(models.IntentSchedule, Context{Profile: &models.UserProfile{City: "Chennai"}})
	assert.Contains(t, reply, "centre in Chennai")
}

func TestGenerate_EveryIntentProducesText(t *testing.T) {
	g := NewGenerator(Options{})
	for _, in := range models.AllIntents {
		assert.NotEmpty(t, strings.TrimSpace(g.Generate(in, Context{Inventory: testSnapshot()})), in)
	}
	// 未知意图按 fallback 处理
	assert.Equal(t, g.Generate(models.IntentFallback, Context{}), g.Generate("bogus", Context{}))
}

func TestFormatEligibility(t *testing.T) {
	g := NewGenerator(Options{})

	report := models.VitalsReport{models.VitalHemoglobin: 11.0, models.VitalSystolic: 120}
	reply := g.FormatEligibility(report, vitals.Evaluate(report, vitals.DefaultThresholds()))
	assert.Contains(t, reply, "- Hemoglobin: 11 g/dL")
	assert.Contains(t, reply, "not eligible")
	assert.Contains(t, reply, "Hemoglobin 11 g/dL is below the minimum of 12.5 g/dL")
	assert.Contains(t, reply, "Not found in the report: diastolic blood pressure, pulse, temperature, weight, age")

	ok := models.VitalsReport{models.VitalHemoglobin: 14, models.VitalAge: 30}
	reply = g.FormatEligibility(ok, vitals.Evaluate(ok, vitals.DefaultThresholds()))
	assert.Contains(t, reply, "You appear eligible to donate")
}

func TestUploadRejected(t *testing.T) {
	g := NewGenerator(Options{})

	reply := g.UploadRejected("big.pdf", &document.ValidationError{Err: document.ErrFileTooLarge, Limit: 5 * 1024 * 1024, Actual: 6 * 1024 * 1024})
	assert.Contains(t, reply, "maximum file size is 5 MB")

	reply = g.UploadRejected("long.pdf", &document.ValidationError{Err: document.ErrTooManyPages, Limit: 10, Actual: 11})
	assert.Contains(t, reply, "has 11 pages")
	assert.Contains(t, reply, "at most 10 pages")

	reply = g.UploadRejected("scan.pdf", &document.ParseError{Err: document.ErrNoText})
	assert.Contains(t, reply, "scanned image")

	reply = g.UploadRejected("bad.pdf", &document.ParseError{Err: document.ErrUnreadable})
	assert.Contains(t, reply, "is a PDF document")
	assert.Contains(t, reply, "not password protected")
	assert.Contains(t, reply, "not damaged")
}

func TestNoVitalsAndAttachments(t *testing.T) {
	g := NewGenerator(Options{})
	assert.Contains(t, g.NoVitalsFound("r.pdf"), "hemoglobin, systolic blood pressure")
	assert.Contains(t, g.ImageReceived("scan.jpg"), "only analyse text-based PDF")
	assert.Contains(t, g.UnsupportedFile("notes.docx"), "not a supported file type")
}
