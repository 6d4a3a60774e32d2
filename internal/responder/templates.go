package responder

import (
	"fmt"
	"strings"

	"thalrakshak-assistant/internal/bloodtype"
	"thalrakshak-assistant/internal/inventory"
	"thalrakshak-assistant/internal/models"
	"thalrakshak-assistant/internal/vitals"
)

// LoadingMessage 库存尚未加载时的回复
const LoadingMessage = "Blood inventory is still loading. Please try again in a moment."

// EmergencyNumber 急救电话
const EmergencyNumber = "108"

func requestBlood(ctx Context) string {
	bt, found := bloodtype.Extract(ctx.Text)

	var b strings.Builder
	b.WriteString("Blood Request\n")
	b.WriteString("I can help you raise a blood request. Please confirm the following details:\n")
	if found {
		fmt.Fprintf(&b, "1. Blood type: %s\n", bt)
	} else {
		b.WriteString("1. Blood type: not detected, please specify (for example \"O+\")\n")
	}
	b.WriteString("2. Number of units required\n")
	b.WriteString("3. Hospital name and city\n")
	b.WriteString("4. Urgency (urgent or routine)\n")

	if r := ctx.ActiveRequest; r != nil {
		fmt.Fprintf(&b, "\nYour request %s for %s of %s has been logged with status %q.",
			r.RequestID, pluralUnits(r.Units), r.BloodType, r.Status)
		if r.Urgent {
			b.WriteString(" It is marked urgent and will be prioritised.")
		}
		b.WriteString("\n")
	}
	if found && ctx.Inventory != nil {
		n := ctx.Inventory.UnitsFor(bt)
		fmt.Fprintf(&b, "Current %s stock: %s (%s).\n", bt, pluralUnits(n), inventory.ClassifyTier(n))
	}
	b.WriteString("You can ask me to track your request at any time.")
	return b.String()
}

func trackRequest(ctx Context) string {
	r := ctx.ActiveRequest
	if r == nil {
		return "You have no active blood request in this session.\n" +
			"To start one, tell me what you need, for example \"I need 2 units of O+ blood\"."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Request %s\n", r.RequestID)
	fmt.Fprintf(&b, "- Blood type: %s\n", r.BloodType)
	fmt.Fprintf(&b, "- Units: %d\n", r.Units)
	fmt.Fprintf(&b, "- Status: %s\n", r.Status)
	if r.Urgent {
		b.WriteString("- Priority: urgent\n")
	}
	fmt.Fprintf(&b, "- Created: %s", r.CreatedAt.Format("02 Jan 2006 15:04"))
	return b.String()
}

func checkStock(ctx Context) string {
	if ctx.Inventory == nil {
		return LoadingMessage
	}
	bt, found := bloodtype.Extract(ctx.Text)
	if !found {
		return listing(ctx.Inventory)
	}

	n := ctx.Inventory.UnitsFor(bt)
	tier := inventory.ClassifyTier(n)

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s — status: %s\n", bt, pluralUnits(n), tier)

	if cities := ctx.Inventory.CityUnits(bt); len(cities) > 0 {
		b.WriteString("By city:\n")
		for _, c := range cities {
			fmt.Fprintf(&b, "- %s: %s\n", c.City, pluralUnits(c.Units))
		}
	}

	if tier == inventory.TierCritical {
		alternatives := alternativesFor(bt, ctx.Inventory)
		if len(alternatives) > 0 {
			fmt.Fprintf(&b, "%s stock is critically low. Compatible alternatives in stock:\n", bt)
			for _, d := range alternatives {
				fmt.Fprintf(&b, "- %s: %s\n", d.BloodType, pluralUnits(d.Units))
			}
		} else {
			fmt.Fprintf(&b, "%s stock is critically low and no compatible alternatives are in stock.\n", bt)
		}
	}
	b.WriteString("Would you like to raise a request?")
	return b.String()
}

func schedule(ctx Context) string {
	var b strings.Builder
	b.WriteString("Schedule a Donation\n")
	b.WriteString("Donation centres are open Monday to Saturday, 9:00 to 17:00.\n")
	if ctx.Profile != nil && ctx.Profile.City != "" {
		fmt.Fprintf(&b, "I will look for a slot at a centre in %s.\n", ctx.Profile.City)
	}
	b.WriteString("Please tell me your preferred date and time, and the city you would like to donate in.\n")
	b.WriteString("Remember to eat a light meal and drink plenty of water before your appointment.")
	return b.String()
}

func donate(ctx Context) string {
	bt, found := bloodtype.Extract(ctx.Text)
	if !found && ctx.Profile != nil && ctx.Profile.BloodType.Valid() {
		bt, found = ctx.Profile.BloodType, true
	}
	if !found {
		return "Blood Donation\n" +
			"Donating one unit of blood can help save up to three lives.\n" +
			"Tell me your blood type (for example \"B+\") and I will show who you can donate to and receive from.\n" +
			"Ask \"am I eligible?\" to see the donation criteria."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Compatibility for %s\n", bt)
	fmt.Fprintf(&b, "- Can donate to: %s\n", joinTypes(bloodtype.CanDonateTo(bt)))
	fmt.Fprintf(&b, "- Can receive from: %s\n", joinTypes(bloodtype.CanReceiveFrom(bt)))
	switch bt {
	case models.ONegative:
		b.WriteString("O- is the universal donor. Your donation can help any patient.\n")
	case models.ABPositive:
		b.WriteString("AB+ is the universal recipient.\n")
	}
	b.WriteString("Ready to donate? Ask me to schedule an appointment.")
	return b.String()
}

func (g *Generator) eligibility(ctx Context) string {
	var b strings.Builder
	b.WriteString("Donor Eligibility Criteria\n")
	for _, th := range g.opts.Thresholds {
		fmt.Fprintf(&b, "- %s: %s\n", th.Label, describeRange(th))
	}
	b.WriteString("\nUpload a recent medical report and I will check your values against these criteria.\n")
	fmt.Fprintf(&b, "Accepted format: text-based PDF, up to %s and %d pages.",
		formatBytes(g.opts.MaxFileBytes), g.opts.MaxPages)
	return b.String()
}

func register(ctx Context) string {
	if p := ctx.Profile; p != nil && p.UserID != "" {
		name := p.Name
		if name == "" {
			name = p.UserID
		}
		return fmt.Sprintf("You are already registered as %s. "+
			"You can update your blood type, city and phone number from your profile.", name)
	}
	return "Register as a Donor\n" +
		"1. Full name and phone number\n" +
		"2. Blood type (if known)\n" +
		"3. City\n" +
		"4. Date of your last donation (if any)\n" +
		"Once registered, we will notify you when your blood type is needed nearby."
}

func emergency(ctx Context) string {
	var b strings.Builder
	b.WriteString("Emergency\n")
	fmt.Fprintf(&b, "If a life is at risk, call %s for an ambulance or go to the nearest hospital now.\n", EmergencyNumber)

	bt, found := bloodtype.Extract(ctx.Text)
	if found {
		fmt.Fprintf(&b, "For %s, compatible donor types are: %s.\n", bt, joinTypes(bloodtype.CanReceiveFrom(bt)))
		if ctx.Inventory != nil {
			if stock := bloodtype.CompatibleDonorsInStock(bt, ctx.Inventory); len(stock) > 0 {
				b.WriteString("Compatible units in stock:\n")
				for _, d := range stock {
					fmt.Fprintf(&b, "- %s: %s\n", d.BloodType, pluralUnits(d.Units))
				}
			}
		}
	} else {
		b.WriteString("Tell me the patient's blood type so I can check compatible stock.\n")
	}
	b.WriteString("Say \"I need N units of <type>\" to raise an urgent request.")
	return b.String()
}

func help(ctx Context) string {
	return "I can help you with:\n" +
		"- Requesting blood: \"I need 2 units of O+\"\n" +
		"- Tracking your request: \"track my request\"\n" +
		"- Checking stock: \"do you have AB- blood?\"\n" +
		"- Donor compatibility: \"who can B+ donate to?\"\n" +
		"- Eligibility: \"am I eligible to donate?\" or upload a medical report\n" +
		"- Scheduling a donation or registering as a donor\n" +
		"- Emergencies: \"emergency, need O- now\""
}

func inventoryListing(ctx Context) string {
	if ctx.Inventory == nil {
		return LoadingMessage
	}
	return listing(ctx.Inventory)
}

func fallback(ctx Context) string {
	return "Sorry, I did not understand that.\n" + help(ctx)
}

// listing 全部血型库存
func listing(snapshot *models.InventorySnapshot) string {
	var b strings.Builder
	b.WriteString("Current blood inventory:\n")
	for _, s := range inventory.Summarize(snapshot) {
		fmt.Fprintf(&b, "- %s: %s (%s)\n", s.BloodType, pluralUnits(s.Units), s.Tier)
	}
	fmt.Fprintf(&b, "Total: %s", pluralUnits(snapshot.Total()))
	return b.String()
}

// alternativesFor 有库存的相容血型（不含自身）
func alternativesFor(bt models.BloodType, snapshot *models.InventorySnapshot) []bloodtype.DonorStock {
	var out []bloodtype.DonorStock
	for _, d := range bloodtype.CompatibleDonorsInStock(bt, snapshot) {
		if d.BloodType != bt {
			out = append(out, d)
		}
	}
	return out
}

func joinTypes(types []models.BloodType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}

func pluralUnits(n int) string {
	if n == 1 {
		return "1 unit"
	}
	return fmt.Sprintf("%d units", n)
}

func describeRange(th models.ThresholdRange) string {
	switch {
	case th.Min != nil && th.Max != nil:
		return fmt.Sprintf("%s to %s %s", vitals.FormatValue(*th.Min), vitals.FormatValue(*th.Max), th.Unit)
	case th.Min != nil:
		return fmt.Sprintf("at least %s %s", vitals.FormatValue(*th.Min), th.Unit)
	case th.Max != nil:
		return fmt.Sprintf("at most %s %s", vitals.FormatValue(*th.Max), th.Unit)
	}
	return "no limit"
}

func formatBytes(n int64) string {
	const mb = 1024 * 1024
	if n%mb == 0 {
		return fmt.Sprintf("%d MB", n/mb)
	}
	return fmt.Sprintf("%.1f MB", float64(n)/mb)
}
