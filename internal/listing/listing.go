// Package listing renders marketplace titles and descriptions for graded cards.
package listing

import (
	"fmt"
	"strings"

	"github.com/slabworks/certlister/internal/models"
)

const verifyURL = "https://www.psacard.com/cert/%s"

var (
	shippingNotes = []string{
		"• FREE secure shipping with tracking (United States only)",
		"• Professional packaging with card saver and bubble mailer",
		"• Full insurance included for your protection",
		"• Ships within 1 business day of cleared payment",
	}
	sellerNotes = []string{
		"• US-based seller with excellent feedback",
		"• Fast shipping - typically ships within 1 business day",
		"• Cards are stored in smoke-free, climate-controlled environment",
	}
	returnPolicy = []string{
		"• 30-day returns accepted if item is not as described",
		"• Buyer pays return shipping",
		"• Please contact us before returning",
	}
)

// Build renders the listing for a record. It returns nil only for a nil or empty record.
//
// Title order: grading, card name, variants, card number, set, language when
// not English, franchise, year. Empty components are left out.
func Build(rec *models.CardRecord) *models.Listing {
	if rec.IsZero() {
		return nil
	}

	variants := Variants(rec)
	title := buildTitle(rec, variants)

	return &models.Listing{
		Title:       title,
		Description: buildDescription(rec, title, variants),
	}
}

// Variants returns the record's variants followed by any brand marker not already listed.
func Variants(rec *models.CardRecord) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" {
			return
		}
		key := strings.ToUpper(v)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}

	for _, v := range rec.Variants {
		add(v)
	}
	brand := strings.ToUpper(rec.Brand)
	for _, m := range models.BrandMarkers {
		if strings.Contains(brand, m) {
			add(m)
		}
	}
	return out
}

// Franchise is "Pokemon" for any Pokemon brand, else the sport.
func Franchise(rec *models.CardRecord) string {
	if strings.Contains(strings.ToUpper(rec.Brand), "POKEMON") {
		return "Pokemon"
	}
	return strings.TrimSpace(rec.Sport)
}

func buildTitle(rec *models.CardRecord, variants []string) string {
	var parts []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}

	add(gradeLabel(rec))
	add(rec.CardName)
	for _, v := range variants {
		add(v)
	}
	add(rec.CardNumber)
	add(rec.Set)
	if nonDefaultLanguage(rec) {
		add(rec.Language)
	}
	add(Franchise(rec))
	add(rec.Year)

	return strings.Join(parts, " ")
}

// gradeLabel is "PSA {grade}" followed by the qualifier and grade suffix.
func gradeLabel(rec *models.CardRecord) string {
	var parts []string
	if g := strings.TrimSpace(rec.Grade); g != "" {
		parts = append(parts, "PSA "+g)
	}
	if q := strings.TrimSpace(rec.Qualifier); q != "" {
		parts = append(parts, q)
	}
	if s := strings.TrimSpace(rec.GradeSuffix); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}

// gradeDetail renders "10 (OC) +" style grade text for the description.
func gradeDetail(rec *models.CardRecord, fallback string) string {
	grade := strings.TrimSpace(rec.Grade)
	if grade == "" {
		grade = fallback
	}
	if q := strings.TrimSpace(rec.Qualifier); q != "" {
		grade += " (" + q + ")"
	}
	if s := strings.TrimSpace(rec.GradeSuffix); s != "" {
		grade += " " + s
	}
	return grade
}

func nonDefaultLanguage(rec *models.CardRecord) bool {
	lang := strings.TrimSpace(rec.Language)
	return lang != "" && lang != models.DefaultLanguage
}

func buildDescription(rec *models.CardRecord, title string, variants []string) string {
	lines := []string{
		"# " + title,
		"\n## Card Details",
	}

	detail := func(label, value string) {
		if value = strings.TrimSpace(value); value != "" {
			lines = append(lines, fmt.Sprintf("• %s: %s", label, value))
		}
	}
	detail("PSA Certificate", rec.CertNumber)
	if strings.TrimSpace(rec.Grade) != "" {
		detail("PSA Grade", gradeDetail(rec, ""))
	}
	detail("Card Name", rec.CardName)
	detail("Card Number", rec.CardNumber)
	detail("Year", rec.Year)
	detail("Brand", rec.Brand)
	detail("Set", rec.Set)
	detail("Variant", strings.Join(variants, ", "))
	if nonDefaultLanguage(rec) {
		detail("Language", rec.Language)
	}

	lines = append(lines,
		"\n## Authentication & Grading",
		"• PSA Graded "+gradeDetail(rec, "N/A"),
	)
	if cert := strings.TrimSpace(rec.CertNumber); cert != "" {
		lines = append(lines, "• Verify this card at PSA's website: "+fmt.Sprintf(verifyURL, cert))
	}

	lines = append(lines, "\n## Shipping & Handling")
	lines = append(lines, shippingNotes...)
	lines = append(lines, "\n## Seller Notes")
	lines = append(lines, sellerNotes...)
	lines = append(lines, "\n## Return Policy")
	lines = append(lines, returnPolicy...)

	return strings.Join(lines, "\n")
}
