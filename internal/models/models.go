package models

// DefaultLanguage is the language PSA assumes when a record does not name one.
const DefaultLanguage = "English"

// BrandMarkers are rarity tags PSA folds into the brand text instead of the variety fields.
var BrandMarkers = []string{"MASTER BALL", "REVERSE HOLO"}

// CardRecord represents a normalized PSA certification record
type CardRecord struct {
	CertNumber   string   `json:"cert_number" yaml:"cert_number"`
	Year         string   `json:"year" yaml:"year"`
	Brand        string   `json:"brand" yaml:"brand"`
	CardName     string   `json:"card_name" yaml:"card_name"`
	Grade        string   `json:"grade" yaml:"grade"`
	Player       string   `json:"player" yaml:"player"`
	Sport        string   `json:"sport" yaml:"sport"`
	Set          string   `json:"set" yaml:"set"`
	CardNumber   string   `json:"card_number" yaml:"card_number"`
	Variety      string   `json:"variety" yaml:"variety"`
	Qualifier    string   `json:"qualifier" yaml:"qualifier"`
	GradeSuffix  string   `json:"grade_suffix" yaml:"grade_suffix"`
	InsertType   string   `json:"insert_type" yaml:"insert_type"`
	ParallelType string   `json:"parallel_type" yaml:"parallel_type"`
	Language     string   `json:"language" yaml:"language"`
	Variants     []string `json:"variants" yaml:"variants"`
}

// IsZero reports whether no field of the record is populated.
func (r *CardRecord) IsZero() bool {
	if r == nil {
		return true
	}
	return r.CertNumber == "" && r.Year == "" && r.Brand == "" && r.CardName == "" &&
		r.Grade == "" && r.Player == "" && r.Sport == "" && r.Set == "" &&
		r.CardNumber == "" && r.Variety == "" && r.Qualifier == "" &&
		r.GradeSuffix == "" && r.InsertType == "" && r.ParallelType == "" &&
		r.Language == "" && len(r.Variants) == 0
}

// Listing is the marketplace title and description generated for a card
type Listing struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
}

// LookupSuccess pairs a certificate with its record and listing
type LookupSuccess struct {
	CertNumber string      `json:"cert_number" yaml:"cert_number"`
	Success    bool        `json:"success" yaml:"success"`
	CardData   *CardRecord `json:"card_data" yaml:"card_data"`
	Listing    *Listing    `json:"listing" yaml:"listing"`
}

// LookupFailure records why a certificate could not be listed
type LookupFailure struct {
	CertNumber string `json:"cert_number" yaml:"cert_number"`
	Error      string `json:"error" yaml:"error"`
}

// BatchResult is the outcome of a batch lookup, in input order
type BatchResult struct {
	Success        bool            `json:"success" yaml:"success"`
	TotalProcessed int             `json:"total_processed" yaml:"total_processed"`
	Successful     int             `json:"successful" yaml:"successful"`
	Failed         int             `json:"failed" yaml:"failed"`
	Results        []LookupSuccess `json:"results" yaml:"results"`
	Errors         []LookupFailure `json:"errors" yaml:"errors"`
}

// ConsignmentRequest is a seller's request to consign a range of graded cards
type ConsignmentRequest struct {
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Notes     string         `json:"notes,omitempty"`
	CertRange CertRange      `json:"cert_range"`
	Results   map[string]any `json:"results"`
}

// CertRange bounds a consignment; PSA numbers arrive as strings or numbers.
type CertRange struct {
	Start FlexString `json:"start"`
	End   FlexString `json:"end"`
}
