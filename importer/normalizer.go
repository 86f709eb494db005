package importer

import (
	"fmt"
	"strings"

	"catalog-service/models"

	"github.com/kennygrant/sanitize"
)

// Column names recognised in import files.
const (
	FieldTitle        = "title"
	FieldArticle      = "article"
	FieldCategory     = "category"
	FieldDescription  = "description"
	FieldDetails      = "details"
	FieldAvailability = "availability"
	FieldImages       = "images"
)

var descriptionPrefixes = []string{"Описание ", "Description "}

var (
	inStockTerms = []string{"in stock", "stock", "в наличии", "наличии"}
	orderTerms   = []string{"on order", "order", "под заказ", "заказ"}
)

// CanonicalRow is a validated, coerced import row.
type CanonicalRow struct {
	Row              int
	Title            string
	Article          string
	CategoryName     string
	Description      string
	DetailsText      string
	AvailabilityText string
	ImageURLs        []string
}

func (r CanonicalRow) Details() map[string]string {
	return ParseDetails(r.DetailsText)
}

func (r CanonicalRow) Availability() models.Availability {
	return ClassifyAvailability(r.AvailabilityText)
}

// Skip explains why a row was not imported. It is reported as a warning.
type Skip struct {
	Row    int
	Reason string
}

func (s *Skip) Error() string {
	return fmt.Sprintf("row %d: %s", s.Row, s.Reason)
}

// rowNumber is the source line of rec, falling back to its position after the header.
func rowNumber(rec *RawRecord, index int) int {
	if rec.Line > 0 {
		return rec.Line
	}
	return index + 2
}

// Normalize validates a raw record. Rows are numbered from 2 because row 1 is the header.
func Normalize(rec *RawRecord, index int) (CanonicalRow, *Skip) {
	rowNum := rowNumber(rec, index)

	title := rec.Text(FieldTitle)
	if title == "" {
		return CanonicalRow{}, &Skip{Row: rowNum, Reason: "missing title"}
	}

	row := CanonicalRow{
		Row:              rowNum,
		Title:            title,
		Article:          rec.Text(FieldArticle),
		CategoryName:     rec.Text(FieldCategory),
		Description:      CleanDescription(rec.Text(FieldDescription)),
		DetailsText:      rec.Text(FieldDetails),
		AvailabilityText: rec.Text(FieldAvailability),
	}
	if v, ok := rec.Get(FieldImages); ok {
		row.ImageURLs = ImageURLs(v)
	}
	return row, nil
}

// CleanDescription trims text and drops a leading boilerplate label.
func CleanDescription(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range descriptionPrefixes {
		if strings.HasPrefix(s, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(s, prefix))
		}
	}
	return s
}

// ParseDetails reads "key: value | key: value" into a map. Tags are stripped from
// both sides and segments without a colon are dropped.
func ParseDetails(text string) map[string]string {
	details := make(map[string]string)
	if strings.TrimSpace(text) == "" {
		return details
	}
	for _, segment := range strings.Split(text, "|") {
		key, value, ok := strings.Cut(segment, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(sanitize.HTML(key))
		if key == "" {
			continue
		}
		details[key] = strings.TrimSpace(sanitize.HTML(value))
	}
	return details
}

// ClassifyAvailability maps free text onto the availability enum; unknown text means in stock.
func ClassifyAvailability(text string) models.Availability {
	lower := strings.ToLower(text)
	for _, term := range inStockTerms {
		if strings.Contains(lower, term) {
			return models.AvailabilityInStock
		}
	}
	for _, term := range orderTerms {
		if strings.Contains(lower, term) {
			return models.AvailabilityOrder
		}
	}
	return models.AvailabilityInStock
}

// ImageURLs wraps a single URL into a list and drops blank entries.
func ImageURLs(v Value) []string {
	var raw []string
	switch v.Kind {
	case KindList:
		raw = v.List
	case KindString:
		raw = []string{v.Str}
	default:
		return nil
	}
	urls := make([]string, 0, len(raw))
	for _, u := range raw {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}
