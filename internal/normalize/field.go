// Package normalize flattens an analysis result into a validated receipt
// record ready for storage.
package normalize

import (
	"time"

	"github.com/facturave/receipt-ingest/internal/analysis"
)

// FieldValue extracts the single populated payload of a field as a scalar.
// Dates are formatted as YYYY-MM-DD and times as HH:MM:SS. A field whose
// tagged payload is absent falls back to its generic content; a nil field or
// a field with nothing populated extracts to nil.
func FieldValue(f *analysis.DocumentField) any {
	if f == nil {
		return nil
	}
	switch f.Type {
	case analysis.FieldTypeString:
		if f.ValueString != nil {
			return *f.ValueString
		}
	case analysis.FieldTypeNumber:
		if f.ValueNumber != nil {
			return *f.ValueNumber
		}
	case analysis.FieldTypeInteger:
		if f.ValueInteger != nil {
			return *f.ValueInteger
		}
	case analysis.FieldTypeDate:
		if f.ValueDate != nil {
			return formatDate(*f.ValueDate)
		}
	case analysis.FieldTypeTime:
		if f.ValueTime != nil {
			return formatTime(*f.ValueTime)
		}
	case analysis.FieldTypeCurrency:
		if f.ValueCurrency != nil && f.ValueCurrency.Amount != nil {
			return *f.ValueCurrency.Amount
		}
	}
	return genericValue(f)
}

// FieldConfidence returns the field's own confidence score, or nil when the
// field is nil or carries none. Nested objects and arrays are not visited.
func FieldConfidence(f *analysis.DocumentField) *float64 {
	if f == nil {
		return nil
	}
	return f.Confidence
}

func genericValue(f *analysis.DocumentField) any {
	if f.Content != "" {
		return f.Content
	}
	return nil
}

// formatDate canonicalizes a wire date to YYYY-MM-DD. An unparseable value
// is passed through unchanged rather than dropped.
func formatDate(s string) string {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}

// formatTime canonicalizes a wire time to HH:MM:SS.
func formatTime(s string) string {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04:05")
		}
	}
	return s
}
