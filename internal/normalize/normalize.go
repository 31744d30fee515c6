package normalize

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/facturave/receipt-ingest/internal/analysis"
)

var (
	// ErrNoDocuments is returned when the analysis result contains no
	// documents at all; nothing can be extracted and nothing is saved.
	ErrNoDocuments = errors.New("analysis result contains no documents")

	// ErrMissingRequired is returned when fechaTransaccion or montoTotal
	// could not be extracted; the record is invalid and is not persisted.
	ErrMissingRequired = errors.New("required receipt fields missing")
)

// LineItem is one extracted entry of the Items field.
type LineItem struct {
	Description any `json:"description,omitempty"`
	Quantity    any `json:"quantity,omitempty"`
	TotalPrice  any `json:"totalPrice,omitempty"`
	UnitPrice   any `json:"unitPrice,omitempty"`
}

// Receipt is the flat, validated record derived from one analysis result.
// ItemsConfidenceScore is serialized as an explicit null when no item-level
// confidences were collected.
type Receipt struct {
	FechaTransaccion     any        `json:"fechaTransaccion,omitempty"`
	MontoTotal           any        `json:"montoTotal,omitempty"`
	Items                []LineItem `json:"items,omitempty"`
	ItemsConfidenceScore *float64   `json:"itemsConfidenceScore"`
	NombreComercio       any        `json:"nombreComercio,omitempty"`
	RIFComercio          any        `json:"rifComercio,omitempty"`
	FacturaNumero        any        `json:"facturaNumero,omitempty"`
	NombreRazon          any        `json:"nombreRazon,omitempty"`
	RIFCI                any        `json:"rifCI,omitempty"`
	MontoExento          any        `json:"montoExento,omitempty"`
	MontoIVA             any        `json:"montoIVA,omitempty"`
	BaseImponible        any        `json:"baseImponible,omitempty"`
}

// Normalizer walks an analysis result and produces a Receipt.
type Normalizer struct {
	logger *slog.Logger
}

func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

// itemSubFields are the known sub-fields of one Items entry.
var itemSubFields = []string{"Description", "Quantity", "TotalPrice", "UnitPrice"}

// Normalize flattens the first document of the result into a Receipt.
// Additional documents are ignored; this mirrors the trained model, which
// emits a single document per receipt, and is a known limitation rather
// than an aggregation choice.
func (n *Normalizer) Normalize(res *analysis.Result) (*Receipt, error) {
	if res == nil || len(res.Documents) == 0 {
		n.logger.Warn("normalize.no_documents")
		return nil, ErrNoDocuments
	}
	if len(res.Documents) > 1 {
		n.logger.Debug("normalize.extra_documents_ignored", "ignored", len(res.Documents)-1)
	}
	doc := res.Documents[0]

	rec := &Receipt{}

	rec.FechaTransaccion = n.named(doc, "FechaTransaccion")
	rec.MontoTotal = n.named(doc, "MontoTotal")

	n.extractItems(doc, rec)

	optional := []struct {
		name string
		dst  *any
	}{
		{"NombreComercio", &rec.NombreComercio},
		{"RIF-comercio", &rec.RIFComercio},
		{"FacturaNumero", &rec.FacturaNumero},
		{"NombreRazon", &rec.NombreRazon},
		{"RIF-CI", &rec.RIFCI},
		{"MontoExento", &rec.MontoExento},
		{"MontoIVA", &rec.MontoIVA},
		{"BaseImponible", &rec.BaseImponible},
	}
	for _, opt := range optional {
		f, ok := doc.Fields[opt.name]
		if !ok {
			n.logger.Debug("normalize.field_missing", "field", opt.name)
			continue
		}
		*opt.dst = FieldValue(f)
	}

	var missing []string
	if rec.FechaTransaccion == nil {
		missing = append(missing, "fechaTransaccion")
	}
	if rec.MontoTotal == nil {
		missing = append(missing, "montoTotal")
	}
	if len(missing) > 0 {
		n.logger.Warn("normalize.required_fields_missing", "fields", strings.Join(missing, ","))
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, strings.Join(missing, ", "))
	}

	return rec, nil
}

func (n *Normalizer) named(doc analysis.Document, name string) any {
	f, ok := doc.Fields[name]
	if !ok {
		n.logger.Warn("normalize.field_missing", "field", name)
		return nil
	}
	v := FieldValue(f)
	n.logger.Info("normalize.field_extracted", "field", name, "value", v)
	return v
}

// extractItems walks the Items array, skipping entries without an object
// payload and collecting sub-field confidences for the aggregate score.
func (n *Normalizer) extractItems(doc analysis.Document, rec *Receipt) {
	var confidences []float64

	itemsField, ok := doc.Fields["Items"]
	switch {
	case !ok:
		n.logger.Warn("normalize.field_missing", "field", "Items")
	case itemsField.ValueArray == nil:
		n.logger.Warn("normalize.items_array_missing")
	default:
		items := make([]LineItem, 0, len(itemsField.ValueArray))
		for i, entry := range itemsField.ValueArray {
			if entry == nil || entry.ValueObject == nil {
				n.logger.Warn("normalize.item_without_object", "index", i)
				continue
			}
			li, found := n.extractItem(entry.ValueObject, &confidences)
			if found {
				items = append(items, li)
			}
		}
		rec.Items = items
		n.logger.Info("normalize.items_extracted", "count", len(items))
	}

	if len(confidences) > 0 {
		var sum float64
		for _, c := range confidences {
			sum += c
		}
		avg := round4(sum / float64(len(confidences)))
		rec.ItemsConfidenceScore = &avg
		n.logger.Info("normalize.items_confidence", "score", avg, "samples", len(confidences))
	} else {
		n.logger.Warn("normalize.items_confidence_empty")
	}
}

// extractItem pulls the known sub-fields of one entry. The entry counts only
// if at least one sub-field was present.
func (n *Normalizer) extractItem(obj map[string]*analysis.DocumentField, confidences *[]float64) (LineItem, bool) {
	li := LineItem{}
	found := false
	for _, name := range itemSubFields {
		f, ok := obj[name]
		if !ok {
			continue
		}
		found = true
		v := FieldValue(f)
		switch name {
		case "Description":
			li.Description = v
		case "Quantity":
			li.Quantity = v
		case "TotalPrice":
			li.TotalPrice = v
		case "UnitPrice":
			li.UnitPrice = v
		}
		if c := FieldConfidence(f); c != nil {
			*confidences = append(*confidences, *c)
		}
	}
	return li, found
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
