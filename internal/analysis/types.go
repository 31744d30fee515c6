// Package analysis talks to the document-understanding service and models
// its wire format: an analyze result exposing zero or more documents, each a
// mapping from field name to a tagged DocumentField.
package analysis

// FieldType tags the single populated payload of a DocumentField.
type FieldType string

const (
	FieldTypeString   FieldType = "string"
	FieldTypeNumber   FieldType = "number"
	FieldTypeInteger  FieldType = "integer"
	FieldTypeDate     FieldType = "date"
	FieldTypeTime     FieldType = "time"
	FieldTypeCurrency FieldType = "currency"
	FieldTypeObject   FieldType = "object"
	FieldTypeArray    FieldType = "array"
)

// CurrencyValue is the payload of a currency field.
type CurrencyValue struct {
	Amount         *float64 `json:"amount,omitempty"`
	CurrencyCode   string   `json:"currencyCode,omitempty"`
	CurrencySymbol string   `json:"currencySymbol,omitempty"`
}

// DocumentField is a tagged value extracted by the analysis model. At most
// one Value* payload is populated at a time; Content carries the raw text
// the value was read from and doubles as the generic fallback.
type DocumentField struct {
	Type          FieldType                 `json:"type,omitempty"`
	ValueString   *string                   `json:"valueString,omitempty"`
	ValueNumber   *float64                  `json:"valueNumber,omitempty"`
	ValueInteger  *int64                    `json:"valueInteger,omitempty"`
	ValueDate     *string                   `json:"valueDate,omitempty"`
	ValueTime     *string                   `json:"valueTime,omitempty"`
	ValueCurrency *CurrencyValue            `json:"valueCurrency,omitempty"`
	ValueObject   map[string]*DocumentField `json:"valueObject,omitempty"`
	ValueArray    []*DocumentField          `json:"valueArray,omitempty"`
	Content       string                    `json:"content,omitempty"`
	Confidence    *float64                  `json:"confidence,omitempty"`
}

// Document is one recognized document instance within an analyze result.
type Document struct {
	DocType    string                    `json:"docType,omitempty"`
	Fields     map[string]*DocumentField `json:"fields"`
	Confidence *float64                  `json:"confidence,omitempty"`
}

// Result is the analyzeResult envelope of a finished operation.
type Result struct {
	ModelID   string     `json:"modelId,omitempty"`
	Documents []Document `json:"documents"`
}
