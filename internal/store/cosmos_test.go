package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturave/receipt-ingest/internal/normalize"
)

func TestDocumentJSONShape(t *testing.T) {
	score := 0.91
	username := "maria"
	doc := document{
		ID:         "doc-1",
		UserID:     "u123",
		IDUsuario:  "u123",
		Username:   &username,
		Directorio: "abcXY",
		BlobURL:    "https://acct.blob.core.windows.net/receipts/u123/abcXY/receipt.png",
		Receipt: &normalize.Receipt{
			FechaTransaccion:     "2024-05-01",
			MontoTotal:           42.5,
			Items:                []normalize.LineItem{{Description: "CAFE", Quantity: float64(2)}},
			ItemsConfidenceScore: &score,
			NombreComercio:       "FARMACIA CENTRAL",
		},
	}

	body, err := json.Marshal(doc)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(body, &m))

	// Identifiers and receipt fields live side by side in one flat object.
	assert.Equal(t, "doc-1", m["id"])
	assert.Equal(t, "u123", m["userId"])
	assert.Equal(t, "u123", m["id_usuario"])
	assert.Equal(t, "maria", m["username"])
	assert.Equal(t, "abcXY", m["directorio"])
	assert.Equal(t, "2024-05-01", m["fechaTransaccion"])
	assert.Equal(t, 42.5, m["montoTotal"])
	assert.Equal(t, 0.91, m["itemsConfidenceScore"])
	assert.Equal(t, "FARMACIA CENTRAL", m["nombreComercio"])
	assert.NotContains(t, m, "receipt")
	assert.NotContains(t, m, "rifComercio")

	items, ok := m["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "CAFE", item["description"])
	assert.Equal(t, float64(2), item["quantity"])
	assert.NotContains(t, item, "unitPrice")
}

func TestDocumentNullFields(t *testing.T) {
	doc := document{
		ID:        "doc-2",
		UserID:    "u123",
		IDUsuario: "u123",
		Receipt: &normalize.Receipt{
			FechaTransaccion: "2024-05-01",
			MontoTotal:       42.5,
		},
	}

	body, err := json.Marshal(doc)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(body, &m))

	// username and itemsConfidenceScore serialize as explicit nulls so
	// downstream readers can distinguish "unknown" from "absent".
	require.Contains(t, m, "username")
	assert.Nil(t, m["username"])
	require.Contains(t, m, "itemsConfidenceScore")
	assert.Nil(t, m["itemsConfidenceScore"])
	assert.NotContains(t, m, "items")
}
