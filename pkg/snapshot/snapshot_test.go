package snapshot

import (
	"strings"
	"testing"
)

const validDoc = `{
  "schema_version": "1.2.0",
  "taken_at": "2026-03-01T09:00:00Z",
  "buckets": [
    {"id": "b-1", "product_id": "p-1", "quantity": 10, "reserved": 3, "received_at": "2026-02-01T00:00:00Z"}
  ],
  "orders": [
    {"id": "so-1", "lines": [{"product_id": "p-1", "quantity": 4, "shipped": 0}]}
  ],
  "categories": [
    {"id": "c-1", "name": "Electronics"}
  ],
  "kit_edges": [
    {"kit_id": "k-1", "component_id": "p-1"}
  ]
}`

func TestDecode_Valid(t *testing.T) {
	inv, err := Decode(strings.NewReader(validDoc))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(inv.Buckets) != 1 || inv.Buckets[0].Available() != 7 {
		t.Errorf("unexpected buckets: %+v", inv.Buckets)
	}
	if len(inv.Orders) != 1 || inv.Orders[0].Lines[0].Remaining() != 4 {
		t.Errorf("unexpected orders: %+v", inv.Orders)
	}
	byProduct := inv.BucketsForProduct()
	if len(byProduct["p-1"]) != 1 {
		t.Errorf("BucketsForProduct grouping: %+v", byProduct)
	}
}

func TestDecode_RejectsUnsupportedVersion(t *testing.T) {
	doc := strings.Replace(validDoc, `"1.2.0"`, `"2.0.0"`, 1)
	if _, err := Decode(strings.NewReader(doc)); err == nil {
		t.Error("expected rejection of schema_version 2.0.0")
	}
}

func TestDecode_RejectsMissingRequiredField(t *testing.T) {
	doc := `{"taken_at": "2026-03-01T09:00:00Z"}`
	if _, err := Decode(strings.NewReader(doc)); err == nil {
		t.Error("expected schema validation failure for missing schema_version")
	}
}

func TestDecode_RejectsNegativeQuantity(t *testing.T) {
	doc := strings.Replace(validDoc, `"quantity": 10`, `"quantity": -1`, 1)
	if _, err := Decode(strings.NewReader(doc)); err == nil {
		t.Error("expected schema validation failure for negative quantity")
	}
}

func TestDecode_RejectsBrokenReservationInvariant(t *testing.T) {
	doc := strings.Replace(validDoc, `"reserved": 3`, `"reserved": 11`, 1)
	_, err := Decode(strings.NewReader(doc))
	if err == nil || !strings.Contains(err.Error(), "reserved") {
		t.Errorf("expected reservation invariant failure, got %v", err)
	}
}

func TestDecode_RejectsGarbage(t *testing.T) {
	if _, err := Decode(strings.NewReader("not json")); err == nil {
		t.Error("expected JSON parse failure")
	}
}
