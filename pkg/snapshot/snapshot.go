// Package snapshot defines the typed inventory documents handed across
// the storage boundary, and the schema gate they pass through.
//
// A snapshot is everything one engine invocation may read: stock buckets,
// order lines, the category forest and the kit dependency edges, taken at
// one instant. Documents are validated against an embedded JSON Schema
// and a schema-version constraint before any field is trusted.
package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/tallykeep/tallykeep/pkg/allocation"
	"github.com/tallykeep/tallykeep/pkg/catalog"
	"github.com/tallykeep/tallykeep/pkg/kit"
	"github.com/tallykeep/tallykeep/pkg/shipment"
)

// SupportedSchema is the semver constraint accepted by Decode.
const SupportedSchema = "^1.0.0"

// Inventory is a consistent point-in-time view of everything the engines
// compute over.
type Inventory struct {
	SchemaVersion string                   `json:"schema_version"`
	TakenAt       time.Time                `json:"taken_at"`
	Buckets       []allocation.StockBucket `json:"buckets,omitempty"`
	Orders        []shipment.Order         `json:"orders,omitempty"`
	Categories    []catalog.Category       `json:"categories,omitempty"`
	KitNodes      []string                 `json:"kit_nodes,omitempty"`
	KitEdges      []kit.Edge               `json:"kit_edges,omitempty"`
}

// BucketsForProduct groups the snapshot's buckets by product, the shape
// the shipment builder consumes.
func (inv *Inventory) BucketsForProduct() map[string][]allocation.StockBucket {
	out := make(map[string][]allocation.StockBucket)
	for _, b := range inv.Buckets {
		out[b.ProductID] = append(out[b.ProductID], b)
	}
	return out
}

const schemaURL = "https://tallykeep.schemas.local/inventory.schema.json"

const inventorySchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["schema_version", "taken_at"],
  "properties": {
    "schema_version": {"type": "string"},
    "taken_at": {"type": "string"},
    "buckets": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "product_id", "quantity", "reserved"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "product_id": {"type": "string", "minLength": 1},
          "warehouse_id": {"type": "string"},
          "location_id": {"type": "string"},
          "quantity": {"type": "integer", "minimum": 0},
          "reserved": {"type": "integer", "minimum": 0},
          "batch": {"type": "string"},
          "serial": {"type": "string"},
          "expiry": {"type": "string"},
          "received_at": {"type": "string"}
        }
      }
    },
    "orders": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "lines": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["product_id", "quantity"],
              "properties": {
                "product_id": {"type": "string", "minLength": 1},
                "quantity": {"type": "integer", "minimum": 0},
                "shipped": {"type": "integer", "minimum": 0}
              }
            }
          }
        }
      }
    },
    "categories": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "name"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "name": {"type": "string"},
          "parent_id": {"type": "string"}
        }
      }
    },
    "kit_nodes": {"type": "array", "items": {"type": "string"}},
    "kit_edges": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["kit_id", "component_id"],
        "properties": {
          "kit_id": {"type": "string", "minLength": 1},
          "component_id": {"type": "string", "minLength": 1}
        }
      }
    }
  }
}`

var compiledSchema = mustCompile()

func mustCompile() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(schemaURL, strings.NewReader(inventorySchema)); err != nil {
		panic(fmt.Sprintf("snapshot schema load failed: %v", err))
	}
	schema, err := c.Compile(schemaURL)
	if err != nil {
		panic(fmt.Sprintf("snapshot schema compile failed: %v", err))
	}
	return schema
}

// Decode reads, validates and unmarshals an inventory snapshot document.
// Schema validation runs before any typed unmarshalling; the document's
// schema_version must satisfy SupportedSchema.
func Decode(r io.Reader) (*Inventory, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("snapshot is not valid JSON: %w", err)
	}
	if err := compiledSchema.Validate(generic); err != nil {
		return nil, fmt.Errorf("snapshot schema validation failed: %w", err)
	}

	var inv Inventory
	if err := json.Unmarshal(raw, &inv); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	version, err := semver.NewVersion(inv.SchemaVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid schema_version %q: %w", inv.SchemaVersion, err)
	}
	constraint, err := semver.NewConstraint(SupportedSchema)
	if err != nil {
		return nil, fmt.Errorf("invalid schema constraint: %w", err)
	}
	if !constraint.Check(version) {
		return nil, fmt.Errorf("unsupported schema_version %s (supported: %s)", inv.SchemaVersion, SupportedSchema)
	}

	for _, b := range inv.Buckets {
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("snapshot rejected: %w", err)
		}
	}
	return &inv, nil
}
