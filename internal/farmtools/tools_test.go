// SPDX-License-Identifier: AGPL-3.0-only
package farmtools

import (
	"testing"
)

func TestBuildSchemaRequiredFields(t *testing.T) {
	schema := buildSchema(StockBatchCreateParams{})

	if schema["type"] != "object" {
		t.Errorf("Expected object schema, got %v", schema["type"])
	}

	required, ok := schema["required"].([]string)
	if !ok {
		t.Fatalf("Expected required list, got %v", schema["required"])
	}

	expected := map[string]bool{
		"fk_id_product":     true,
		"quantity_produced": true,
		"start_date":        true,
		"end_date":          true,
		"price_per_kg":      true,
	}
	if len(required) != len(expected) {
		t.Fatalf("Expected %d required fields, got %d: %v", len(expected), len(required), required)
	}
	for _, name := range required {
		if !expected[name] {
			t.Errorf("Unexpected required field %s", name)
		}
	}
}

func TestBuildSchemaPointerFieldsOptional(t *testing.T) {
	schema := buildSchema(ProductUpdateParams{})

	required, _ := schema["required"].([]string)
	if len(required) != 1 || required[0] != "id" {
		t.Errorf("Expected only id to be required, got %v", required)
	}

	properties, ok := schema["properties"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected properties map, got %v", schema["properties"])
	}

	price, ok := properties["price_per_kg"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected price_per_kg property, got %v", properties)
	}
	if price["type"] != "number" {
		t.Errorf("Expected number type for price_per_kg, got %v", price["type"])
	}

	active, _ := properties["is_active"].(map[string]interface{})
	if active["type"] != "boolean" {
		t.Errorf("Expected boolean type for is_active, got %v", active["type"])
	}
}

func TestBuildSchemaDescriptions(t *testing.T) {
	schema := buildSchema(OrderUniqueIDParams{})

	properties := schema["properties"].(map[string]interface{})
	prop, ok := properties["order_unique_id"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected order_unique_id property, got %v", properties)
	}
	if prop["description"] != "unique identifier for the order" {
		t.Errorf("Expected description tag to be carried, got %v", prop["description"])
	}
}

func TestBuildSchemaMapField(t *testing.T) {
	schema := buildSchema(EnquiryParams{})

	properties := schema["properties"].(map[string]interface{})
	prop := properties["enquiry_data"].(map[string]interface{})
	if prop["type"] != "object" {
		t.Errorf("Expected object type for enquiry_data, got %v", prop["type"])
	}
}

func TestBuildSchemaEmptyStruct(t *testing.T) {
	schema := buildSchema(struct{}{})

	properties := schema["properties"].(map[string]interface{})
	if len(properties) != 0 {
		t.Errorf("Expected no properties, got %v", properties)
	}
	if _, ok := schema["required"]; ok {
		t.Errorf("Expected no required list on empty schema, got %v", schema["required"])
	}
}
