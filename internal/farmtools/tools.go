// SPDX-License-Identifier: AGPL-3.0-only
package farmtools

import (
	"context"
	"reflect"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolDefinition represents a tool that can be registered with the MCP server
type ToolDefinition struct {
	// Name is the name of the tool
	Name string

	// Description is a brief description of what the tool does
	Description string

	// Handler is the function that will be called when the tool is invoked
	Handler func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error)

	// Parameters is the parameter schema for the tool (can be a struct)
	Parameters interface{}
}

// registerToolsDeclarative sets up all the MCP tools using a more declarative approach
func (s *Server) registerToolsDeclarative() {
	// Define all the tools in one place
	tools := []ToolDefinition{
		// Products
		{
			Name:        "fetch_products",
			Description: "Fetch available products with optional search and pagination.",
			Handler:     s.handleFetchProducts,
			Parameters:  ProductListParams{},
		},
		{
			Name:        "get_products_count",
			Description: "Get products count with optional search.",
			Handler:     s.handleGetProductsCount,
			Parameters:  ProductCountParams{},
		},
		{
			Name:        "create_product",
			Description: "Create a new product.",
			Handler:     s.handleCreateProduct,
			Parameters:  ProductCreateParams{},
		},
		{
			Name:        "update_product",
			Description: "Update an existing product by ID. Only provided fields are changed.",
			Handler:     s.handleUpdateProduct,
			Parameters:  ProductUpdateParams{},
		},
		{
			Name:        "delete_product",
			Description: "Delete a product by ID (soft delete).",
			Handler:     s.handleDeleteProduct,
			Parameters:  IDParams{},
		},

		// Stock batches
		{
			Name:        "fetch_stock_batches",
			Description: "Fetch stock batches with optional filters and pagination.",
			Handler:     s.handleFetchStockBatches,
			Parameters:  StockBatchListParams{},
		},
		{
			Name:        "create_stock_batch",
			Description: "Create a new stock batch.",
			Handler:     s.handleCreateStockBatch,
			Parameters:  StockBatchCreateParams{},
		},
		{
			Name:        "update_stock_batch",
			Description: "Update a stock batch by ID. Only provided fields are changed.",
			Handler:     s.handleUpdateStockBatch,
			Parameters:  StockBatchUpdateParams{},
		},
		{
			Name:        "delete_stock_batch",
			Description: "Delete a stock batch by ID.",
			Handler:     s.handleDeleteStockBatch,
			Parameters:  IDParams{},
		},

		// Orders
		{
			Name:        "fetch_orders",
			Description: "Fetch orders with optional filtering and pagination.",
			Handler:     s.handleFetchOrders,
			Parameters:  OrderListParams{},
		},
		{
			Name:        "get_orders_count",
			Description: "Get orders count with optional filtering.",
			Handler:     s.handleGetOrdersCount,
			Parameters:  OrderCountParams{},
		},
		{
			Name:        "fetch_order_details",
			Description: "Fetch order details (allocations, product, customer) by orderIds or orderUniqueIds.",
			Handler:     s.handleFetchOrderDetails,
			Parameters:  OrderDetailsParams{},
		},
		{
			Name:        "confirm_order_by_customer",
			Description: "Confirm an order by customer.",
			Handler:     s.handleConfirmOrderByCustomer,
			Parameters:  OrderUniqueIDParams{},
		},
		{
			Name:        "confirm_order_by_admin",
			Description: "Confirm an order by admin.",
			Handler:     s.handleConfirmOrderByAdmin,
			Parameters:  OrderUniqueIDParams{},
		},
		{
			Name:        "cancel_order_by_admin",
			Description: "Cancel an order by admin.",
			Handler:     s.handleCancelOrderByAdmin,
			Parameters:  OrderUniqueIDParams{},
		},

		// Enquiries
		{
			Name:        "submit_enquiry",
			Description: "Submit a new customer enquiry.",
			Handler:     s.handleSubmitEnquiry,
			Parameters:  EnquiryParams{},
		},
		{
			Name:        "fetch_all_enquiries",
			Description: "Fetch all enquiries.",
			Handler:     s.handleFetchAllEnquiries,
			Parameters:  struct{}{},
		},
		{
			Name:        "get_enquiries_count",
			Description: "Get enquiries count.",
			Handler:     s.handleGetEnquiriesCount,
			Parameters:  struct{}{},
		},

		// Utility
		{
			Name:        "check_api_health",
			Description: "Check the health status of the farm management API.",
			Handler:     s.handleCheckAPIHealth,
			Parameters:  struct{}{},
		},
		{
			Name:        "get_api_info",
			Description: "Get API information and available endpoints.",
			Handler:     s.handleGetAPIInfo,
			Parameters:  struct{}{},
		},
	}

	// Register all the tools
	for _, tool := range tools {
		registerTool(s.server, tool)
	}
}

// registerTool registers a tool with the MCP server
func registerTool(srv *mcp.Server, def ToolDefinition) {
	schema := buildSchema(def.Parameters)
	tool := &mcp.Tool{
		Name:        def.Name,
		Description: def.Description,
		InputSchema: schema,
	}
	srv.AddTool(tool, def.Handler)
}

// buildSchema converts a Go struct with json and description tags into a JSON Schema object
func buildSchema(params interface{}) map[string]interface{} {
	t := reflect.TypeOf(params)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	properties := map[string]interface{}{}
	var required []string

	collectFields(t, properties, &required)

	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// collectFields extracts JSON schema properties from struct fields,
// recursing into embedded (anonymous) structs.
func collectFields(t reflect.Type, properties map[string]interface{}, required *[]string) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		// Recurse into embedded structs
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			collectFields(field.Type, properties, required)
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "" || jsonTag == "-" {
			continue
		}

		// Parse json tag to get field name and options
		parts := strings.Split(jsonTag, ",")
		fieldName := parts[0]
		omitempty := false
		for _, p := range parts[1:] {
			if p == "omitempty" {
				omitempty = true
			}
		}

		prop := map[string]interface{}{
			"type": goTypeToJSONType(field.Type),
		}

		if desc := field.Tag.Get("description"); desc != "" {
			prop["description"] = desc
		}

		properties[fieldName] = prop

		// Pointer fields are optional regardless of the omitempty tag
		if !omitempty && field.Type.Kind() != reflect.Ptr {
			*required = append(*required, fieldName)
		}
	}
}

// goTypeToJSONType maps Go types to JSON Schema types
func goTypeToJSONType(t reflect.Type) string {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Map, reflect.Struct:
		return "object"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return "string"
	}
}
