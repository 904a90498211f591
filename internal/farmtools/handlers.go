// SPDX-License-Identifier: AGPL-3.0-only
package farmtools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/RakeshReddy1602/m.s.organics-agent/internal/errors"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/farmapi"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ProductListParams holds parameters for the fetch_products tool
type ProductListParams struct {
	Q      *string `json:"q,omitempty" description:"search term to filter by name or description"`
	Limit  *int    `json:"limit,omitempty" description:"number of products to fetch"`
	Offset *int    `json:"offset,omitempty" description:"number of products to skip"`
}

// ProductCountParams holds parameters for the get_products_count tool
type ProductCountParams struct {
	Q *string `json:"q,omitempty" description:"search term to filter by name or description"`
}

// ProductCreateParams holds parameters for the create_product tool
type ProductCreateParams struct {
	Name           string  `json:"name" description:"product name"`
	Description    string  `json:"description" description:"product description"`
	ImageName      string  `json:"image_name" description:"image file name"`
	ImageSourceURL string  `json:"image_source_url" description:"image source URL"`
	PricePerKg     float64 `json:"price_per_kg" description:"price per kilogram"`
}

// ProductUpdateParams holds parameters for the update_product tool
type ProductUpdateParams struct {
	ID             int64    `json:"id" description:"product ID"`
	Name           *string  `json:"name,omitempty" description:"product name"`
	Description    *string  `json:"description,omitempty" description:"product description"`
	ImageName      *string  `json:"image_name,omitempty" description:"image file name"`
	ImageSourceURL *string  `json:"image_source_url,omitempty" description:"image source URL"`
	PricePerKg     *float64 `json:"price_per_kg,omitempty" description:"price per kilogram"`
	IsActive       *bool    `json:"is_active,omitempty" description:"whether the product is active"`
}

// IDParams holds the numeric ID parameter used by delete handlers
type IDParams struct {
	ID int64 `json:"id" description:"the ID of the record"`
}

// StockBatchListParams holds parameters for the fetch_stock_batches tool
type StockBatchListParams struct {
	BatchCode     *string `json:"batch_code,omitempty" description:"partial or full batch code"`
	ProductIDs    *string `json:"product_ids_csv,omitempty" description:"comma-separated product IDs, e.g. 1,2,3"`
	FromStartDate *string `json:"from_start_date,omitempty" description:"ISO date to filter start_date >="`
	ToStartDate   *string `json:"to_start_date,omitempty" description:"ISO date to filter start_date <="`
	FromEndDate   *string `json:"from_end_date,omitempty" description:"ISO date to filter end_date >="`
	ToEndDate     *string `json:"to_end_date,omitempty" description:"ISO date to filter end_date <="`
	OnlyActive    *bool   `json:"only_active,omitempty" description:"filter by active batches (default true)"`
	Limit         *int    `json:"limit,omitempty" description:"page size (default 25)"`
	Offset        *int    `json:"offset,omitempty" description:"page offset (default 0)"`
}

// StockBatchCreateParams holds parameters for the create_stock_batch tool
type StockBatchCreateParams struct {
	ProductID        int64   `json:"fk_id_product" description:"product ID the batch belongs to"`
	QuantityProduced float64 `json:"quantity_produced" description:"quantity produced in kilograms"`
	StartDate        string  `json:"start_date" description:"batch start date (ISO format)"`
	EndDate          string  `json:"end_date" description:"batch end date (ISO format)"`
	PricePerKg       float64 `json:"price_per_kg" description:"price per kilogram"`
}

// StockBatchUpdateParams holds parameters for the update_stock_batch tool
type StockBatchUpdateParams struct {
	ID                int64    `json:"id" description:"stock batch ID"`
	ProductID         *int64   `json:"fk_id_product,omitempty" description:"product ID the batch belongs to"`
	QuantityProduced  *float64 `json:"quantity_produced,omitempty" description:"quantity produced in kilograms"`
	QuantityAllocated *float64 `json:"quantity_allocated,omitempty" description:"quantity allocated in kilograms"`
	EndDate           *string  `json:"end_date,omitempty" description:"batch end date (ISO format)"`
	IsActive          *bool    `json:"is_active,omitempty" description:"whether the batch is active"`
}

// OrderListParams holds parameters for the fetch_orders tool
type OrderListParams struct {
	Limit            *int    `json:"limit,omitempty" description:"number of orders to fetch (default 10)"`
	Offset           *int    `json:"offset,omitempty" description:"number of orders to skip"`
	OrderUniqueID    *string `json:"order_unique_id,omitempty" description:"filter by order unique ID"`
	CustomerName     *string `json:"customer_name,omitempty" description:"filter by customer name"`
	CustomerEmail    *string `json:"customer_email,omitempty" description:"filter by customer email"`
	CustomerMobile   *string `json:"customer_mobile,omitempty" description:"filter by customer mobile number"`
	DeliveryDateFrom *string `json:"delivery_date_from,omitempty" description:"filter by delivery date from (ISO format)"`
	DeliveryDateTo   *string `json:"delivery_date_to,omitempty" description:"filter by delivery date to (ISO format)"`
}

// OrderCountParams holds parameters for the get_orders_count tool
type OrderCountParams struct {
	OrderUniqueID    *string `json:"order_unique_id,omitempty" description:"filter by order unique ID"`
	CustomerName     *string `json:"customer_name,omitempty" description:"filter by customer name"`
	CustomerEmail    *string `json:"customer_email,omitempty" description:"filter by customer email"`
	CustomerMobile   *string `json:"customer_mobile,omitempty" description:"filter by customer mobile number"`
	DeliveryDateFrom *string `json:"delivery_date_from,omitempty" description:"filter by delivery date from (ISO format)"`
	DeliveryDateTo   *string `json:"delivery_date_to,omitempty" description:"filter by delivery date to (ISO format)"`
}

// OrderDetailsParams holds parameters for the fetch_order_details tool
type OrderDetailsParams struct {
	OrderIDs       *string `json:"order_ids_csv,omitempty" description:"comma-separated order IDs, e.g. 101,102"`
	OrderUniqueIDs *string `json:"order_unique_ids_csv,omitempty" description:"comma-separated order unique IDs"`
}

// OrderUniqueIDParams holds the order unique ID used by confirm/cancel handlers
type OrderUniqueIDParams struct {
	OrderUniqueID string `json:"order_unique_id" description:"unique identifier for the order"`
}

// EnquiryParams holds parameters for the submit_enquiry tool
type EnquiryParams struct {
	EnquiryData map[string]interface{} `json:"enquiry_data" description:"enquiry fields such as name, email, mobile and message"`
}

// extractParams extracts parameters from a tool request
func extractParams(request *mcp.CallToolRequest, params interface{}) error {
	raw := request.Params.Arguments
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, params); err != nil {
		return errors.InvalidInput(fmt.Sprintf("invalid parameters: %v", err))
	}
	return nil
}

// createPayloadResponse wraps a farm API payload as tool output
func createPayloadResponse(payload farmapi.Payload) (*mcp.CallToolResult, error) {
	responseJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("failed to marshal response: %w", err))
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: string(responseJSON),
			},
		},
	}, nil
}

// createErrorResponse creates an error response
func createErrorResponse(err error) (*mcp.CallToolResult, error) {
	// Always return the original error as the second return value
	// This ensures MCP protocol error handling works correctly
	return nil, err
}

func (s *Server) handleFetchProducts(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params ProductListParams
	if err := extractParams(request, &params); err != nil {
		return createErrorResponse(err)
	}

	s.logger.Debugf("Handling fetch_products request")

	payload, err := s.api.FetchProducts(ctx, farmapi.ProductQuery{
		Q:      params.Q,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
	if err != nil {
		return createErrorResponse(err)
	}
	return createPayloadResponse(payload)
}

func (s *Server) handleGetProductsCount(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params ProductCountParams
	if err := extractParams(request, &params); err != nil {
		return createErrorResponse(err)
	}

	s.logger.Debugf("Handling get_products_count request")

	payload, err := s.api.ProductCount(ctx, params.Q)
	if err != nil {
		return createErrorResponse(err)
	}
	return createPayloadResponse(payload)
}

func (s *Server) handleCreateProduct(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params ProductCreateParams
	if err := extractParams(request, &params); err != nil {
		return createErrorResponse(err)
	}

	if params.Name == "" {
		return createErrorResponse(errors.InvalidInput("product name is required"))
	}

	s.logger.Debugf("Handling create_product request for %s", params.Name)

	payload, err := s.api.CreateProduct(ctx, farmapi.ProductCreate{
		Name:           params.Name,
		Description:    params.Description,
		ImageName:      params.ImageName,
		ImageSourceURL: params.ImageSourceURL,
		PricePerKg:     params.PricePerKg,
	})
	if err != nil {
		return createErrorResponse(err)
	}
	return createPayloadResponse(payload)
}

func (s *Server) handleUpdateProduct(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params ProductUpdateParams
	if err := extractParams(request, &params); err != nil {
		return createErrorResponse(err)
	}

	if params.ID == 0 {
		return createErrorResponse(errors.InvalidInput("product ID is required"))
	}

	s.logger.Debugf("Handling update_product request for product %d", params.ID)

	fields := farmapi.Payload{}
	if params.Name != nil {
		fields["name"] = *params.Name
	}
	if params.Description != nil {
		fields["description"] = *params.Description
	}
	if params.ImageName != nil {
		fields["image_name"] = *params.ImageName
	}
	if params.ImageSourceURL != nil {
		fields["image_source_url"] = *params.ImageSourceURL
	}
	if params.PricePerKg != nil {
		fields["price_per_kg"] = *params.PricePerKg
	}
	if params.IsActive != nil {
		fields["is_active"] = *params.IsActive
	}

	payload, err := s.api.UpdateProduct(ctx, params.ID, fields)
	if err != nil {
		return createErrorResponse(err)
	}
	return createPayloadResponse(payload)
}

func (s *Server) handleDeleteProduct(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params IDParams
	if err := extractParams(request, &params); err != nil {
		return createErrorResponse(err)
	}

	if params.ID == 0 {
		return createErrorResponse(errors.InvalidInput("product ID is required"))
	}

	s.logger.Debugf("Handling delete_product request for product %d", params.ID)

	payload, err := s.api.DeleteProduct(ctx, params.ID)
	if err != nil {
		return createErrorResponse(err)
	}
	return createPayloadResponse(payload)
}

func (s *Server) handleFetchStockBatches(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params StockBatchListParams
	if err := extractParams(request, &params); err != nil {
		return createErrorResponse(err)
	}

	s.logger.Debugf("Handling fetch_stock_batches request")

	payload, err := s.api.FetchStockBatches(ctx, farmapi.StockBatchQuery{
		BatchCode:     params.BatchCode,
		ProductIDs:    params.ProductIDs,
		FromStartDate: params.FromStartDate,
		ToStartDate:   params.ToStartDate,
		FromEndDate:   params.FromEndDate,
		ToEndDate:     params.ToEndDate,
		OnlyActive:    params.OnlyActive,
		Limit:         params.Limit,
		Offset:        params.Offset,
	})
	if err != nil {
		return createErrorResponse(err)
	}
	return createPayloadResponse(payload)
}

func (s *Server) handleCreateStockBatch(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params StockBatchCreateParams
	if err := extractParams(request, &params); err != nil {
		return createErrorResponse(err)
	}

	if params.ProductID == 0 {
		return createErrorResponse(errors.InvalidInput("fk_id_product is required"))
	}

	s.logger.Debugf("Handling create_stock_batch request for product %d", params.ProductID)

	payload, err := s.api.CreateStockBatch(ctx, farmapi.StockBatchCreate{
		ProductID:        params.ProductID,
		QuantityProduced: params.QuantityProduced,
		StartDate:        params.StartDate,
		EndDate:          params.EndDate,
		PricePerKg:       params.PricePerKg,
	})
	if err != nil {
		return createErrorResponse(err)
	}
	return createPayloadResponse(payload)
}

func (s *Server) handleUpdateStockBatch(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params StockBatchUpdateParams
	if err := extractParams(request, &params); err != nil {
		return createErrorResponse(err)
	}

	if params.ID == 0 {
		return createErrorResponse(errors.InvalidInput("stock batch ID is required"))
	}

	s.logger.Debugf("Handling update_stock_batch request for batch %d", params.ID)

	fields := farmapi.Payload{}
	if params.ProductID != nil {
		fields["fk_id_product"] = *params.ProductID
	}
	if params.QuantityProduced != nil {
		fields["quantity_produced"] = *params.QuantityProduced
	}
	if params.QuantityAllocated != nil {
		fields["quantity_allocated"] = *params.QuantityAllocated
	}
	if params.EndDate != nil {
		fields["end_date"] = *params.EndDate
	}
	if params.IsActive != nil {
		fields["is_active"] = *params.IsActive
	}

	payload, err := s.api.UpdateStockBatch(ctx, params.ID, fields)
	if err != nil {
		return createErrorResponse(err)
	}
	return createPayloadResponse(payload)
}

func (s *Server) handleDeleteStockBatch(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params IDParams
	if err := extractParams(request, &params); err != nil {
		return createErrorResponse(err)
	}

	if params.ID == 0 {
		return createErrorResponse(errors.InvalidInput("stock batch ID is required"))
	}

	s.logger.Debugf("Handling delete_stock_batch request for batch %d", params.ID)

	payload, err := s.api.DeleteStockBatch(ctx, params.ID)
	if err != nil {
		return createErrorResponse(err)
	}
	return createPayloadResponse(payload)
}

func (s *Server) handleFetchOrders(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params OrderListParams
	if err := extractParams(request, &params); err != nil {
		return createErrorResponse(err)
	}

	s.logger.Debugf("Handling fetch_orders request")

	payload, err := s.api.FetchOrders(ctx, farmapi.OrderQuery{
		Limit:            params.Limit,
		Offset:           params.Offset,
		OrderUniqueID:    params.OrderUniqueID,
		CustomerName:     params.CustomerName,
		CustomerEmail:    params.CustomerEmail,
		CustomerMobile:   params.CustomerMobile,
		DeliveryDateFrom: params.DeliveryDateFrom,
		DeliveryDateTo:   params.DeliveryDateTo,
	})
	if err != nil {
		return createErrorResponse(err)
	}
	return createPayloadResponse(payload)
}

func (s *Server) handleGetOrdersCount(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params OrderCountParams
	if err := extractParams(request, &params); err != nil {
		return createErrorResponse(err)
	}

	s.logger.Debugf("Handling get_orders_count request")

	payload, err := s.api.OrderCount(ctx, farmapi.OrderQuery{
		OrderUniqueID:    params.OrderUniqueID,
		CustomerName:     params.CustomerName,
		CustomerEmail:    params.CustomerEmail,
		CustomerMobile:   params.CustomerMobile,
		DeliveryDateFrom: params.DeliveryDateFrom,
		DeliveryDateTo:   params.DeliveryDateTo,
	})
	if err != nil {
		return createErrorResponse(err)
	}
	return createPayloadResponse(payload)
}

func (s *Server) handleFetchOrderDetails(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params OrderDetailsParams
	if err := extractParams(request, &params); err != nil {
		return createErrorResponse(err)
	}

	s.logger.Debugf("Handling fetch_order_details request")

	payload, err := s.api.OrderDetails(ctx, params.OrderIDs, params.OrderUniqueIDs)
	if err != nil {
		return createErrorResponse(err)
	}
	return createPayloadResponse(payload)
}

// extractOrderUniqueID extracts the order unique ID parameter from a request
func extractOrderUniqueID(request *mcp.CallToolRequest) (string, error) {
	var params OrderUniqueIDParams
	if err := extractParams(request, &params); err != nil {
		return "", err
	}

	if params.OrderUniqueID == "" {
		return "", errors.InvalidInput("order unique ID is required")
	}

	return params.OrderUniqueID, nil
}

func (s *Server) handleConfirmOrderByCustomer(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	orderID, err := extractOrderUniqueID(request)
	if err != nil {
		return createErrorResponse(err)
	}

	s.logger.Debugf("Handling confirm_order_by_customer request for order %s", orderID)

	payload, err := s.api.ConfirmOrder(ctx, orderID)
	if err != nil {
		return createErrorResponse(err)
	}
	return createPayloadResponse(payload)
}

func (s *Server) handleConfirmOrderByAdmin(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	orderID, err := extractOrderUniqueID(request)
	if err != nil {
		return createErrorResponse(err)
	}

	s.logger.Debugf("Handling confirm_order_by_admin request for order %s", orderID)

	payload, err := s.api.AdminConfirmOrder(ctx, orderID)
	if err != nil {
		return createErrorResponse(err)
	}
	return createPayloadResponse(payload)
}

func (s *Server) handleCancelOrderByAdmin(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	orderID, err := extractOrderUniqueID(request)
	if err != nil {
		return createErrorResponse(err)
	}

	s.logger.Debugf("Handling cancel_order_by_admin request for order %s", orderID)

	payload, err := s.api.AdminCancelOrder(ctx, orderID)
	if err != nil {
		return createErrorResponse(err)
	}
	return createPayloadResponse(payload)
}

func (s *Server) handleSubmitEnquiry(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params EnquiryParams
	if err := extractParams(request, &params); err != nil {
		return createErrorResponse(err)
	}

	if len(params.EnquiryData) == 0 {
		return createErrorResponse(errors.InvalidInput("enquiry data is required"))
	}

	s.logger.Debugf("Handling submit_enquiry request")

	payload, err := s.api.SubmitEnquiry(ctx, params.EnquiryData)
	if err != nil {
		return createErrorResponse(err)
	}
	return createPayloadResponse(payload)
}

func (s *Server) handleFetchAllEnquiries(ctx context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.Debugf("Handling fetch_all_enquiries request")

	payload, err := s.api.FetchEnquiries(ctx)
	if err != nil {
		return createErrorResponse(err)
	}
	return createPayloadResponse(payload)
}

func (s *Server) handleGetEnquiriesCount(ctx context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.Debugf("Handling get_enquiries_count request")

	payload, err := s.api.EnquiryCount(ctx)
	if err != nil {
		return createErrorResponse(err)
	}
	return createPayloadResponse(payload)
}

func (s *Server) handleCheckAPIHealth(ctx context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.Debugf("Handling check_api_health request")

	timestamp := time.Now().Format(time.RFC3339)
	if err := s.api.Health(ctx); err != nil {
		return createPayloadResponse(farmapi.Payload{
			"status":    "unhealthy",
			"error":     fmt.Sprintf("API health check failed: %v", err),
			"timestamp": timestamp,
		})
	}

	return createPayloadResponse(farmapi.Payload{
		"status":    "healthy",
		"message":   "API is responding correctly",
		"timestamp": timestamp,
	})
}

func (s *Server) handleGetAPIInfo(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.Debugf("Handling get_api_info request")

	return createPayloadResponse(farmapi.Payload{
		"name":        "M.S. Organics API",
		"description": "API for managing organic farm operations",
		"base_url":    s.api.BaseURL(),
		"endpoints": map[string]interface{}{
			"products": map[string]string{
				"fetch_products":     "GET /product/fetch-products",
				"get_products_count": "GET /product/count",
				"create_product":     "POST /product",
				"update_product":     "PUT /product/{id}",
				"delete_product":     "DELETE /product/{id}",
			},
			"orders": map[string]string{
				"fetch_orders":        "GET /order",
				"get_orders_count":    "GET /order/count",
				"fetch_order_details": "GET /order/order-details",
				"confirm_by_customer": "PUT /order/confirm/{orderUniqueId}",
				"confirm_by_admin":    "PUT /order/admin/confirm/{orderUniqueId}",
				"cancel_by_admin":     "PUT /order/admin/cancel/{orderUniqueId}",
			},
			"stock_batch": map[string]string{
				"fetch_stock_batches": "GET /stock-batch",
				"create_stock_batch":  "POST /stock-batch",
				"update_stock_batch":  "PUT /stock-batch/{id}",
				"delete_stock_batch":  "DELETE /stock-batch/{id}",
			},
			"contact": map[string]string{
				"submit_enquiry":      "POST /contact-us/submit-enquiry",
				"fetch_all_enquiries": "GET /contact-us/fetch-all",
				"get_enquiries_count": "GET /contact-us/fetch-count",
			},
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
