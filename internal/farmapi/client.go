// SPDX-License-Identifier: AGPL-3.0-only
package farmapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/RakeshReddy1602/m.s.organics-agent/internal/config"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/errors"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/logging"
	"github.com/hashicorp/go-retryablehttp"
)

// Payload is a generic JSON document returned by the farm API.
// Responses are passed through to the model untyped.
type Payload = map[string]interface{}

// Client talks to the M.S. Organics management REST API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *logging.Logger
}

// NewClient creates a farm API client with retrying transport.
func NewClient(cfg *config.FarmConfig, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}

	retry := retryablehttp.NewClient()
	retry.RetryMax = cfg.RetryMax
	retry.RetryWaitMax = 5 * time.Second
	retry.Logger = nil

	httpClient := retry.StandardClient()
	httpClient.Timeout = cfg.Timeout

	return &Client{
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

// NewClientWithHTTP creates a client over a caller-supplied HTTP client.
func NewClientWithHTTP(baseURL string, httpClient *http.Client, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

// ProductQuery filters product listings. Nil fields are omitted.
type ProductQuery struct {
	Q      *string
	Limit  *int
	Offset *int
}

// ProductCreate holds the fields required to create a product.
type ProductCreate struct {
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	ImageName      string  `json:"image_name"`
	ImageSourceURL string  `json:"image_source_url"`
	PricePerKg     float64 `json:"price_per_kg"`
}

// StockBatchQuery filters stock batch listings. Nil fields are omitted.
type StockBatchQuery struct {
	BatchCode     *string
	ProductIDs    *string
	FromStartDate *string
	ToStartDate   *string
	FromEndDate   *string
	ToEndDate     *string
	OnlyActive    *bool
	Limit         *int
	Offset        *int
}

// StockBatchCreate holds the fields required to create a stock batch.
type StockBatchCreate struct {
	ProductID        int64   `json:"fk_id_product"`
	QuantityProduced float64 `json:"quantity_produced"`
	StartDate        string  `json:"start_date"`
	EndDate          string  `json:"end_date"`
	PricePerKg       float64 `json:"price_per_kg"`
}

// OrderQuery filters order listings. Nil fields are omitted.
type OrderQuery struct {
	Limit            *int
	Offset           *int
	OrderUniqueID    *string
	CustomerName     *string
	CustomerEmail    *string
	CustomerMobile   *string
	DeliveryDateFrom *string
	DeliveryDateTo   *string
}

// FetchProducts lists products with optional search and pagination.
func (c *Client) FetchProducts(ctx context.Context, query ProductQuery) (Payload, error) {
	params := url.Values{}
	setString(params, "q", query.Q)
	setInt(params, "limit", query.Limit)
	setInt(params, "offset", query.Offset)
	return c.do(ctx, http.MethodGet, "/product/fetch-products", params, nil)
}

// ProductCount returns the number of products matching the optional search.
func (c *Client) ProductCount(ctx context.Context, q *string) (Payload, error) {
	params := url.Values{}
	setString(params, "q", q)
	return c.do(ctx, http.MethodGet, "/product/count", params, nil)
}

// CreateProduct creates a new product.
func (c *Client) CreateProduct(ctx context.Context, product ProductCreate) (Payload, error) {
	return c.do(ctx, http.MethodPost, "/product", nil, product)
}

// UpdateProduct updates the provided fields of a product.
func (c *Client) UpdateProduct(ctx context.Context, id int64, fields Payload) (Payload, error) {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/product/%d", id), nil, fields)
}

// DeleteProduct soft-deletes a product.
func (c *Client) DeleteProduct(ctx context.Context, id int64) (Payload, error) {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/product/%d", id), nil, nil)
}

// FetchStockBatches lists stock batches with optional filters.
func (c *Client) FetchStockBatches(ctx context.Context, query StockBatchQuery) (Payload, error) {
	params := url.Values{}
	setString(params, "batchCode", query.BatchCode)
	setString(params, "productIds", query.ProductIDs)
	setString(params, "fromStartDate", query.FromStartDate)
	setString(params, "toStartDate", query.ToStartDate)
	setString(params, "fromEndDate", query.FromEndDate)
	setString(params, "toEndDate", query.ToEndDate)
	setBool(params, "onlyActive", query.OnlyActive)
	setInt(params, "limit", query.Limit)
	setInt(params, "offset", query.Offset)
	return c.do(ctx, http.MethodGet, "/stock-batch", params, nil)
}

// CreateStockBatch creates a new stock batch.
func (c *Client) CreateStockBatch(ctx context.Context, batch StockBatchCreate) (Payload, error) {
	return c.do(ctx, http.MethodPost, "/stock-batch", nil, batch)
}

// UpdateStockBatch updates the provided fields of a stock batch.
func (c *Client) UpdateStockBatch(ctx context.Context, id int64, fields Payload) (Payload, error) {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/stock-batch/%d", id), nil, fields)
}

// DeleteStockBatch deletes a stock batch.
func (c *Client) DeleteStockBatch(ctx context.Context, id int64) (Payload, error) {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/stock-batch/%d", id), nil, nil)
}

// FetchOrders lists orders with optional filters and pagination.
func (c *Client) FetchOrders(ctx context.Context, query OrderQuery) (Payload, error) {
	params := url.Values{}
	setInt(params, "limit", query.Limit)
	setInt(params, "offset", query.Offset)
	setOrderFilters(params, query)
	return c.do(ctx, http.MethodGet, "/order", params, nil)
}

// OrderCount returns the number of orders matching the filters.
func (c *Client) OrderCount(ctx context.Context, query OrderQuery) (Payload, error) {
	params := url.Values{}
	setOrderFilters(params, query)
	return c.do(ctx, http.MethodGet, "/order/count", params, nil)
}

// OrderDetails returns orders with allocations, product and customer details.
func (c *Client) OrderDetails(ctx context.Context, orderIDs, orderUniqueIDs *string) (Payload, error) {
	params := url.Values{}
	setString(params, "orderIds", orderIDs)
	setString(params, "orderUniqueIds", orderUniqueIDs)
	return c.do(ctx, http.MethodGet, "/order/order-details", params, nil)
}

// ConfirmOrder confirms an order on behalf of the customer.
func (c *Client) ConfirmOrder(ctx context.Context, orderUniqueID string) (Payload, error) {
	return c.do(ctx, http.MethodPut, "/order/confirm/"+url.PathEscape(orderUniqueID), nil, nil)
}

// AdminConfirmOrder confirms an order as admin.
func (c *Client) AdminConfirmOrder(ctx context.Context, orderUniqueID string) (Payload, error) {
	return c.do(ctx, http.MethodPut, "/order/admin/confirm/"+url.PathEscape(orderUniqueID), nil, nil)
}

// AdminCancelOrder cancels an order as admin.
func (c *Client) AdminCancelOrder(ctx context.Context, orderUniqueID string) (Payload, error) {
	return c.do(ctx, http.MethodPut, "/order/admin/cancel/"+url.PathEscape(orderUniqueID), nil, nil)
}

// SubmitEnquiry submits a customer enquiry.
func (c *Client) SubmitEnquiry(ctx context.Context, enquiry Payload) (Payload, error) {
	return c.do(ctx, http.MethodPost, "/contact-us/submit-enquiry", nil, enquiry)
}

// FetchEnquiries lists all submitted enquiries.
func (c *Client) FetchEnquiries(ctx context.Context) (Payload, error) {
	return c.do(ctx, http.MethodGet, "/contact-us/fetch-all", nil, nil)
}

// EnquiryCount returns the total number of enquiries.
func (c *Client) EnquiryCount(ctx context.Context) (Payload, error) {
	return c.do(ctx, http.MethodGet, "/contact-us/fetch-count", nil, nil)
}

// Health probes the API by listing products.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/product/fetch-products", nil, nil)
	return err
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body interface{}) (Payload, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Internal(fmt.Errorf("failed to encode request body: %w", err))
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("failed to build request: %w", err))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debugf("Farm API %s %s", method, path)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("farm API request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read farm API response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("farm API returned %d for %s %s: %s", resp.StatusCode, method, path, truncate(string(raw), 200))
	}

	if len(raw) == 0 {
		return Payload{}, nil
	}

	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		// Non-object bodies (arrays, bare values) are wrapped so callers
		// always receive an object.
		var generic interface{}
		if err := json.Unmarshal(raw, &generic); err != nil {
			return nil, fmt.Errorf("farm API returned invalid JSON for %s %s", method, path)
		}
		return Payload{"data": generic}, nil
	}
	return payload, nil
}

func setOrderFilters(params url.Values, query OrderQuery) {
	setString(params, "orderUniqueId", query.OrderUniqueID)
	setString(params, "customerName", query.CustomerName)
	setString(params, "customerEmail", query.CustomerEmail)
	setString(params, "customerMobile", query.CustomerMobile)
	setString(params, "deliveryDateFrom", query.DeliveryDateFrom)
	setString(params, "deliveryDateTo", query.DeliveryDateTo)
}

func setString(params url.Values, key string, value *string) {
	if value != nil && *value != "" {
		params.Set(key, *value)
	}
}

func setInt(params url.Values, key string, value *int) {
	if value != nil {
		params.Set(key, strconv.Itoa(*value))
	}
}

func setBool(params url.Values, key string, value *bool) {
	if value != nil {
		params.Set(key, strconv.FormatBool(*value))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
