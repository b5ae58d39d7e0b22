package quickbooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal QuickBooks Online API client covering what the
// approval workflow needs: customer lookup, estimate creation, invoicing an
// accepted estimate and fetching the invoice PDF.
type Client struct {
	baseURL     string
	realmID     string
	accessToken string
	client      *http.Client
}

func NewClient(baseURL, realmID, accessToken string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		realmID:     realmID,
		accessToken: accessToken,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
}

type Customer struct {
	ID          string `json:"Id"`
	DisplayName string `json:"DisplayName"`
}

// Line is one priced row on an estimate.
type Line struct {
	Description string
	Quantity    float64
	UnitPrice   float64
	Amount      float64
}

// EstimateRef identifies a created estimate on the QuickBooks side.
type EstimateRef struct {
	ID        string
	DocNumber string
}

// InvoiceRef identifies a created invoice on the QuickBooks side.
type InvoiceRef struct {
	ID        string
	DocNumber string
}

// FindCustomerByName looks a customer up by exact display name.
// Returns (nil, nil) when no customer matches.
func (c *Client) FindCustomerByName(ctx context.Context, name string) (*Customer, error) {
	name = strings.ReplaceAll(name, "'", "\\'")
	query := fmt.Sprintf("select * from Customer where DisplayName = '%s'", name)

	endpoint := fmt.Sprintf("%s/v3/company/%s/query?query=%s&minorversion=65",
		c.baseURL, c.realmID, url.QueryEscape(query))

	respBody, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		QueryResponse struct {
			Customer []Customer `json:"Customer"`
		} `json:"QueryResponse"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("parse customer query: %w", err)
	}
	if len(result.QueryResponse.Customer) == 0 {
		return nil, nil
	}
	return &result.QueryResponse.Customer[0], nil
}

// CreateEstimate submits line items as a new estimate for the customer.
func (c *Client) CreateEstimate(ctx context.Context, customerID string, lines []Line) (*EstimateRef, error) {
	qbLines := make([]map[string]interface{}, 0, len(lines))
	for _, l := range lines {
		qbLines = append(qbLines, map[string]interface{}{
			"DetailType":  "SalesItemLineDetail",
			"Amount":      l.Amount,
			"Description": l.Description,
			"SalesItemLineDetail": map[string]interface{}{
				"Qty":       l.Quantity,
				"UnitPrice": l.UnitPrice,
			},
		})
	}

	payload := map[string]interface{}{
		"CustomerRef": map[string]string{"value": customerID},
		"Line":        qbLines,
	}

	endpoint := fmt.Sprintf("%s/v3/company/%s/estimate?minorversion=65", c.baseURL, c.realmID)
	respBody, err := c.do(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return nil, err
	}

	var result struct {
		Estimate struct {
			ID        string `json:"Id"`
			DocNumber string `json:"DocNumber"`
		} `json:"Estimate"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("parse estimate response: %w", err)
	}
	if result.Estimate.ID == "" {
		return nil, fmt.Errorf("quickbooks returned no estimate id")
	}
	return &EstimateRef{ID: result.Estimate.ID, DocNumber: result.Estimate.DocNumber}, nil
}

// CreateInvoiceFromEstimate creates an invoice linked to an accepted estimate.
func (c *Client) CreateInvoiceFromEstimate(ctx context.Context, customerID, estimateID string, lines []Line) (*InvoiceRef, error) {
	qbLines := make([]map[string]interface{}, 0, len(lines))
	for _, l := range lines {
		qbLines = append(qbLines, map[string]interface{}{
			"DetailType":  "SalesItemLineDetail",
			"Amount":      l.Amount,
			"Description": l.Description,
			"SalesItemLineDetail": map[string]interface{}{
				"Qty":       l.Quantity,
				"UnitPrice": l.UnitPrice,
			},
		})
	}

	payload := map[string]interface{}{
		"CustomerRef": map[string]string{"value": customerID},
		"Line":        qbLines,
		"LinkedTxn": []map[string]string{
			{"TxnId": estimateID, "TxnType": "Estimate"},
		},
	}

	endpoint := fmt.Sprintf("%s/v3/company/%s/invoice?minorversion=65", c.baseURL, c.realmID)
	respBody, err := c.do(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return nil, err
	}

	var result struct {
		Invoice struct {
			ID        string `json:"Id"`
			DocNumber string `json:"DocNumber"`
		} `json:"Invoice"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("parse invoice response: %w", err)
	}
	if result.Invoice.ID == "" {
		return nil, fmt.Errorf("quickbooks returned no invoice id")
	}
	return &InvoiceRef{ID: result.Invoice.ID, DocNumber: result.Invoice.DocNumber}, nil
}

// FetchInvoicePDF downloads the rendered PDF for an invoice.
func (c *Client) FetchInvoicePDF(ctx context.Context, invoiceID string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/v3/company/%s/invoice/%s/pdf", c.baseURL, c.realmID, invoiceID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/pdf")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quickbooks request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("quickbooks API error (%d): %s", resp.StatusCode, string(body))
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload interface{}) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quickbooks request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quickbooks API error (%d): %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}
