package redcap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to a REDCap project over its form-encoded HTTP API. One
// client maps to one project; the token selects it.
type Client struct {
	APIURL     string
	Token      string
	HTTPClient *http.Client
}

// NewClient returns a Client for the project behind apiURL.
func NewClient(apiURL, token string) *Client {
	return &Client{
		APIURL:     apiURL,
		Token:      token,
		HTTPClient: http.DefaultClient,
	}
}

// timestampFormat is the layout REDCap expects for dateRangeBegin.
const timestampFormat = "2006-01-02 15:04:05"

// ExportOptions narrows a record export.
type ExportOptions struct {
	// Forms limits the export to the named instruments; empty exports all.
	Forms []string
	// SurveyFields includes survey identifier and timestamp fields.
	SurveyFields bool
	// DateBegin limits the export to records created or modified after this
	// time; the zero value exports everything.
	DateBegin time.Time
}

// ExportRecords downloads a flat CSV export of the project's records.
func (c *Client) ExportRecords(ctx context.Context, opts ExportOptions) ([]byte, error) {
	form := c.form("record")
	form.Set("format", "csv")
	form.Set("type", "flat")
	for i, name := range opts.Forms {
		form.Set(fmt.Sprintf("forms[%d]", i), name)
	}
	if opts.SurveyFields {
		form.Set("exportSurveyFields", "true")
	}
	if !opts.DateBegin.IsZero() {
		form.Set("dateRangeBegin", opts.DateBegin.Format(timestampFormat))
	}
	return c.post(ctx, form)
}

// ImportRecords uploads sparse records and returns the count the server
// reports as imported. Each record must carry its key fields; fields absent
// from a record are left untouched on the server.
func (c *Client) ImportRecords(ctx context.Context, records []map[string]string) (int, error) {
	payload, err := json.Marshal(records)
	if err != nil {
		return 0, err
	}
	form := c.form("record")
	form.Set("action", "import")
	form.Set("format", "json")
	form.Set("type", "flat")
	form.Set("overwriteBehavior", "normal")
	form.Set("returnContent", "count")
	form.Set("data", string(payload))

	body, err := c.post(ctx, form)
	if err != nil {
		return 0, err
	}
	var result struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, fmt.Errorf("unexpected import response %q: %w", body, err)
	}
	return result.Count, nil
}

// ExportReport downloads one report as CSV.
func (c *Client) ExportReport(ctx context.Context, reportID string) ([]byte, error) {
	form := c.form("report")
	form.Set("format", "csv")
	form.Set("report_id", reportID)
	return c.post(ctx, form)
}

func (c *Client) form(content string) url.Values {
	form := url.Values{}
	form.Set("token", c.Token)
	form.Set("content", content)
	return form
}

func (c *Client) post(ctx context.Context, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// APIError is a non-200 response from the REDCap API. REDCap puts its
// explanation in the response body.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return "redcap api returned " + strconv.Itoa(e.StatusCode) + ": " + e.Body
}
