package vision

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

const azureAnalyzePath = "/vision/v3.2/analyze"

// AzureClient calls the Azure AI Vision v3.2 Analyze Image API.
// Implements the Provider interface.
type AzureClient struct {
	baseURL string // https://{region}.api.cognitive.microsoft.com
	apiKey  string
	client  *http.Client
}

// azureResponse is the subset of the Analyze Image response we use.
type azureResponse struct {
	Description struct {
		Tags     []string       `json:"tags"`
		Captions []azureCaption `json:"captions"`
	} `json:"description"`
	RequestID string `json:"requestId"`
}

type azureCaption struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// AzureEndpoint builds the regional base URL.
func AzureEndpoint(region string) string {
	return fmt.Sprintf("https://%s.api.cognitive.microsoft.com", region)
}

// NewAzureClient creates a new Azure vision client. baseURL is the resource
// endpoint without a path, usually AzureEndpoint(region).
func NewAzureClient(baseURL, apiKey string, timeout time.Duration) *AzureClient {
	return &AzureClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name returns the provider name.
func (az *AzureClient) Name() string { return "azure" }

// Describe posts the raw image bytes to the Analyze endpoint with the
// Description visual feature and returns the first caption.
func (az *AzureClient) Describe(ctx context.Context, image []byte) (*Result, error) {
	params := url.Values{}
	params.Set("visualFeatures", "Description")
	endpoint := az.baseURL + azureAnalyzePath + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", az.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := az.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("azure request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Provider: "azure", Status: resp.StatusCode, Body: string(body)}
	}

	var result azureResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	out := &Result{Tags: result.Description.Tags}
	if len(result.Description.Captions) > 0 {
		c := result.Description.Captions[0]
		out.Text = strings.TrimSpace(c.Text)
		out.Confidence = c.Confidence
	}
	return out, nil
}
