package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// ClassifierService calls the external vision model that identifies e-waste
// items from a photo
type ClassifierService struct {
	baseURL string
	client  *http.Client
}

// ScanResult is one classification from the vision model
type ScanResult struct {
	Type           string  `json:"type"`
	Category       string  `json:"category"`
	Confidence     float64 `json:"confidence"`
	Recyclable     bool    `json:"recyclable"`
	EstimatedValue float64 `json:"estimatedValue"`
}

type classifierRequest struct {
	Image string `json:"image"`
}

type classifierResponse struct {
	Success bool        `json:"success"`
	Result  *ScanResult `json:"result"`
	Error   string      `json:"error"`
}

// NewClassifierService creates a new classifier client
func NewClassifierService() (*ClassifierService, error) {
	baseURL := os.Getenv("CLASSIFIER_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("CLASSIFIER_URL environment variable is required")
	}

	return &ClassifierService{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Analyze sends a base64-encoded image to the classifier and returns the
// detected item
func (s *ClassifierService) Analyze(ctx context.Context, imageBase64 string) (*ScanResult, error) {
	body, err := json.Marshal(classifierRequest{Image: imageBase64})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier returned status code %d", resp.StatusCode)
	}

	var result classifierResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if !result.Success || result.Result == nil {
		if result.Error != "" {
			return nil, fmt.Errorf("classifier error: %s", result.Error)
		}
		return nil, fmt.Errorf("classifier returned no result")
	}

	return result.Result, nil
}
