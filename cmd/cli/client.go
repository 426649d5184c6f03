package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/nextolk/backend/internal/telemetry"
)

var httpClient *resty.Client

// client returns the shared HTTP client, built on first use after the flags
// are parsed
func client() *resty.Client {
	if httpClient == nil {
		httpClient = resty.NewWithClient(telemetry.NewInstrumentedHTTPClient("nextolk-cli", 2*time.Minute))
		httpClient.SetBaseURL(apiURL)
		httpClient.SetHeader("User-Agent", "Nextolk-CLI/0.1.0")
		if authToken != "" {
			httpClient.SetAuthToken(authToken)
		}
	}
	return httpClient
}

// APIError is a non-2xx answer from the server
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Field      string
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%d] %s: %s (field %s)", e.StatusCode, e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%d] %s: %s", e.StatusCode, e.Code, e.Message)
}

// errorBody mirrors the server's error JSON
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field"`
}

// do sends the request and decodes a 2xx body into out when out is not nil
func do(req *resty.Request, method, path string, out interface{}) error {
	var body errorBody
	req.SetError(&body)
	if out != nil {
		req.SetResult(out)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		apiErr := &APIError{StatusCode: resp.StatusCode(), Code: body.Code, Message: body.Error, Field: body.Field}
		if apiErr.Message == "" {
			apiErr.Message = string(resp.Body())
		}
		return apiErr
	}
	return nil
}

// pageParams adds limit and offset when set
func pageParams(req *resty.Request, limit, offset int) *resty.Request {
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		req.SetQueryParam("offset", strconv.Itoa(offset))
	}
	return req
}

// printJSON writes v indented; used for --output json
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
