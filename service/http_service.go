package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/nilotpaul/meetsync/util"
)

// Provider error bodies are cut to this size before being logged.
const maxErrorBody = 512

type apiRequest struct {
	Method string
	URL    string
	Header map[string]string
	// Body is sent as JSON, Form as x-www-form-urlencoded. At most one is set.
	Body any
	Form url.Values
}

// APIError is a non-2xx provider response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider responded with %d: %s", e.Status, e.Body)
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// callJSON sends req and decodes a 2xx response body into out.
func callJSON(ctx context.Context, client *http.Client, req apiRequest, out any) error {
	if client == nil {
		client = http.DefaultClient
	}

	var body io.Reader
	contentType := ""
	switch {
	case req.Body != nil:
		b, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	case req.Form != nil:
		body = strings.NewReader(req.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	method := req.Method
	if len(method) == 0 {
		method = http.MethodGet
	}

	r, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return err
	}
	r.Header.Set("Accept", "application/json")
	if len(contentType) != 0 {
		r.Header.Set("Content-Type", contentType)
	}
	for k, v := range req.Header {
		r.Header.Set(k, v)
	}

	res, err := client.Do(r)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return &APIError{Status: res.StatusCode, Body: string(b)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := util.DecodeJSON(res.Body, out); err != nil && err != io.EOF {
		return fmt.Errorf("failed to decode the res body: %w", err)
	}

	return nil
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse[T any] struct {
	Data   T              `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// callGraphQL posts a query and returns the first reported error, if any.
func callGraphQL[T any](ctx context.Context, client *http.Client, endpoint string, header map[string]string, query string, vars map[string]any) (T, error) {
	var res graphQLResponse[T]
	err := callJSON(ctx, client, apiRequest{
		Method: http.MethodPost,
		URL:    endpoint,
		Header: header,
		Body:   map[string]any{"query": query, "variables": vars},
	}, &res)
	if err != nil {
		return res.Data, err
	}
	if len(res.Errors) > 0 {
		return res.Data, fmt.Errorf("graphql error: %s", res.Errors[0].Message)
	}

	return res.Data, nil
}

// failure turns a provider call error into a step result reason.
func failure(provider string, err error) string {
	if apiErr, ok := err.(*APIError); ok {
		return fmt.Sprintf("%s responded with %d", provider, apiErr.Status)
	}
	return fmt.Sprintf("%s request failed: %s", provider, err)
}
