// Package client builds the HTTP client used to reach the study server.
package client

import (
	"time"

	"github.com/go-resty/resty/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/zfogg/searchstudy/pkg/config"
	"github.com/zfogg/searchstudy/pkg/logger"
)

const userAgent = "studyctl/0.1.0"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// New returns a resty client for baseURL. Every call is attempted once.
func New(baseURL string, timeout time.Duration) *resty.Client {
	c := resty.New()
	c.SetBaseURL(baseURL)
	c.SetTimeout(timeout)
	c.SetRetryCount(0)
	c.SetHeader("User-Agent", userAgent)
	c.SetHeader("Accept", "application/json")
	c.JSONMarshal = json.Marshal
	c.JSONUnmarshal = json.Unmarshal

	c.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		logger.Debug("HTTP Request", "method", req.Method, "url", req.URL)
		return nil
	})
	c.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		logger.Debug("HTTP Response",
			"status", resp.StatusCode(),
			"url", resp.Request.URL,
			"request_id", resp.Header().Get("X-Request-ID"),
			"elapsed", resp.Time(),
		)
		return nil
	})
	return c
}

// FromConfig builds a client from api.base_url and api.timeout
func FromConfig() *resty.Client {
	return New(config.GetString("api.base_url"), config.GetSeconds("api.timeout"))
}
