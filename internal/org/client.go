// Package org is the authenticated client for a remote org's metadata API.
//
// It covers the two capabilities pull needs from the org: reading the
// change-tracking table (source members) and running asynchronous metadata
// retrieve jobs.
package org

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

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/danieljhkim/sourcesync/internal/config"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 60 * time.Second

	// RequestIDHeader carries a client-generated id for correlating logs.
	RequestIDHeader = "X-Request-Id"
)

// Org is a connection to one authorized org.
type Org struct {
	Username    string
	OrgID       string
	InstanceURL string
	APIVersion  string

	http   *http.Client
	logger *zap.Logger
}

// Option configures an Org.
type Option func(*Org)

// WithHTTPClient replaces the base HTTP client wrapped by the oauth2 transport.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Org) {
		o.http = c
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(o *Org) {
		o.logger = l
	}
}

// New creates an Org from stored auth. The access token is attached to every
// request as a bearer token.
func New(ctx context.Context, auth *config.OrgAuth, opts ...Option) *Org {
	o := &Org{
		Username:    auth.Username,
		OrgID:       auth.OrgID,
		InstanceURL: strings.TrimRight(auth.InstanceURL, "/"),
		APIVersion:  auth.APIVersion,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.APIVersion == "" {
		o.APIVersion = config.DefaultAPIVersion
	}

	base := o.http
	if base == nil {
		base = &http.Client{Timeout: DefaultTimeout}
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: auth.AccessToken, TokenType: "Bearer"})
	client := oauth2.NewClient(ctx, ts)
	client.Timeout = base.Timeout
	o.http = client

	return o
}

// SourceMembers returns tracked changes with a revision counter above fromRevision.
func (o *Org) SourceMembers(ctx context.Context, fromRevision int64) ([]SourceMember, error) {
	q := url.Values{}
	q.Set("fromRevision", strconv.FormatInt(fromRevision, 10))

	var resp sourceMembersResponse
	if err := o.do(ctx, http.MethodGet, o.endpoint(o.APIVersion, "tooling/sourcemembers")+"?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to query source members: %w", err)
	}
	return resp.Records, nil
}

// StartRetrieve submits a retrieve job and returns its initial status.
func (o *Org) StartRetrieve(ctx context.Context, req *RetrieveRequest) (*RetrieveStatus, error) {
	apiVersion := req.APIVersion
	if apiVersion == "" {
		apiVersion = o.APIVersion
	}

	var status RetrieveStatus
	if err := o.do(ctx, http.MethodPost, o.endpoint(apiVersion, "metadata/retrieve"), req, &status); err != nil {
		return nil, err
	}
	if status.ID == "" {
		return nil, fmt.Errorf("org returned a retrieve response without an id")
	}
	return &status, nil
}

// CheckRetrieveStatus reads the current status of a retrieve job.
func (o *Org) CheckRetrieveStatus(ctx context.Context, apiVersion, id string) (*RetrieveStatus, error) {
	if apiVersion == "" {
		apiVersion = o.APIVersion
	}

	var status RetrieveStatus
	if err := o.do(ctx, http.MethodGet, o.endpoint(apiVersion, "metadata/retrieve/"+url.PathEscape(id)), nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (o *Org) endpoint(apiVersion, path string) string {
	return fmt.Sprintf("%s/services/data/v%s/%s", o.InstanceURL, apiVersion, path)
}

// do sends a JSON request and decodes a JSON response into out.
func (o *Org) do(ctx context.Context, method, endpoint string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := o.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	o.logger.Debug("org request",
		zap.String("method", method),
		zap.String("url", endpoint),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseAPIError(resp.StatusCode, data)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func parseAPIError(status int, data []byte) error {
	apiErr := &APIError{StatusCode: status}

	var list []apiErrorBody
	if err := json.Unmarshal(data, &list); err == nil && len(list) > 0 {
		apiErr.ErrorCode = list[0].ErrorCode
		apiErr.Message = list[0].Message
		return apiErr
	}
	var single apiErrorBody
	if err := json.Unmarshal(data, &single); err == nil && (single.ErrorCode != "" || single.Message != "") {
		apiErr.ErrorCode = single.ErrorCode
		apiErr.Message = single.Message
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(data))
	return apiErr
}
