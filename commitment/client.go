// Package commitment talks to the external proving service that turns a
// canonical vote vector into a KZG commitment. Jobs are asynchronous: a
// recipe is submitted, then its output is fetched by polling until the proof
// is present. This is the only unbounded-latency dependency of the system.
package commitment

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"go.vocdoni.io/dvote/log"
)

const (
	// RecipeEndpoint is the job submission and retrieval path on the proving
	// service.
	RecipeEndpoint = "/recipe"

	// DefaultRetries is the number of attempts for a single HTTP request.
	DefaultRetries = 3
	// DefaultTimeout is the per-request HTTP timeout.
	DefaultTimeout = 10 * time.Second
	// DefaultPollInterval is the delay between job output fetches.
	DefaultPollInterval = 2 * time.Second
	// DefaultMaxPollTime bounds the total wait for a job to complete.
	DefaultMaxPollTime = 2 * time.Minute
)

var (
	// ErrService wraps network and HTTP failures against the proving
	// service. Retryable by the caller; nothing has been persisted.
	ErrService = errors.New("commitment service request failed")
	// ErrMalformedProof means the service answered with an output that does
	// not match the protocol (not JSON, missing proof field, out-of-range
	// bytes). Not retryable.
	ErrMalformedProof = errors.New("malformed proof output")
	// ErrTimeout means the job did not complete within the polling bound.
	ErrTimeout = errors.New("commitment job timed out")
)

// JobStatus is the lifecycle state of a recipe job on the proving service.
type JobStatus string

const (
	JobScheduled JobStatus = "scheduled"
	JobCompleted JobStatus = "completed"
)

// Job is a handle to a submitted recipe job.
type Job struct {
	ID     string
	Status JobStatus
}

// recipeRequest is the job description: witness generation plus proving over
// the canonical vote vector.
type recipeRequest struct {
	Commands []string     `json:"commands"`
	Data     []recipeData `json:"data"`
}

type recipeData struct {
	InputData [][]int64 `json:"input_data"`
}

type recipeResponse struct {
	ID                  string `json:"id"`
	WasAlreadyScheduled bool   `json:"was_already_scheduled"`
}

type recipeResult struct {
	Output string `json:"output"`
}

// proofPayload is the shape the job output string must parse to. Anything
// else fails closed with ErrMalformedProof.
type proofPayload struct {
	Proof *[]int64 `json:"proof"`
}

// Client is the HTTP client for the proving service.
type Client struct {
	c               *http.Client
	host            *url.URL
	retries         int
	pollInterval    time.Duration
	maxPollTime     time.Duration
	commitmentBytes int
}

// New returns a Client for the proving service at host. commitmentBytes is
// the number of leading proof bytes that form the commitment.
func New(host string, commitmentBytes int) (*Client, error) {
	hostURL, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse proving service host: %w", err)
	}
	if commitmentBytes <= 0 {
		return nil, fmt.Errorf("commitment byte width must be positive")
	}
	tr := &http.Transport{
		IdleConnTimeout:    DefaultTimeout,
		DisableCompression: false,
	}
	return &Client{
		c:               &http.Client{Transport: tr, Timeout: DefaultTimeout},
		host:            hostURL,
		retries:         DefaultRetries,
		pollInterval:    DefaultPollInterval,
		maxPollTime:     DefaultMaxPollTime,
		commitmentBytes: commitmentBytes,
	}, nil
}

// SetPollInterval configures the delay between job output fetches.
func (c *Client) SetPollInterval(d time.Duration) {
	c.pollInterval = d
}

// SetMaxPollTime configures the total polling bound for AwaitResult.
func (c *Client) SetMaxPollTime(d time.Duration) {
	c.maxPollTime = d
}

// SetRetries configures the number of attempts per HTTP request.
func (c *Client) SetRetries(n int) {
	c.retries = n
}

// Submit schedules a witness-generation and proving job for the canonical
// vote vector. Resubmitting the same vector is expected under retries; the
// service reports it via was_already_scheduled, which is informational.
func (c *Client) Submit(ctx context.Context, vector []int64) (*Job, error) {
	req := recipeRequest{
		Commands: []string{"gen-witness", "prove"},
		Data:     []recipeData{{InputData: [][]int64{vector}}},
	}
	data, status, err := c.request(ctx, http.MethodPost, req, nil, RecipeEndpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrService, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: http status %d (%s)", ErrService, status, data)
	}
	var resp recipeResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode submit response: %v", ErrService, err)
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("%w: submit response without job id", ErrService)
	}
	if resp.WasAlreadyScheduled {
		log.Debugw("recipe job already scheduled", "id", resp.ID)
	}
	return &Job{ID: resp.ID, Status: JobScheduled}, nil
}

// AwaitResult polls the job output until the proof is present, the polling
// bound elapses, or ctx is canceled. The job is terminal once its output has
// been retrieved.
func (c *Client) AwaitResult(ctx context.Context, job *Job) ([]byte, error) {
	pollCtx, cancel := context.WithTimeout(ctx, c.maxPollTime)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		proof, done, err := c.fetchResult(pollCtx, job.ID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, err
		}
		if done {
			job.Status = JobCompleted
			return proof, nil
		}
		select {
		case <-pollCtx.Done():
			// caller cancellation is not a timeout; only the polling
			// bound maps to ErrTimeout
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("%w: job %s after %s", ErrTimeout, job.ID, c.maxPollTime)
		case <-ticker.C:
		}
	}
}

// fetchResult fetches the job output once. It returns done=false while the
// job is still scheduled.
func (c *Client) fetchResult(ctx context.Context, jobID string) ([]byte, bool, error) {
	data, status, err := c.request(ctx, http.MethodGet, nil, []string{"indices", "1"}, RecipeEndpoint, jobID)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrService, err)
	}
	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		// job not yet visible, keep polling
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("%w: http status %d (%s)", ErrService, status, data)
	}
	var results []recipeResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, false, fmt.Errorf("%w: decode result: %v", ErrMalformedProof, err)
	}
	if len(results) == 0 || results[0].Output == "" {
		return nil, false, nil
	}
	proof, err := parseProof(results[0].Output)
	if err != nil {
		return nil, false, err
	}
	return proof, true, nil
}

// Commit submits the vector, awaits the proof and extracts the commitment.
func (c *Client) Commit(ctx context.Context, vector []int64) (string, error) {
	job, err := c.Submit(ctx, vector)
	if err != nil {
		return "", err
	}
	log.Debugw("recipe job submitted", "id", job.ID, "vectorLen", len(vector))
	proof, err := c.AwaitResult(ctx, job)
	if err != nil {
		return "", err
	}
	return c.Commitment(proof)
}

// Commitment derives the commitment string from the raw proof: the first
// commitmentBytes bytes, hex encoded in little-endian byte order. The
// last-read byte becomes the most significant nibble pair; the typed-data
// consumer expects exactly this convention.
func (c *Client) Commitment(proof []byte) (string, error) {
	if len(proof) < c.commitmentBytes {
		return "", fmt.Errorf("%w: proof of %d bytes, need %d", ErrMalformedProof, len(proof), c.commitmentBytes)
	}
	le := make([]byte, c.commitmentBytes)
	for i := 0; i < c.commitmentBytes; i++ {
		le[i] = proof[c.commitmentBytes-1-i]
	}
	return "0x" + hex.EncodeToString(le), nil
}

// parseProof validates the nested JSON output of a completed job and returns
// the proof bytes. Every entry must be in 0..255.
func parseProof(output string) ([]byte, error) {
	var payload proofPayload
	if err := json.Unmarshal([]byte(output), &payload); err != nil {
		return nil, fmt.Errorf("%w: output is not valid JSON: %v", ErrMalformedProof, err)
	}
	if payload.Proof == nil {
		return nil, fmt.Errorf("%w: missing proof field", ErrMalformedProof)
	}
	proof := make([]byte, len(*payload.Proof))
	for i, b := range *payload.Proof {
		if b < 0 || b > 255 {
			return nil, fmt.Errorf("%w: proof byte %d out of range at index %d", ErrMalformedProof, b, i)
		}
		proof[i] = byte(b)
	}
	return proof, nil
}

// request performs one HTTP call with bounded retries, in the same shape as
// the API client: fresh request per attempt, JSON body, query params as
// key/value pairs.
func (c *Client) request(ctx context.Context, method string, jsonBody any, params []string, urlPath ...string) ([]byte, int, error) {
	var body []byte
	var err error
	if jsonBody != nil {
		body, err = json.Marshal(jsonBody)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal JSON: %w", err)
		}
	}

	u, err := url.Parse(c.host.String())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse host URL: %w", err)
	}
	u.Path = path.Join(u.Path, path.Join(urlPath...))
	if len(params) > 0 {
		values := url.Values{}
		for i := 0; i < len(params)-1; i += 2 {
			values.Set(params[i], params[i+1])
		}
		u.RawQuery = values.Encode()
	}

	headers := http.Header{}
	if jsonBody != nil {
		headers.Set("Content-Type", "application/json")
		headers.Set("Accept", "application/json")
	}

	var resp *http.Response
	for i := 1; i <= c.retries; i++ {
		var reqBody io.ReadCloser
		if body != nil {
			reqBody = io.NopCloser(bytes.NewReader(body))
		}
		req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header = headers

		resp, err = c.c.Do(req)
		if err != nil {
			log.Warnw("proving service request failed", "error", err.Error(), "attempt", i, "retries", c.retries)
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(500 * time.Millisecond):
			}
			continue
		}
		break
	}
	if resp == nil {
		return nil, 0, fmt.Errorf("request ultimately failed after %d retries", c.retries)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warnw("failed to close response body", "error", err.Error())
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, resp.StatusCode, nil
}
