// Package parity replays requests against the Go API and the legacy backend and
// reports where their answers differ.
package parity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"reflect"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultIgnore lists fields that legitimately differ between two backends.
var DefaultIgnore = []string{"id", "token", "request_date", "updated_at", "approved_at", "picked_at", "returned_at", "last_login"}

// Target is one request to replay.
type Target struct {
	Method   string          `json:"method"`
	Path     string          `json:"path"`
	Body     json.RawMessage `json:"body,omitempty"`
	Critical bool            `json:"critical"`
	Ignore   []string        `json:"ignore,omitempty"`
}

type targetFile struct {
	Targets []Target `json:"targets"`
}

// Result is the outcome of one target.
type Result struct {
	Target         Target
	GoStatus       int
	LegacyStatus   int
	StatusMatch    bool
	BodyMatch      bool
	Err            error
	DurationGo     time.Duration
	DurationLegacy time.Duration
}

// Diff reports whether the result counts against the run.
func (r Result) Diff() bool {
	return r.Err != nil || !r.StatusMatch || !r.BodyMatch
}

// Report aggregates a run.
type Report struct {
	Results  []Result
	Breaking int
	Optional int
}

// LoadTargets reads a targets file.
func LoadTargets(path string) ([]Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file targetFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(file.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return file.Targets, nil
}

// Comparer sends each target to both backends.
type Comparer struct {
	client     *http.Client
	goBase     string
	legacyBase string
	header     http.Header
}

// NewComparer builds a comparer. header is sent with every request.
func NewComparer(client *http.Client, goBase, legacyBase string, header http.Header) *Comparer {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Comparer{client: client, goBase: goBase, legacyBase: legacyBase, header: header}
}

// Run compares every target in order.
func (c *Comparer) Run(ctx context.Context, targets []Target) Report {
	var report Report
	for _, t := range targets {
		res := c.Compare(ctx, t)
		if res.Diff() {
			if t.Critical {
				report.Breaking++
			} else {
				report.Optional++
			}
		}
		report.Results = append(report.Results, res)
	}
	return report
}

type reply struct {
	status int
	body   []byte
	took   time.Duration
}

// Compare replays t against both backends concurrently.
func (c *Comparer) Compare(ctx context.Context, t Target) Result {
	res := Result{Target: t}
	var goReply, legacyReply reply

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := c.do(gctx, c.goBase, t)
		if err != nil {
			return fmt.Errorf("go request failed: %w", err)
		}
		goReply = r
		return nil
	})
	g.Go(func() error {
		r, err := c.do(gctx, c.legacyBase, t)
		if err != nil {
			return fmt.Errorf("legacy request failed: %w", err)
		}
		legacyReply = r
		return nil
	})
	if err := g.Wait(); err != nil {
		res.Err = err
		return res
	}

	res.GoStatus, res.LegacyStatus = goReply.status, legacyReply.status
	res.DurationGo, res.DurationLegacy = goReply.took, legacyReply.took
	res.StatusMatch = res.GoStatus == res.LegacyStatus
	ignore := append(append([]string(nil), DefaultIgnore...), t.Ignore...)
	res.BodyMatch = BodiesEqual(goReply.body, legacyReply.body, ignore)
	return res
}

func (c *Comparer) do(ctx context.Context, base string, t Target) (reply, error) {
	method := strings.ToUpper(strings.TrimSpace(t.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := t.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var body io.Reader
	if len(t.Body) > 0 {
		body = bytes.NewReader(t.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(base, "/")+path, body)
	if err != nil {
		return reply{}, err
	}
	for k, values := range c.header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return reply{}, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return reply{}, err
	}
	return reply{status: resp.StatusCode, body: data, took: time.Since(start)}, nil
}

// BodiesEqual compares two payloads as JSON when both parse, dropping ignored
// keys at any depth. Non-JSON bodies must match byte for byte after trimming.
func BodiesEqual(a, b []byte, ignore []string) bool {
	if bytes.Equal(bytes.TrimSpace(a), bytes.TrimSpace(b)) {
		return true
	}
	var aj, bj interface{}
	if err := json.Unmarshal(a, &aj); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bj); err != nil {
		return false
	}
	skip := make(map[string]struct{}, len(ignore))
	for _, k := range ignore {
		skip[k] = struct{}{}
	}
	return reflect.DeepEqual(normalize(aj, skip), normalize(bj, skip))
}

func normalize(v interface{}, skip map[string]struct{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, v2 := range val {
			if _, ok := skip[k]; ok {
				continue
			}
			out[k] = normalize(v2, skip)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, v2 := range val {
			out[i] = normalize(v2, skip)
		}
		return out
	case float64:
		if val == float64(int64(val)) {
			return int64(val)
		}
	}
	return v
}

// WriteReport prints a human readable summary.
func WriteReport(w io.Writer, report Report) {
	fmt.Fprintln(w, "Parity report")
	fmt.Fprintln(w, "=============")
	for _, res := range report.Results {
		status := "OK"
		if res.Err != nil {
			status = "ERROR"
		} else if res.Diff() {
			status = "DIFF"
		}
		fmt.Fprintf(w, "[%s] %s %s\n", status, res.Target.Method, res.Target.Path)
		if res.Err != nil {
			fmt.Fprintf(w, "  error: %v\n", res.Err)
			continue
		}
		fmt.Fprintf(w, "  go=%d (%s) legacy=%d (%s) body_match=%t critical=%t\n",
			res.GoStatus, res.DurationGo, res.LegacyStatus, res.DurationLegacy, res.BodyMatch, res.Target.Critical)
	}
	fmt.Fprintf(w, "Breaking diffs: %d, Optional diffs: %d\n", report.Breaking, report.Optional)
}
