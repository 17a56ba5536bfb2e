package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/lo"
	"github.com/use-agent/webextract/models"
)

// CLI flags
var (
	apiURL  = flag.String("api-url", "http://localhost:8080", "webextract API base URL")
	apiKey  = flag.String("api-key", "", "API key for authenticated requests")
	runs    = flag.Int("runs", 3, "Number of runs per URL and tier")
	maxTier = flag.Int("max-tier", 4, "Benchmark tiers 1 through this value")
	output  = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// Test URLs covering 5 site types.
var testURLs = []struct {
	Label string
	URL   string
}{
	{"Static", "https://example.com"},
	{"Blog", "https://go.dev/blog/go1.21"},
	{"Docs", "https://go.dev/doc/effective_go"},
	{"News", "https://www.bbc.com/news"},
	{"Complex", "https://github.com/go-rod/rod"},
}

type runResult struct {
	Run           int    `json:"run"`
	Success       bool   `json:"success"`
	Method        string `json:"method,omitempty"`
	ElapsedMs     int64  `json:"elapsed_ms"`
	ContentLength int    `json:"content_length"`
	StatusCode    int    `json:"status_code,omitempty"`
	Error         string `json:"error,omitempty"`
}

type caseResult struct {
	URL     string      `json:"url"`
	Label   string      `json:"label"`
	MaxTier int         `json:"max_tier"`
	Runs    []runResult `json:"runs"`

	// Summary over successful runs.
	Successes    int            `json:"successes"`
	AvgElapsedMs float64        `json:"avg_elapsed_ms"`
	AvgLength    float64        `json:"avg_content_length"`
	Methods      map[string]int `json:"methods"`
}

type benchmarkReport struct {
	Timestamp  string       `json:"timestamp"`
	APIURL     string       `json:"api_url"`
	RunsPerURL int          `json:"runs_per_url"`
	Results    []caseResult `json:"results"`
}

func main() {
	flag.Parse()

	if *maxTier < 1 || *maxTier > 4 {
		fmt.Fprintf(os.Stderr, "Error: -max-tier must be between 1 and 4, got %d\n", *maxTier)
		os.Exit(2)
	}

	fmt.Println("=== webextract tier benchmark ===")
	fmt.Printf("API URL:   %s\n", *apiURL)
	fmt.Printf("Runs/URL:  %d\n", *runs)
	fmt.Printf("Tiers:     1-%d\n", *maxTier)
	fmt.Printf("Output:    %s\n", *output)
	fmt.Println()

	client := &http.Client{Timeout: 120 * time.Second}

	if err := checkAPI(client, *apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintf(os.Stderr, "Make sure the server is running (webextract serve)\n")
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		APIURL:     *apiURL,
		RunsPerURL: *runs,
	}

	for _, t := range testURLs {
		for tier := 1; tier <= *maxTier; tier++ {
			fmt.Printf("Benchmarking [%s] %s (max tier %d) ...\n", t.Label, t.URL, tier)
			cr := caseResult{URL: t.URL, Label: t.Label, MaxTier: tier}

			for i := 1; i <= *runs; i++ {
				fmt.Printf("  Run %d/%d ... ", i, *runs)
				rr := extractOnce(client, t.URL, tier, i)
				if rr.Success {
					fmt.Printf("OK  %s  %dms  %d chars\n", rr.Method, rr.ElapsedMs, rr.ContentLength)
				} else {
					fmt.Printf("FAILED: %s\n", rr.Error)
				}
				cr.Runs = append(cr.Runs, rr)
			}

			summarize(&cr)
			report.Results = append(report.Results, cr)
		}
		fmt.Println()
	}

	printTable(os.Stdout, report.Results)

	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func checkAPI(client *http.Client, baseURL string) error {
	resp, err := client.Get(baseURL + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health returned %d", resp.StatusCode)
	}
	return nil
}

func extractOnce(client *http.Client, target string, tier, run int) runResult {
	rr := runResult{Run: run}

	body, err := json.Marshal(models.ExtractRequest{URL: target, MaxTier: tier})
	if err != nil {
		rr.Error = fmt.Sprintf("marshal error: %v", err)
		return rr
	}

	req, err := http.NewRequest(http.MethodPost, *apiURL+"/api/v1/extract", bytes.NewReader(body))
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	req.Header.Set("Content-Type", "application/json")
	if *apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+*apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		rr.Error = fmt.Sprintf("read error: %v", err)
		return rr
	}
	if resp.StatusCode != http.StatusOK {
		rr.Error = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		return rr
	}

	res, err := models.ParseJSON(data)
	if err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}
	return fromResult(run, res)
}

func fromResult(run int, res models.ExtractionResult) runResult {
	rr := runResult{
		Run:           run,
		Success:       res.Success,
		ElapsedMs:     res.ElapsedMs,
		ContentLength: res.ContentLength,
	}
	if res.FetchMethod != nil {
		rr.Method = string(*res.FetchMethod)
	}
	if res.StatusCode != nil {
		rr.StatusCode = *res.StatusCode
	}
	if res.Error != nil {
		rr.Error = *res.Error
	}
	return rr
}

// summarize fills the averages and method histogram from successful runs.
func summarize(cr *caseResult) {
	ok := lo.Filter(cr.Runs, func(r runResult, _ int) bool { return r.Success })
	cr.Successes = len(ok)
	cr.Methods = lo.CountValues(lo.Map(ok, func(r runResult, _ int) string { return r.Method }))
	if len(ok) == 0 {
		return
	}
	n := float64(len(ok))
	cr.AvgElapsedMs = float64(lo.SumBy(ok, func(r runResult) int64 { return r.ElapsedMs })) / n
	cr.AvgLength = float64(lo.SumBy(ok, func(r runResult) int { return r.ContentLength })) / n
}

func printTable(out io.Writer, results []caseResult) {
	fmt.Fprintln(out, strings.Repeat("─", 85))
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "URL\tTier\tOK\tAvg Latency\tContent Len\tMethods\n")
	fmt.Fprintf(w, "───\t────\t──\t───────────\t───────────\t───────\n")

	for _, r := range results {
		if r.Successes == 0 {
			fmt.Fprintf(w, "%s\t%d\t0/%d\tFAILED\t-\t-\n", truncateURL(r.URL, 40), r.MaxTier, len(r.Runs))
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%d/%d\t%dms\t%d\t%s\n",
			truncateURL(r.URL, 40),
			r.MaxTier,
			r.Successes, len(r.Runs),
			int64(r.AvgElapsedMs),
			int(r.AvgLength),
			formatMethods(r.Methods),
		)
	}

	w.Flush()
	fmt.Fprintln(out, strings.Repeat("─", 85))
}

func formatMethods(m map[string]int) string {
	parts := lo.MapToSlice(m, func(method string, n int) string {
		return fmt.Sprintf("%s×%d", method, n)
	})
	slices.Sort(parts)
	return strings.Join(parts, " ")
}

func truncateURL(u string, max int) string {
	if len(u) <= max {
		return u
	}
	return u[:max-3] + "..."
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
