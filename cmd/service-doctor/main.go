package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Check describes one diagnostic probe.
type Check struct {
	Name     string
	URL      string
	Status   string
	Err      error
	Duration time.Duration
}

var (
	gatewayURL string
	timeout    time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "service-doctor",
		Short: "Probes the payment router and its upstream processors",
		RunE:  runChecks,
	}
	rootCmd.Flags().StringVar(&gatewayURL, "gateway", "http://localhost:9999", "Router base URL")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Second, "Per-check timeout")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runChecks(_ *cobra.Command, _ []string) error {
	checks := []*Check{
		{Name: "Router liveness", URL: gatewayURL + "/healthz"},
		{Name: "Router readiness", URL: gatewayURL + "/readyz"},
		{Name: "Router metrics", URL: gatewayURL + "/metrics"},
		{Name: "Audit summary", URL: gatewayURL + "/payments-summary"},
	}
	if u := os.Getenv("UPSTREAM_A_URL"); u != "" {
		checks = append(checks, &Check{Name: "Upstream A (default)", URL: u + "/healthz"})
	}
	if u := os.Getenv("UPSTREAM_B_URL"); u != "" {
		checks = append(checks, &Check{Name: "Upstream B (fallback)", URL: u + "/healthz"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, c := range checks {
		wg.Add(1)
		go func(c *Check) {
			defer wg.Done()
			start := time.Now()
			c.Err = probe(ctx, c.URL)
			c.Duration = time.Since(start)
			if c.Err != nil {
				c.Status = "FAIL"
			} else {
				c.Status = "OK"
			}
		}(c)
	}
	wg.Wait()

	ok := color.New(color.FgGreen, color.Bold).SprintFunc()
	fail := color.New(color.FgRed, color.Bold).SprintFunc()

	failures := 0
	for _, c := range checks {
		if c.Err != nil {
			failures++
			fmt.Printf("%-24s %s  (%s)  %v\n", c.Name, fail(c.Status), c.Duration.Round(time.Millisecond), c.Err)
		} else {
			fmt.Printf("%-24s %s  (%s)\n", c.Name, ok(c.Status), c.Duration.Round(time.Millisecond))
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d checks failed", failures, len(checks))
	}
	return nil
}

func probe(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
