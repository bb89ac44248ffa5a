// ABOUTME: Client-side commands that query a running shell-bridge over its HTTP API

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/fatih/color"

	"github.com/2389/shell-bridge/internal/config"
	"github.com/2389/shell-bridge/internal/gateway"
)

func getJSON(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return http.DefaultClient.Do(req)
}

func runHealth(ctx context.Context, flags cliFlags) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resp, err := getJSON(ctx, fmt.Sprintf("http://%s/health", cfg.Server.HTTPAddr))
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d: %s", resp.StatusCode, body)
	}

	fmt.Println(string(body))
	return nil
}

func runServices(ctx context.Context, flags cliFlags) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resp, err := getJSON(ctx, fmt.Sprintf("http://%s/api/services", cfg.Server.HTTPAddr))
	if err != nil {
		return fmt.Errorf("listing services: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("listing services: status %d", resp.StatusCode)
	}

	var out gateway.ServicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	printServices(out)
	return nil
}

func printServices(s gateway.ServicesResponse) {
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	gray := color.New(color.FgHiBlack)

	if !s.Present {
		yellow.Println("no coordinator (host has not attached)")
		return
	}

	state := "running"
	switch {
	case s.Shutdown:
		state = "shut down"
	case !s.Ready:
		state = "waiting for runtime"
	}
	fmt.Printf("coordinator: %s", state)
	if s.StartedAt != nil {
		gray.Printf(" (started %s)", s.StartedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Println()
	if s.PendingDeepLink != "" {
		fmt.Printf("pending deep link: %s\n", s.PendingDeepLink)
	}

	fmt.Printf("registered services: %v\n", s.Services)
	if len(s.Instances) == 0 {
		gray.Println("no live instances")
		return
	}
	for _, inst := range s.Instances {
		green.Print("  ● ")
		fmt.Printf("%-12s handle=%s ", inst.Name, inst.Handle)
		gray.Println(inst.State)
	}
}
