package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"
)

func status(c *cli.Context) error {
	addr := c.String("status-addr")
	url := fmt.Sprintf("http://%s/status", addr)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url) //nolint:noctx // short-lived CLI one-shot request
	if err != nil {
		return fmt.Errorf("query status endpoint: %w", err)
	}
	defer resp.Body.Close()

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decode status response: %w", err)
	}

	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("format status response: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
