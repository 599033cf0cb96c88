package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nomis52/presenced/server/handlers"
)

const requestTimeout = 10 * time.Second

// apiClient calls the control API of a running daemon.
type apiClient struct {
	baseURL    string
	httpClient *http.Client
}

func newAPIClient(addr string) *apiClient {
	base := addr
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &apiClient{
		baseURL:    strings.TrimSuffix(base, "/"),
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// do sends a request and returns the response body, failing on non-2xx.
func (c *apiClient) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		var errResp handlers.ErrorResponse
		if json.Unmarshal(data, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("%s %s: %s (status %d)", method, path, errResp.Error, resp.StatusCode)
		}
		return nil, fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	return data, nil
}

func newSendCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a presence command to a running daemon",
		Example: `  presenced send connect
  presenced send activity --title "In menus" --subtitle "Idle"
  presenced send clear
  presenced send disconnect`,
	}
	cmd.PersistentFlags().StringVar(&addr, "addr", defaultAddr, "daemon address")

	simple := func(use, short, method, path string) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				_, err := newAPIClient(addr).do(cmd.Context(), method, path, nil)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s queued\n", use)
				return nil
			},
		}
	}

	var req handlers.ActivityRequest
	activity := &cobra.Command{
		Use:   "activity",
		Short: "Change the displayed activity; unset flags keep their value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req == (handlers.ActivityRequest{}) {
				return fmt.Errorf("at least one of --title, --subtitle or --icon is required")
			}
			if _, err := newAPIClient(addr).do(cmd.Context(), http.MethodPut, "/activity", req); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "activity queued")
			return nil
		},
	}
	activity.Flags().StringVar(&req.Title, "title", "", "activity title")
	activity.Flags().StringVar(&req.Subtitle, "subtitle", "", "activity subtitle")
	activity.Flags().StringVar(&req.Icon, "icon", "", "large image asset key")

	cmd.AddCommand(
		simple("connect", "Connect to Discord", http.MethodPost, "/connect"),
		simple("disconnect", "Disconnect from Discord", http.MethodPost, "/disconnect"),
		simple("clear", "Clear the displayed activity", http.MethodDelete, "/activity"),
		simple("reload", "Reload the daemon configuration", http.MethodPost, "/reload"),
		activity,
	)
	return cmd
}

func newStatusCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the status of a running daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newAPIClient(addr).do(cmd.Context(), http.MethodGet, "/api/status", nil)
			if err != nil {
				return err
			}
			var out bytes.Buffer
			if err := json.Indent(&out, data, "", "  "); err != nil {
				return fmt.Errorf("decoding status: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(out.String()))
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "daemon address")
	return cmd
}
