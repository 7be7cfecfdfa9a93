package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/client"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/config"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/ui"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how many people are on the relay right now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		var s ui.Stats
		if err := getJSON(cmd.Context(), cfg.Endpoint("/stats"), &s); err != nil {
			return client.NewError("fetch stats", err)
		}
		fmt.Println(ui.StatsView(cfg.Server, s))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.Options{Server: flagServer, Insecure: flagInsecure})
	if err != nil {
		return nil, client.NewError("load config", err)
	}
	return cfg, nil
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

// getJSON fetches url and decodes a JSON body into v.
func getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
