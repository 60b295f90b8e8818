package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dshills/diffgate/internal/providers"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List reviewer providers and check credentials",
}

type modelInfo struct {
	Provider string
	Models   []string
}

var knownModels = []modelInfo{
	{
		Provider: "anthropic",
		Models:   []string{"claude-sonnet-4-20250514", "claude-opus-4-20250514", "claude-3-5-haiku-latest"},
	},
	{
		Provider: "openai",
		Models:   []string{"gpt-4.1", "gpt-4.1-mini", "gpt-4o", "o3-mini"},
	},
	{
		Provider: "gemini",
		Models:   []string{"gemini-2.5-pro", "gemini-2.5-flash", "gemini-2.0-flash"},
	},
	{
		Provider: "ollama",
		Models:   []string{"llama3.3", "qwen2.5-coder", "deepseek-coder-v2", "codellama"},
	},
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known providers, models and credential variables",
	Run: func(cmd *cobra.Command, args []string) {
		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Provider", "Models", "Credentials"})
		for _, info := range knownModels {
			creds := strings.Join(providers.APIKeyEnv(info.Provider), ", ")
			if creds == "" {
				creds = "-"
			}
			t.AppendRow(table.Row{info.Provider, strings.Join(info.Models, "\n"), creds})
			t.AppendSeparator()
		}
		t.Render()
	},
}

var modelsDoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Validate provider credentials with a one-token request",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		out, errw := cmd.OutOrStdout(), cmd.ErrOrStderr()

		fmt.Fprintf(out, "Checking %s (%s)...\n", cfg.Provider, cfg.Model)

		p, err := newReviewer(providers.Options{
			Provider:   cfg.Provider,
			Model:      cfg.Model,
			APIKey:     providers.ResolveAPIKey(cfg.Provider, os.Getenv),
			BaseURL:    os.Getenv("DIFFGATE_BASE_URL"),
			MaxRetries: -1,
			Logger:     logger,
		})
		if err != nil {
			fmt.Fprintf(errw, "FAIL: %v\n", err)
			exitCode = ExitUsageError
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		_, err = p.Review(ctx, providers.ReviewRequest{
			SystemPrompt: "Respond with exactly: ok",
			UserPrompt:   "ping",
			MaxTokens:    10,
		})
		if err != nil {
			fmt.Fprintf(errw, "FAIL: %v\n", err)
			exitCode = classify(err)
			return nil
		}

		fmt.Fprintf(out, "OK: %s is configured and responding\n", p.Name())
		return nil
	},
}

func init() {
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsDoctorCmd)
	modelsDoctorCmd.Flags().StringVar(&flagProvider, "provider", "", "Provider to check")
	modelsDoctorCmd.Flags().StringVar(&flagModel, "model", "", "Model to check")
}
