package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/linkwrap/internal/app"
	"github.com/MrSnakeDoc/linkwrap/internal/config"
	"github.com/MrSnakeDoc/linkwrap/internal/convert"
	"github.com/MrSnakeDoc/linkwrap/internal/logger"
)

// buildServeCmd creates the "serve" command that runs the bot.
func buildServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Discord bot and the ops HTTP server",
		Long: `Run the Discord bot and the ops HTTP server.

DISCORD_TOKEN and ALLOWED_CHANNEL_ID are required. Graceful shutdown is
handled on SIGINT/SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			log := logger.New(cfg.LogLevel, cfg.PrettyLog)
			defer func() { _ = log.Sync() }()

			a, err := app.New(cmd.Context(), cfg, log)
			if err != nil {
				log.Error("failed to start", logger.Error(err))
				return err
			}
			return a.Run(cmd.Context())
		},
	}
}

// buildConvertCmd creates the "convert" command. It uses the live network but
// never connects to Discord.
func buildConvertCmd() *cobra.Command {
	var (
		asJSON  bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "convert [text...]",
		Short: "Convert the links in text and print the affiliate redirects",
		Example: `  linkwrap convert "https://cssbuy.com/item-taobao-987654.html"
  echo "$MESSAGE" | linkwrap convert --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if text == "" {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				text = string(raw)
			}

			cfg := config.LoadOffline()
			level := "warn"
			if verbose {
				level = "debug"
			}
			log := logger.New(level, cfg.PrettyLog)
			defer func() { _ = log.Sync() }()

			p, err := app.NewPipeline(cmd.Context(), cfg, log, nil)
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			conv := p.Converter.Convert(cmd.Context(), text)
			if asJSON {
				return printJSON(cmd.OutOrStdout(), conv)
			}
			return printText(cmd.OutOrStdout(), conv)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log resolution steps to stderr")
	return cmd
}

func printText(w io.Writer, conv convert.Conversion) error {
	switch {
	case len(conv.URLs) == 0:
		return fmt.Errorf("no links found")
	case !conv.Result.Accepted():
		return fmt.Errorf("unsupported links: %s", strings.Join(conv.Result.Invalid, ", "))
	}
	for _, d := range conv.Descriptions {
		if _, err := fmt.Fprintln(w, d); err != nil {
			return err
		}
	}
	return nil
}

type jsonLink struct {
	Original    string `json:"original"`
	Canonical   string `json:"canonical"`
	Marketplace string `json:"marketplace"`
	SourceAgent string `json:"source_agent,omitempty"`
}

type jsonButton struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

type jsonResult struct {
	Accepted     bool         `json:"accepted"`
	Valid        []jsonLink   `json:"valid"`
	Invalid      []string     `json:"invalid,omitempty"`
	Descriptions []string     `json:"descriptions,omitempty"`
	Buttons      []jsonButton `json:"buttons,omitempty"`
}

func printJSON(w io.Writer, conv convert.Conversion) error {
	out := jsonResult{
		Accepted:     conv.Result.Accepted(),
		Valid:        []jsonLink{},
		Invalid:      conv.Result.Invalid,
		Descriptions: conv.Descriptions,
	}
	for _, l := range conv.Result.Valid {
		out.Valid = append(out.Valid, jsonLink{
			Original:    l.Original,
			Canonical:   l.Canonical,
			Marketplace: l.Marketplace.Name(),
			SourceAgent: l.SourceAgent,
		})
	}
	for _, b := range conv.Buttons {
		out.Buttons = append(out.Buttons, jsonButton{Label: b.Label, URL: b.URL})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
