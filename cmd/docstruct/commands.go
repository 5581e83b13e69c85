package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docstruct/constants"
	"github.com/joseph-ayodele/docstruct/internal/common"
	"github.com/joseph-ayodele/docstruct/internal/export"
	"github.com/joseph-ayodele/docstruct/internal/llm"
	"github.com/joseph-ayodele/docstruct/internal/llm/gemini"
	"github.com/joseph-ayodele/docstruct/internal/llm/openai"
	"github.com/joseph-ayodele/docstruct/internal/pipeline"
	"github.com/joseph-ayodele/docstruct/internal/reader"
)

type rootOptions struct {
	configPath string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "docstruct",
		Short:         "Turn unstructured documents into Key/Value/Comment spreadsheets",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "optional YAML config file")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return &usageError{err: err} })

	root.AddCommand(newExtractCmd(opts), newPreviewCmd(opts), newSchemaCmd())
	return root
}

func newExtractCmd(root *rootOptions) *cobra.Command {
	var (
		output   string
		backend  string
		model    string
		printOut bool
	)
	cmd := &cobra.Command{
		Use:   "extract <document>",
		Short: "Extract records from a PDF or text document into an XLSX workbook",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(root)
			if err != nil {
				return err
			}
			if err := applyLLMFlags(cfg, backend, model); err != nil {
				return err
			}
			logger.Info("cli.config.ok", "config", cfg.String())

			data, err := os.ReadFile(args[0])
			if err != nil {
				return common.NewAppError(common.CodeRead, "open document", err)
			}

			ctx := cmd.Context()
			proc, closeFn, err := newProcessor(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeFn()

			out, err := proc.Run(ctx, filepath.Base(args[0]), data)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, out.XLSX, 0o644); err != nil {
				return common.NewAppError(common.CodeInternal, "write workbook", err)
			}

			w := cmd.OutOrStdout()
			if printOut {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				wire := make([]map[string]string, 0, out.Result.Len())
				for _, r := range out.Result.Records {
					wire = append(wire, r.Wire())
				}
				if err := enc.Encode(map[string]any{llm.EnvelopeKey: wire}); err != nil {
					return common.NewAppError(common.CodeInternal, "print records", err)
				}
			}
			fmt.Fprintf(w, "Extracted %d records from %s (%d pages) to %s\n", out.Result.Len(), out.Document.Name, out.Document.Pages, output)
			fmt.Fprintf(w, "Coverage: %.1f%% of document words appear in the records\n", out.Coverage*100)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", constants.DefaultOutputFile, "workbook to write")
	cmd.Flags().StringVar(&backend, "backend", "", "model backend: openai or gemini (overrides LLM_BACKEND)")
	cmd.Flags().StringVar(&model, "model", "", "model identifier (overrides LLM_MODEL)")
	cmd.Flags().BoolVar(&printOut, "json", false, "also print the extracted records as JSON")
	return cmd
}

func newPreviewCmd(root *rootOptions) *cobra.Command {
	var chars int
	cmd := &cobra.Command{
		Use:   "preview <document>",
		Short: "Show the beginning of the text the model would receive",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(root)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return common.NewAppError(common.CodeRead, "open document", err)
			}
			rd, err := reader.NewReader(reader.Config{MaxPages: cfg.Reader.MaxPages}, logger)
			if err != nil {
				return common.NewAppError(common.CodeInternal, "build reader", err)
			}
			doc, err := rd.Read(cmd.Context(), filepath.Base(args[0]), data)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s: %d pages, %d characters\n\n", doc.Name, doc.Pages, len([]rune(doc.Text)))
			fmt.Fprintln(w, reader.Preview(doc.Text, chars))
			for _, warn := range doc.Warnings {
				fmt.Fprintln(w, "warning:", warn)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&chars, "chars", constants.PreviewChars, "number of characters to show")
	return cmd
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema the model output must satisfy",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), llm.Describe())
			return nil
		},
	}
}

// setup loads .env, config and the process logger.
func setup(root *rootOptions) (*common.Config, *slog.Logger, error) {
	if root.envFile != "" {
		if err := godotenv.Load(root.envFile); err != nil && !os.IsNotExist(err) {
			return nil, nil, common.NewAppError(common.CodeConfig, "load env file", err)
		}
	}
	cfg, err := common.LoadConfig(root.configPath)
	if err != nil {
		return nil, nil, err
	}
	logger := common.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// applyLLMFlags layers command-line overrides onto cfg and validates it.
func applyLLMFlags(cfg *common.Config, backend, model string) error {
	if backend != "" {
		cfg.LLM.Backend = strings.ToLower(backend)
		cfg.LLM.APIKey = common.APIKeyFor(cfg.LLM.Backend)
	}
	if model != "" {
		cfg.LLM.Model = model
	}
	return cfg.Validate()
}

// newProcessor wires reader, backend and writer. The returned func releases
// the backend.
func newProcessor(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*pipeline.Processor, func(), error) {
	inv, closeFn, err := newInvoker(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	rd, err := reader.NewReader(reader.Config{CacheSize: cfg.Reader.CacheSize, MaxPages: cfg.Reader.MaxPages}, logger)
	if err != nil {
		closeFn()
		return nil, nil, common.NewAppError(common.CodeInternal, "build reader", err)
	}
	return pipeline.NewProcessor(logger, rd, inv, export.NewWriter(cfg.Export.Sheet, logger)), closeFn, nil
}

// newInvoker builds the backend named by cfg. The returned func releases it.
func newInvoker(ctx context.Context, cfg *common.Config, logger *slog.Logger) (llm.Invoker, func(), error) {
	switch cfg.LLM.Backend {
	case constants.BackendGemini:
		c, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.Timeout,
		}, logger)
		if err != nil {
			return nil, nil, common.NewAppError(common.CodeConfig, "gemini backend", err)
		}
		return c, func() {
			if err := c.Close(); err != nil {
				logger.Warn("llm.gemini.close_error", "error", err)
			}
		}, nil
	default:
		c := openai.NewClient(openai.Config{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.Timeout,
		}, logger)
		return c, func() {}, nil
	}
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}
