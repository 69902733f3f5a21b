package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"docagent/internal/config"
	"docagent/internal/crawler"
	"docagent/internal/git"
	"docagent/internal/llm"
	"docagent/internal/logging"
	"docagent/internal/processor"
	"docagent/internal/server"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "docagent",
		Short: "AI-powered Python docstring generator",
	}
	configPath string
	verbose    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	generateCmd.Flags().String("provider", "", "LLM provider: auto | ollama | gemini | openai")
	generateCmd.Flags().String("model", "", "Model name override")
	generateCmd.Flags().Float64("temperature", config.DefaultTemperature, "Sampling temperature")
	generateCmd.Flags().StringP("output", "o", "", "Output path (default: overwrite in-place; single file only)")
	generateCmd.Flags().Bool("diff", false, "Print the documented source instead of writing")
	generateCmd.Flags().Bool("recursive", true, "Recurse into subdirectories")
	generateCmd.Flags().String("changed", "", "Only process .py files changed since the given git ref")

	serveCmd.Flags().Int("port", 0, "Port to serve on (default from config)")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(modelsCmd)
}

func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return cfg, logging.Setup(os.Stderr, level), nil
}

var generateCmd = &cobra.Command{
	Use:   "generate [path]",
	Short: "Add Google-style docstrings to a Python file or directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}

		providerName, _ := cmd.Flags().GetString("provider")
		modelName, _ := cmd.Flags().GetString("model")
		temperature, _ := cmd.Flags().GetFloat64("temperature")
		output, _ := cmd.Flags().GetString("output")
		diff, _ := cmd.Flags().GetBool("diff")
		recursive, _ := cmd.Flags().GetBool("recursive")
		changedRef, _ := cmd.Flags().GetString("changed")

		if providerName == "" {
			providerName = cfg.Provider
		}
		if modelName == "" {
			modelName = cfg.Model
		}

		var files []string
		switch {
		case changedRef != "":
			files, err = git.ChangedPythonFiles(changedRef)
		case len(args) == 1:
			files, err = crawler.New().CollectFiles(args[0], recursive)
		default:
			return fmt.Errorf("provide a path or use --changed")
		}
		if err != nil {
			return err
		}
		if len(files) == 0 {
			color.Yellow("No Python files to process.")
			return nil
		}
		if output != "" && len(files) > 1 {
			return fmt.Errorf("-o is only valid for a single input file")
		}

		ctx := context.Background()
		provider, err := llm.New(ctx, cfg, providerName, modelName, temperature)
		if err != nil {
			return err
		}
		if closer, ok := provider.(io.Closer); ok {
			defer closer.Close()
		}

		proc := processor.New(provider, cfg, logger)

		for _, path := range files {
			source, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			fmt.Printf("📄 Processing %s\n", path)
			result, err := proc.ProcessFile(ctx, string(source))
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			color.Green("✓ Processed %d definition(s), %d correction pass(es) used.",
				result.FunctionsProcessed, result.CorrectionsMade)

			if diff {
				fmt.Println(result.Documented)
				continue
			}

			outPath := path
			if output != "" {
				outPath = output
			}
			if err := os.WriteFile(outPath, []byte(result.Documented), 0o644); err != nil {
				return err
			}
			color.Green("✓ Written to %s", outPath)
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Launch the docstring generation HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		if port, _ := cmd.Flags().GetInt("port"); port != 0 {
			cfg.Server.Port = port
		}
		fmt.Printf("🚀 Serving on http://localhost:%d\n", cfg.Server.Port)
		return server.New(cfg, logger).ListenAndServe()
	},
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List available LLM models",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := setup()
		if err != nil {
			return err
		}

		fmt.Println("\nAvailable Models")

		ollama := llm.ListOllamaModels(cfg.Ollama.BaseURL)
		if len(ollama) > 0 {
			color.Green("Ollama (local):")
			for _, m := range ollama {
				fmt.Printf("  • %s\n", m)
			}
		} else {
			fmt.Println("Ollama: not running or no models pulled")
		}

		fmt.Println()
		if cfg.Gemini.APIKey != "" {
			color.Green("Gemini (cloud): %s", config.DefaultGeminiModel)
		} else {
			fmt.Println("Gemini: GEMINI_API_KEY not set")
		}

		provider, model := llm.DetectDefault(cfg.Ollama.BaseURL)
		fmt.Printf("\nAuto-detected default: %s / %s\n", provider, model)
		return nil
	},
}
