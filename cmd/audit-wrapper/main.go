package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/checkmarxDev/audit-wrapper/internal/config"
	"github.com/checkmarxDev/audit-wrapper/internal/grpcserver"
	"github.com/checkmarxDev/audit-wrapper/internal/logger"
	"github.com/checkmarxDev/audit-wrapper/internal/metrics"
	"github.com/checkmarxDev/audit-wrapper/internal/server"
	"github.com/checkmarxDev/audit-wrapper/pkg/wrapper"
)

var version = "dev"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "audit-wrapper",
		Short:         "LLM-backed source audit service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".env", "Config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP and gRPC APIs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}

	var inputPath string
	sensitiveCmd := &cobra.Command{
		Use:   "sensitive-files",
		Short: "Rank the files listed in a JSON file by sensitivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSensitiveFiles(cmd, configPath, inputPath)
		},
	}
	sensitiveCmd.Flags().StringVar(&inputPath, "input", "", `JSON list of {"path","language"} objects`)
	_ = sensitiveCmd.MarkFlagRequired("input")

	var (
		codePath  string
		language  string
		auditType string
	)
	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Audit one source file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, configPath, codePath, language, wrapper.AuditType(auditType))
		},
	}
	analyzeCmd.Flags().StringVar(&codePath, "file", "", "Source file to audit")
	analyzeCmd.Flags().StringVar(&language, "language", wrapper.DefaultAnalysisLanguage, "Language named in the prompt")
	analyzeCmd.Flags().StringVar(&auditType, "audit-type", string(wrapper.AuditSecurity), "security or reliability")
	_ = analyzeCmd.MarkFlagRequired("file")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}

	rootCmd.AddCommand(serveCmd, sensitiveCmd, analyzeCmd, versionCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func setup(configPath string, m *metrics.Metrics) (*config.Config, zerolog.Logger, *wrapper.AuditWrapper, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Output: os.Stderr})

	audit, err := wrapper.NewAuditWrapper(cfg.Wrapper(), wrapper.WithLogger(log), wrapper.WithMetrics(m))
	if err != nil {
		return nil, log, nil, err
	}
	return cfg, log, audit, nil
}

func runServe(ctx context.Context, configPath string) error {
	m := metrics.New()
	cfg, log, audit, err := setup(configPath, m)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- server.New(audit, log, m).ListenAndServe(ctx, cfg.HTTPAddr)
	}()
	go func() {
		errCh <- grpcserver.New(audit, log, m).ListenAndServe(ctx, cfg.GRPCAddr)
	}()

	// the first server to return takes the other one down with it
	first := <-errCh
	cancel()
	second := <-errCh
	if first != nil {
		return first
	}
	return second
}

func runSensitiveFiles(cmd *cobra.Command, configPath, inputPath string) error {
	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}
	var files []wrapper.File
	if err = json.Unmarshal(raw, &files); err != nil {
		return fmt.Errorf("parsing %s: %w", inputPath, err)
	}

	_, _, audit, err := setup(configPath, nil)
	if err != nil {
		return err
	}
	result, err := audit.IdentifySensitiveFiles(cmd.Context(), files)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), result)
	return nil
}

func runAnalyze(cmd *cobra.Command, configPath, codePath, language string, auditType wrapper.AuditType) error {
	code, err := os.ReadFile(codePath)
	if err != nil {
		return err
	}

	_, _, audit, err := setup(configPath, nil)
	if err != nil {
		return err
	}
	result, err := audit.InDepthAnalysis(cmd.Context(), string(code),
		wrapper.WithLanguage(language),
		wrapper.WithAuditType(auditType))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), result)
	return nil
}
