// Package main is the facturkit command line tool: one-shot e-invoice
// generation and conformance checks against local files, without a server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/facturkit/facturkit/internal/model"
	"github.com/facturkit/facturkit/internal/pdf"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "facturkit: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "facturkit",
		Short:        "Factur-X e-invoice tooling",
		Long:         `facturkit converts a PDF plus invoice metadata into a Factur-X e-invoice and checks generated documents for conformance.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newGenerateCmd(),
		newValidateCmd(),
	)
	return cmd
}

func newGenerateCmd() *cobra.Command {
	var inPath, outPath, metaPath string
	var check bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate an e-invoice from a PDF and a metadata JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := loadMetadata(metaPath)
			if err != nil {
				return err
			}

			converter := pdf.NewArchivalConverter()
			archival, err := converter.ConvertToArchival(inPath)
			if err != nil {
				return err
			}
			if archival != inPath {
				defer os.Remove(archival)
			}

			embedder := pdf.NewInvoiceEmbedder()
			if err := embedder.Embed(archival, outPath, meta); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "generated %s\n", outPath)

			if check {
				return printReport(cmd, outPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "Input PDF")
	cmd.Flags().StringVar(&outPath, "out", "e-invoice.pdf", "Output e-invoice PDF")
	cmd.Flags().StringVar(&metaPath, "meta", "", "Invoice metadata JSON file")
	cmd.Flags().BoolVar(&check, "check", false, "Validate the generated document")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("meta")
	return cmd
}

func newValidateCmd() *cobra.Command {
	var inPath, profile string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a generated e-invoice for conformance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printReportWithProfile(cmd, inPath, profile)
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "PDF to validate")
	cmd.Flags().StringVar(&profile, "profile", "EN16931", "Profile name to report under")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func loadMetadata(path string) (model.InvoiceMetadata, error) {
	var meta model.InvoiceMetadata
	data, err := os.ReadFile(path)
	if err != nil {
		return meta, fmt.Errorf("read metadata: %w", err)
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("parse metadata: %w", err)
	}
	meta.Normalize()
	if err := meta.Validate(); err != nil {
		return meta, err
	}
	return meta, nil
}

func printReport(cmd *cobra.Command, path string) error {
	return printReportWithProfile(cmd, path, "EN16931")
}

func printReportWithProfile(cmd *cobra.Command, path, profile string) error {
	validator := pdf.NewConformanceValidator(profile)
	result, err := validator.Validate(path)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	if !result.Valid {
		return fmt.Errorf("%s does not conform (%d errors)", path, result.ErrorCount())
	}
	return nil
}
