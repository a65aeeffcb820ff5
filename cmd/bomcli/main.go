// Package main provides a command line client that prices a BOM file
// through the same pipeline as the web wizard.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/bomquote/internal/config"
	"github.com/JonMunkholm/bomquote/internal/core"
	"github.com/JonMunkholm/bomquote/internal/gateway"
	"github.com/JonMunkholm/bomquote/internal/logging"
)

var (
	textInput  string
	mapFlag    string
	mode       string
	outputPath string
	gatewayURL string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bomcli",
		Short: "Price a bill of materials from the command line",
	}

	processCmd := &cobra.Command{
		Use:   "process [input.xlsx|input.csv]",
		Short: "Parse a BOM, send it for pricing and export the result",
		Long: `process reads a spreadsheet or pasted text, applies the column mapping,
sends the rows to the pricing service and writes the result workbook.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runProcess,
	}

	processCmd.Flags().StringVar(&textInput, "text", "", `BOM text instead of a file, tab or semicolon separated ("-" reads stdin)`)
	processCmd.Flags().StringVar(&mapFlag, "map", "", `Column mapping, e.g. "0=partNumber,1=quantity" (default: column 0 is the part number)`)
	processCmd.Flags().StringVar(&mode, "mode", "", "Display mode: short or full (default: from config)")
	processCmd.Flags().StringVarP(&outputPath, "out", "o", "result.xlsx", "Result workbook path")
	processCmd.Flags().StringVar(&gatewayURL, "gateway", "", "Pricing service base URL (overrides GATEWAY_BASE_URL)")
	processCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging to stderr")

	rootCmd.AddCommand(processCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runProcess(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && textInput == "" {
		return fmt.Errorf("either an input file or --text is required")
	}
	if len(args) == 1 && textInput != "" {
		return fmt.Errorf("use either an input file or --text, not both")
	}

	mapping, err := parseMapFlag(mapFlag)
	if err != nil {
		return err
	}

	_ = godotenv.Load()
	if gatewayURL != "" {
		os.Setenv("GATEWAY_BASE_URL", gatewayURL)
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if mode != "" {
		if mode != config.ModeShort && mode != config.ModeFull {
			return fmt.Errorf("invalid mode: %s (must be short or full)", mode)
		}
		cfg.Wizard.DisplayMode = mode
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	slog.SetDefault(logging.New(cmd.ErrOrStderr(), level, cfg.Logging.Format))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	service := core.NewService(
		core.NewStore(cfg.Wizard.SessionTTL, cfg.Wizard.DefaultPageSize),
		gateway.New(cfg.Gateway.Endpoint(), cfg.Gateway.Timeout),
		core.Options{
			Mode:          cfg.Wizard.DisplayMode,
			PreviewRows:   cfg.Upload.PreviewRows,
			MaxConcurrent: 1,
			MaxWait:       cfg.Gateway.MaxWait,
		},
	)
	sess := service.Store().Create()

	switch textInput {
	case "":
		err = submitFile(ctx, service, sess, args[0])
	case "-":
		raw, rerr := io.ReadAll(cmd.InOrStdin())
		if rerr != nil {
			return fmt.Errorf("read stdin: %w", rerr)
		}
		err = service.SubmitText(ctx, sess, string(raw))
	default:
		err = service.SubmitText(ctx, sess, textInput)
	}
	if err != nil {
		return userError(err)
	}

	if mapping != nil {
		if err := applyMapping(ctx, service, sess, mapping); err != nil {
			return userError(err)
		}
	}

	if err := service.Process(ctx, sess); err != nil {
		return userError(err)
	}

	rows := sess.Rows()
	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no rows returned by the pricing service")
		return nil
	}
	data, err := service.Export(sess)
	if err != nil {
		return userError(err)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	st := service.State(sess)
	printSummary(cmd.OutOrStdout(), rows, st.NotFound, outputPath)
	return nil
}

func submitFile(ctx context.Context, service *core.Service, sess *core.Session, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrNoData, err)
	}
	defer f.Close()
	return service.SubmitFile(ctx, sess, filepath.Base(path), f)
}

// applyMapping replaces the default mapping with the requested one.
func applyMapping(ctx context.Context, service *core.Service, sess *core.Session, mapping core.Mapping) error {
	for col := range service.State(sess).Mapping {
		if err := service.ClearColumn(sess, col); err != nil {
			return err
		}
	}
	for col, role := range mapping {
		if err := service.AssignColumn(ctx, sess, col, role); err != nil {
			return err
		}
	}
	return nil
}

// parseMapFlag reads "0=partNumber,1=quantity". An empty value keeps the
// default mapping and returns nil.
func parseMapFlag(value string) (core.Mapping, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	m := core.Mapping{}
	for _, pair := range strings.Split(value, ",") {
		colStr, roleStr, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return nil, fmt.Errorf("invalid mapping %q: want column=role", pair)
		}
		col, err := strconv.Atoi(strings.TrimSpace(colStr))
		if err != nil {
			return nil, fmt.Errorf("invalid mapping %q: column must be a number", pair)
		}
		role, err := core.ParseRole(strings.TrimSpace(roleStr))
		if err != nil {
			return nil, err
		}
		if prev, taken := m.Column(role); taken {
			return nil, fmt.Errorf("role %s mapped to both column %d and %d", role, prev, col)
		}
		if err := m.Assign(col, role); err != nil {
			return nil, err
		}
	}
	if !m.HasPartNumber() {
		return nil, core.ErrNoPartNumber
	}
	return m, nil
}

// userError reports what the web UI would show, keeping the cause for
// errors.Is. Errors with no known message pass through unchanged.
func userError(err error) error {
	if !core.IsUserFacing(err) {
		return err
	}
	return fmt.Errorf("%s (%w)", core.FormatUserError(err), err)
}

func printSummary(w io.Writer, rows []core.ResultRow, notFound int, path string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MPN\tMANUFACTURER\tQTY\tPRICE\tSTATUS")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s %s\t%s\n",
			r.MPN, r.Manufacturer, r.RequestedQuantity.Int(), r.Price.Fixed(), r.DisplayCurrency(), r.Status)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d rows, %d not found, written to %s\n", len(rows), notFound, path)
}
