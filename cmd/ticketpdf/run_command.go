package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ticketpdf/internal/logging"
	"ticketpdf/internal/services/monday"
	"ticketpdf/internal/tickets"
	"ticketpdf/internal/verify"
	"ticketpdf/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var month string
	var outDir string
	var downloadsDir string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch, convert, and assemble the report for one month",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			token := cfg.Token()
			if token == "" {
				return fmt.Errorf("no API token: set %s in the environment or a .env file", cfg.API.TokenEnv)
			}

			format := cfg.Logging.Format
			if format == "" {
				format = logging.DefaultFormat()
			}
			logger, err := logging.New(logging.Options{
				Level:  cfg.Logging.Level,
				Format: format,
				Output: cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}

			client, err := monday.New(monday.Config{
				URL:            cfg.API.URL,
				Token:          token,
				Version:        cfg.API.Version,
				TimeoutSeconds: cfg.Run.QueryTimeoutSeconds,
			})
			if err != nil {
				return err
			}
			manager, err := workflow.NewManager(cfg, client, logger)
			if err != nil {
				return err
			}

			if dryRun {
				return runDry(cmd, ctx, manager, client, month)
			}

			outcome, err := manager.Run(cmd.Context(), month, outDir, downloadsDir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(outcome.Plan.Items) == 0 {
				fmt.Fprintf(out, "No qualifying items for %s; nothing generated.\n", month)
				printMissing(out, outcome.Verification.Missing)
				return nil
			}
			fmt.Fprintf(out, "Report: %s\n", outcome.ReportPath)
			if outcome.WorkbookPath != "" {
				fmt.Fprintf(out, "Workbook: %s\n", outcome.WorkbookPath)
			}
			fmt.Fprintf(out, "Items: %d  Converted: %d  Placeholders: %d\n",
				len(outcome.Plan.Items), outcome.Converted, outcome.Placeholders)
			for _, warning := range outcome.Warnings {
				fmt.Fprintf(out, "Warning: %s\n", warning)
			}
			printMissing(out, outcome.Verification.Missing)
			return nil
		},
	}

	cmd.Flags().StringVarP(&month, "month", "m", "", "Reporting month as YYYY-MM")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory for the report and workbook")
	cmd.Flags().StringVar(&downloadsDir, "downloads", "downloads", "Directory for attachment downloads")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print filtering and verification decisions without writing any output")
	_ = cmd.MarkFlagRequired("month")

	return cmd
}

// printMissing lists items the verification pass found absent from the report.
func printMissing(out io.Writer, missing []tickets.Item) {
	if len(missing) == 0 {
		return
	}
	fmt.Fprintf(out, "Verification flagged %d item(s) absent from the report:\n", len(missing))
	for _, item := range missing {
		fmt.Fprintf(out, "  %s (%s, opened %s)\n", item.Name, item.ID, item.OpenDate)
	}
}

// runDry prints the plan and verification findings without touching the
// network for downloads or the filesystem for outputs.
func runDry(cmd *cobra.Command, cmdCtx *commandContext, manager *workflow.Manager, fetcher verify.Fetcher, month string) error {
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return err
	}
	plan, err := manager.Plan(cmd.Context(), month, true)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	rows := make([][]string, 0, len(plan.Items))
	for i, item := range plan.Items {
		rows = append(rows, []string{
			strconv.Itoa(i + 1), item.Name, item.ID,
			item.OpenDate, item.CloseDate, strconv.Itoa(len(item.Attachments)),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Ticket", "ID", "Opened", "Closed", "Attachments"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	))
	fmt.Fprintf(out, "Fetched %d, qualified %d, unique attachments %d, duplicates avoided %d\n",
		plan.Fetched, len(plan.Items), plan.Index.Len(), plan.Index.DuplicateSavings())
	if plan.Truncated {
		fmt.Fprintf(out, "Preview truncated to max_items = %d\n", cfg.Run.MaxItems)
	}

	if shared := plan.Index.SharedEntries(); len(shared) > 0 {
		sharedRows := make([][]string, 0, len(shared))
		for _, entry := range shared {
			names := make([]string, 0, len(entry.Tickets))
			for _, ref := range entry.Tickets {
				names = append(names, ref.Name)
			}
			sharedRows = append(sharedRows, []string{
				entry.Attachment.Name, strconv.Itoa(len(entry.Tickets)), strings.Join(names, ", "),
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Shared attachment", "Uses", "Tickets"},
			sharedRows,
			[]columnAlignment{alignLeft, alignRight, alignLeft},
		))
	}

	processed := make(map[string]struct{}, len(plan.Items))
	for _, item := range plan.Items {
		processed[item.ID] = struct{}{}
	}
	result, err := verify.Run(cmd.Context(), fetcher, verify.Params{
		BoardID:        cfg.Board.ID,
		Month:          month,
		RequiredStatus: cfg.Board.StatusLabelRequired,
		Columns:        ticketsColumns(cfg),
		PageSize:       cfg.Run.PageSize,
		Processed:      processed,
	}, logging.NewNop())
	if err != nil {
		fmt.Fprintf(out, "Verification pass failed: %v\n", err)
		return nil
	}
	if result.Clean() {
		fmt.Fprintf(out, "Verification clean: %d qualifying item(s) all planned.\n", result.Qualified)
		return nil
	}
	fmt.Fprintf(out, "Verification flagged %d item(s) not in the plan:\n", len(result.Missing))
	for _, item := range result.Missing {
		fmt.Fprintf(out, "  %s (%s, opened %s)\n", item.Name, item.ID, item.OpenDate)
	}
	return nil
}
