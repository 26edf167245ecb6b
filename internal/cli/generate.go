package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/clindraft/clindraft/internal/entity"
	"github.com/clindraft/clindraft/internal/model"
	"github.com/clindraft/clindraft/internal/report"
)

var (
	outDir      string
	outFormat   string
	retryFailed bool
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate <type>",
	Short: "Generate a report draft from the project's indexed documents",
	Long: `Generate a report of the given type (CEP, CER, SSCP, or LSR) section
by section. Each section retrieves its own evidence from the project
index; a section that fails does not abort the report. Use
--retry-failed to regenerate only the failed sections of the latest
report instead of starting over.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&outDir, "out", "", "output directory (overrides config)")
	generateCmd.Flags().StringVar(&outFormat, "format", "md", "output format: md or json")
	generateCmd.Flags().BoolVar(&retryFailed, "retry-failed", false, "regenerate only the failed sections of the latest report")
	rootCmd.AddCommand(generateCmd)
}

func parseReportType(arg string) (model.ReportType, error) {
	typ := model.ReportType(strings.ToUpper(arg))
	for _, known := range model.ReportTypes() {
		if typ == known {
			return typ, nil
		}
	}
	return "", fmt.Errorf("unknown report type %q (expected CEP, CER, SSCP, or LSR)", arg)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	typ, err := parseReportType(args[0])
	if err != nil {
		return err
	}
	project, err := requireProject()
	if err != nil {
		return err
	}
	if outFormat != "md" && outFormat != "json" {
		return fmt.Errorf("unknown format %q (expected md or json)", outFormat)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if outDir != "" {
		cfg.Output.Dir = outDir
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	deviceInfo, err := projectDeviceInfo(ctx, a, project)
	if err != nil {
		return err
	}

	var rep *model.Report
	var genErr error
	if retryFailed {
		rep, err = a.store.LatestReport(ctx, project, typ)
		if err != nil {
			return fmt.Errorf("no previous %s report for project %q: %w", typ, project, err)
		}
		failed := rep.FailedSections()
		if len(failed) == 0 {
			fmt.Printf("Latest %s report has no failed sections, nothing to do.\n", typ)
			return nil
		}
		fmt.Printf("Regenerating %d failed section(s) of report %s...\n", len(failed), rep.ID)
		genErr = a.generator.RegenerateFailed(ctx, rep, deviceInfo)
	} else {
		fmt.Printf("Generating %s for project %q...\n", report.Title(typ), project)
		rep, genErr = a.generator.Generate(ctx, project, typ, deviceInfo)
	}
	if rep == nil {
		return genErr
	}

	// Completed sections survive an interruption, so the save runs on a
	// fresh context even when ctx was cancelled.
	if err := a.store.SaveReport(context.Background(), rep); err != nil {
		return err
	}

	path, err := writeReport(cfg.Output.Dir, rep, outFormat)
	if err != nil {
		return err
	}

	printReportSummary(rep)
	fmt.Printf("\nWrote %s\n", path)
	if genErr != nil {
		color.Yellow("Generation interrupted: %v", genErr)
		return genErr
	}
	return nil
}

// projectDeviceInfo resolves the device profile from all entities extracted
// across the project's documents.
func projectDeviceInfo(ctx context.Context, a *app, project string) (map[string]string, error) {
	entities, err := a.store.GetProjectEntities(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("load project entities: %w", err)
	}
	return entity.Resolve(entities), nil
}

func writeReport(dir string, rep *model.Report, format string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s_%s.%s",
		strings.ToLower(string(rep.Type)), rep.ProjectID,
		rep.GeneratedAt.Format("2006-01-02_150405"), format)
	path := filepath.Join(dir, name)

	var data []byte
	switch format {
	case "json":
		var err error
		data, err = report.RenderJSON(rep)
		if err != nil {
			return "", err
		}
	default:
		data = []byte(report.RenderMarkdown(rep))
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

func printReportSummary(rep *model.Report) {
	fmt.Println()
	for _, sec := range rep.Sections {
		switch sec.Status {
		case model.SectionDone:
			color.Green("  ✓ %d. %s", sec.Ordinal, sec.Heading)
		case model.SectionFailed:
			color.Red("  ✗ %d. %s: %s", sec.Ordinal, sec.Heading, sec.FailReason)
		default:
			fmt.Printf("  - %d. %s (%s)\n", sec.Ordinal, sec.Heading, sec.Status)
		}
	}

	fmt.Println()
	switch rep.Status() {
	case model.ReportComplete:
		color.Green("Report complete (%d sections).", len(rep.Sections))
	default:
		color.Yellow("Report partial: %d of %d sections failed. Re-run with --retry-failed.",
			len(rep.FailedSections()), len(rep.Sections))
	}
}
