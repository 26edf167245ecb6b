package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/clindraft/clindraft/internal/model"
	"github.com/clindraft/clindraft/internal/pipeline"
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Ingest documents into a project",
	Long: `Extract, classify, chunk, embed, and index the given files for a
project. Files are processed concurrently and fail independently; the
batch summary lists any file that could not be processed.

Example:
  clindraft ingest --project valve-2026 docs/*.pdf docs/fmea.xlsx`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	project, err := requireProject()
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progress := func(ev pipeline.ProgressEvent) {
		if ev.Err != nil {
			color.Red("  ✗ %s failed at %s: %v", ev.Filename, ev.Stage, ev.Err)
			return
		}
		if cfg.Output.Verbose {
			fmt.Printf("  → %s: %s\n", ev.Filename, ev.Stage)
		}
	}

	a, err := newApp(cfg, progress)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("Ingesting %d file(s) into project %q...\n", len(args), project)
	summary, err := a.pipe.IngestFiles(ctx, project, args)
	if err != nil {
		return err
	}

	fmt.Println()
	color.Green("Succeeded: %d", summary.Succeeded)
	if len(summary.Failed) > 0 {
		color.Red("Failed: %d", len(summary.Failed))
		for _, f := range summary.Failed {
			color.Red("  %s (%s): %s", f.Filename, f.Stage, f.Reason)
		}
	}
	return nil
}

// docsCmd groups per-document operations.
var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Inspect and manage a project's documents",
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the project's documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := requireProject()
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cfg, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		docs, err := a.store.ListDocuments(context.Background(), project)
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			fmt.Println("No documents.")
			return nil
		}

		for _, d := range docs {
			line := fmt.Sprintf("%s  %-30s  %-20s  conf=%.2f  %s",
				d.ID, d.Filename, d.Category, d.Confidence, d.Status)
			if d.Status == model.StatusFailed {
				color.Red("%s  [%s: %s]", line, d.FailedStage, d.FailReason)
			} else {
				fmt.Println(line)
			}
		}
		return nil
	},
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete <document-id>",
	Short: "Delete a document and its chunks, entities, and index entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cfg, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.pipe.DeleteDocument(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

var docsSetCategoryCmd = &cobra.Command{
	Use:   "set-category <document-id> <category>",
	Short: "Correct a document's category",
	Long: `Re-tag a misclassified document. The correction updates the document
and its index metadata in place; embeddings are not recomputed.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cfg, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.pipe.CorrectCategory(context.Background(), args[0], model.Category(args[1])); err != nil {
			return err
		}
		fmt.Printf("Document %s re-tagged as %s\n", args[0], args[1])
		return nil
	},
}

func init() {
	docsCmd.AddCommand(docsListCmd)
	docsCmd.AddCommand(docsDeleteCmd)
	docsCmd.AddCommand(docsSetCategoryCmd)
	rootCmd.AddCommand(docsCmd)
}
