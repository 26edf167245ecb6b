package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/clindraft/clindraft/internal/model"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a project's documents, index, and reports",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	ctx := context.Background()
	bold := color.New(color.Bold).SprintFunc()

	docs, err := a.store.ListDocuments(ctx, project)
	if err != nil {
		return err
	}

	byStatus := map[model.DocumentStatus]int{}
	byCategory := map[model.Category]int{}
	for _, d := range docs {
		byStatus[d.Status]++
		if d.Status == model.StatusIndexed {
			byCategory[d.Category]++
		}
	}

	fmt.Printf("%s %s\n\n", bold("Project:"), project)

	fmt.Printf("%s %d total", bold("Documents:"), len(docs))
	if n := byStatus[model.StatusIndexed]; n > 0 {
		fmt.Printf(", %d indexed", n)
	}
	if n := byStatus[model.StatusFailed]; n > 0 {
		fmt.Printf(", %s", color.RedString("%d failed", n))
	}
	fmt.Println()

	for _, info := range model.CategoryTable() {
		if n := byCategory[info.Category]; n > 0 {
			fmt.Printf("  %-25s %d\n", info.Category, n)
		}
	}

	n, err := a.idx.Count(ctx, project)
	if err != nil {
		return err
	}
	fmt.Printf("\n%s %d vectors\n", bold("Index:"), n)

	reports, err := a.store.ListReports(ctx, project)
	if err != nil {
		return err
	}
	fmt.Printf("\n%s %d\n", bold("Reports:"), len(reports))
	for _, r := range reports {
		status := string(r.Status())
		if r.Status() == model.ReportPartial {
			status = color.YellowString(status)
		}
		fmt.Printf("  %s  %-5s %s  %s\n",
			r.ID, r.Type, r.GeneratedAt.Format("2006-01-02 15:04"), status)
	}
	return nil
}
