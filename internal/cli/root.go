// Package cli implements the clindraft command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	verbose   bool
	dbPath    string
	projectID string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "clindraft",
	Short: "ClinDraft - document indexing and report drafting for clinical evaluations",
	Long: `ClinDraft ingests a project's regulatory and clinical documents
(PDF, DOCX, XLSX, HTML, TXT), classifies and indexes them, and drafts
structured reports (CEP, CER, SSCP, LSR) section by section from the
retrieved evidence using a local LLM.

Generated text is a draft for expert review, never a finished
regulatory document.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("clindraft v0.1.0")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.clindraft/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&projectID, "project", "p", "", "project identifier")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(home + "/.clindraft")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match CLINDRAFT_*
	viper.SetEnvPrefix("CLINDRAFT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// requireProject returns the project id or a usage error. Every command
// that touches documents or reports is project scoped.
func requireProject() (string, error) {
	if projectID == "" {
		return "", fmt.Errorf("a project is required: pass --project <id>")
	}
	return projectID, nil
}
