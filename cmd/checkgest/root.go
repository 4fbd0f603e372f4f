package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgallion1/checkgest/internal/config"
)

var (
	cfg        *config.Config
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "checkgest",
	Short: "Turn documents into prioritized checklists",
	Long: `Reads PDF, DOCX, XLSX, CSV, Markdown, HTML and text documents, infers their
section structure and emits a tree of sections with checklist items. Items can be
scored with a weighted priority model.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		if err := c.Validate(); err != nil {
			return eris.Wrap(err, "invalid configuration")
		}
		cfg = c

		if _, err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ./checkgest.yaml or ~/.config/checkgest/checkgest.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
