package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgallion1/checkgest/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Convert documents as they are added to a directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	addConvertFlags(watchCmd)
	f := watchCmd.Flags()
	f.String("out-dir", "", "where checklist files go (default: the watched directory)")
	f.Bool("existing", false, "also convert files already in the directory")
	f.Duration("debounce", 500*time.Millisecond, "quiet time before a changed file is converted")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts, err := convertOptions(cmd, false)
	if err != nil {
		return err
	}
	f := cmd.Flags()
	outDir, _ := f.GetString("out-dir")
	existing, _ := f.GetBool("existing")
	debounce, _ := f.GetDuration("debounce")

	log := zap.L().With(zap.String("command", "watch"))
	conv, _ := newConverter(log)

	w := watch.New(conv, watch.Config{
		Dir:      args[0],
		OutDir:   outDir,
		Options:  opts,
		Debounce: debounce,
		Existing: existing,
	}, log)
	return w.Run(ctx)
}
