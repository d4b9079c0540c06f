package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/memo/pkg/profile"
	"github.com/vango-dev/memo/pkg/render"
)

func demoCmd(load configLoader) *cobra.Command {
	var (
		ticks    int
		interval time.Duration
		pretty   bool
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the blog workload and print the result",
		Long: `Run the blog workload: clock ticks with likes, sign-in toggles and
sort changes mixed in. Every cycle is logged at debug level; the final
view and a render/skip summary are printed at the end.

Examples:
  vango-memo demo
  vango-memo demo --ticks=50 --interval=0
  MEMO_LOG_LEVEL=debug vango-memo demo`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("ticks") {
				ticks = cfg.Demo.Ticks
			}
			if !cmd.Flags().Changed("interval") {
				interval, _ = cfg.TickInterval()
			}

			s := newSession(cfg, logger)
			ctx := cmd.Context()
			if err := s.sched.Mount(ctx); err != nil {
				return err
			}
			for i := 0; i < ticks; i++ {
				if err := s.step(ctx, i); err != nil {
					return err
				}
				if err := sleep(ctx, interval); err != nil {
					return err
				}
			}

			out, err := render.NewRenderer(render.RendererConfig{Pretty: pretty}).RenderToString(s.sched.View())
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, out)

			sum := profile.Summarize(s.recorder.Cycles())
			success("%d cycles, %d renders, %d skips (%.0f%% cut off)",
				sum.Cycles, sum.Renders, sum.Skips, sum.SkipRatio*100)
			return nil
		},
	}

	cmd.Flags().IntVarP(&ticks, "ticks", "n", 0, "Number of workload steps (default from memo.json)")
	cmd.Flags().DurationVarP(&interval, "interval", "i", 0, "Pause between steps (default from memo.json)")
	cmd.Flags().BoolVar(&pretty, "pretty", true, "Indent the printed view")

	return cmd
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}
