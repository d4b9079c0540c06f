package main

import (
	"github.com/spf13/cobra"

	"github.com/vango-dev/memo/internal/config"
	"github.com/vango-dev/memo/internal/errors"
	"github.com/vango-dev/memo/pkg/profile"
)

func exportCmd(load configLoader) *cobra.Command {
	var (
		ticks int
		dir   string
		toS3  bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Record a profile of the blog workload",
		Long: `Run the blog workload without pauses and export a profile: every
cycle report plus per-site render and skip counts, as JSON.

The profile is written to profile.dir, or uploaded to profile.s3.bucket
when --s3 is given or the bucket is configured. Uploads read credentials
from AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY.

Examples:
  vango-memo export
  vango-memo export --ticks=200 --dir=/tmp/profiles
  vango-memo export --s3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("ticks") {
				ticks = cfg.Demo.Ticks
			}
			if dir != "" {
				cfg.Profile.Dir = dir
			}

			s := newSession(cfg, logger)
			ctx := cmd.Context()
			if err := s.runSteps(ctx, ticks); err != nil {
				return err
			}

			store, err := profileStore(cfg, toS3 || cfg.UseS3())
			if err != nil {
				return err
			}
			p := s.recorder.Profile(s.sched.Sites())
			location, err := store.Save(ctx, p)
			if err != nil {
				return errors.New("M200").Wrap(err)
			}

			success("Exported profile %s", p.ID)
			info("%s", location)
			info("%d cycles, %.0f%% of child evaluations cut off", p.Summary.Cycles, p.Summary.SkipRatio*100)
			return nil
		},
	}

	cmd.Flags().IntVarP(&ticks, "ticks", "n", 0, "Number of workload steps (default from memo.json)")
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Export directory (default from memo.json)")
	cmd.Flags().BoolVar(&toS3, "s3", false, "Upload to the configured S3 bucket")

	return cmd
}

func profileStore(cfg *config.Config, toS3 bool) (profile.Store, error) {
	if !toS3 {
		store, err := profile.NewDiskStore(cfg.Profile.Dir)
		if err != nil {
			return nil, errors.New("M200").Wrap(err)
		}
		return store, nil
	}

	s3cfg := cfg.Profile.S3
	if s3cfg.Bucket == "" {
		return nil, errors.New("M100").
			WithDetail("profile.s3.bucket must be set to export to S3")
	}
	client := profile.NewS3Client(profile.S3Options{
		Region:   s3cfg.Region,
		Endpoint: s3cfg.Endpoint,
	})
	return profile.NewS3Store(client, s3cfg.Bucket, s3cfg.Prefix), nil
}
