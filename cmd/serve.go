package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/tgharvest/internal/logger"
	"github.com/ibeckermayer/tgharvest/internal/scheduler"
)

func newServeCmd() *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline on the configured cron schedule",
		Long: `Run the pipeline on schedule.cron until interrupted.
SIGHUP reloads the config file and reschedules; SIGINT or SIGTERM stops
after the current run finishes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = e.logger.Sync() }()

			a, cleanup, err := e.newApp(appOptions{database: true, email: true})
			if err != nil {
				return err
			}
			defer cleanup()

			sched, err := scheduler.New(e.cfg.Schedule.Timezone, e.logger)
			if err != nil {
				return err
			}

			job := func(ctx context.Context) error {
				_, err := a.Run(ctx)
				return err
			}
			if err := sched.AddPipelineJob(e.cfg.Schedule.Cron, job); err != nil {
				return err
			}

			sched.Start()
			logNextRuns(e.logger, sched)

			if runNow {
				go func() {
					if err := sched.RunNow(cmd.Context(), scheduler.PipelineJobName, job); err != nil {
						e.logger.Error("Initial run failed", logger.Error(err))
					}
				}()
			}

			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
			defer signal.Stop(sigs)

			for {
				select {
				case <-cmd.Context().Done():
					<-sched.Stop().Done()
					return nil
				case sig := <-sigs:
					if sig != syscall.SIGHUP {
						e.logger.Info("Shutting down", logger.String("signal", sig.String()))
						<-sched.Stop().Done()
						return nil
					}

					if err := a.ReloadConfig(); err != nil {
						e.logger.Error("Config reload failed, keeping previous config", logger.Error(err))
						continue
					}
					cfg := a.Config()
					if cfg.Schedule.Timezone != sched.Location().String() {
						e.logger.Warn("Timezone change needs a restart",
							logger.String("current", sched.Location().String()),
							logger.String("configured", cfg.Schedule.Timezone),
						)
					}
					if err := sched.AddPipelineJob(cfg.Schedule.Cron, job); err != nil {
						e.logger.Error("Reschedule failed", logger.Error(err))
						continue
					}
					logNextRuns(e.logger, sched)
				}
			}
		},
	}

	cmd.Flags().BoolVar(&runNow, "now", false, "also run the pipeline once at startup")
	return cmd
}

func logNextRuns(log logger.Logger, sched *scheduler.Scheduler) {
	for _, job := range sched.ListJobs() {
		log.Info("Scheduled", logger.String("job", job.Name), logger.String("next_run", job.NextRun.String()))
	}
}
