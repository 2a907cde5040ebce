package commands

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/wielermanager/internal/collector"
	"github.com/wonny/wielermanager/internal/scheduler"
	"github.com/wonny/wielermanager/internal/scheduler/jobs"
	"github.com/wonny/wielermanager/pkg/redis"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Scheduler management",
	Long: `Starts the scheduler or runs its jobs by hand.

Subcommands:
  start   - start the scheduler
  list    - list registered jobs
  run     - run one job now

Example:
  go run ./cmd/planner scheduler start
  go run ./cmd/planner scheduler list
  go run ./cmd/planner scheduler run collect`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler",
		Long: `Starts the scheduler with every job registered (Europe/Brussels time).

Registered jobs:
- collect: every day at 06:00 (start lists and prices)
- replan:  every day at 07:00 (re-optimize the remaining races)
- results: every day at 22:30 (race results and plan scoring)

Stop the scheduler with Ctrl+C.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run one job now",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Wielermanager Scheduler ===")

	a, sched, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	printJobs(sched)
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	printJobs(sched)
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	a, sched, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	fmt.Printf("Running job: %s\n", jobName)
	result, err := sched.RunJob(jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("❌ %s failed after %d attempts: %s", jobName, result.Attempts, result.Error)
	}

	fmt.Printf("✅ %s finished in %s\n", jobName, result.Duration.Round(time.Millisecond))
	return nil
}

func printJobs(sched *scheduler.Scheduler) {
	stats := sched.GetJobStats()
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("Registered jobs:")
	for _, name := range names {
		st := stats[name]
		next := "-"
		if st.NextRun != nil {
			next = st.NextRun.Format("2006-01-02 15:04")
		}
		fmt.Printf("  - %-8s %-16s next %s\n", name, st.Schedule, next)
	}
}

func initScheduler(cmd *cobra.Command) (*app, *scheduler.Scheduler, error) {
	a, err := newApp(cmd.Context())
	if err != nil {
		return nil, nil, err
	}

	sched := scheduler.New(a.log, scheduler.DefaultOptions())

	all := []scheduler.Job{
		jobs.NewCollectJob(a.collector, a.snapshots, collector.DefaultConfig(), a.log),
		jobs.NewReplanJob(a.snapshots, a.plans, a.rules.Rules(), a.log),
		jobs.NewResultsJob(a.collector, a.snapshots, a.plans, a.reportSink(), a.log),
	}
	for _, job := range all {
		if err := sched.AddJob(job); err != nil {
			a.Close()
			return nil, nil, err
		}
	}

	return a, sched, nil
}

// reportSink returns an untyped nil without a database
func (a *app) reportSink() jobs.ReportSink {
	if a.reports == nil {
		return nil
	}
	return a.reports
}

// limiter bounds solve requests per client
func (a *app) limiter() *redis.RateLimiter {
	return redis.NewRateLimiter(a.redis, cachePrefix)
}
