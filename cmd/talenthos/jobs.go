package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/talenthos/talenthos/db"
	"github.com/talenthos/talenthos/jobs"
)

var (
	jobsQueue  string
	jobsStatus string
	jobsLimit  int
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect the durable job queues",
}

var jobsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List recent jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := db.Open(cfg.Database.Path, log)
		if err != nil {
			return err
		}
		defer conn.Close()

		var queue *string
		if jobsQueue != "" {
			queue = &jobsQueue
		}
		var status *jobs.Status
		if jobsStatus != "" {
			if !jobs.IsValidStatus(jobsStatus) {
				return fmt.Errorf("unknown status %q", jobsStatus)
			}
			s := jobs.Status(jobsStatus)
			status = &s
		}

		list, err := jobs.NewStore(conn).ListJobs(context.Background(), queue, status, jobsLimit)
		if err != nil {
			return err
		}
		printJobs(list)
		return nil
	},
}

var jobsFailedCmd = &cobra.Command{
	Use:   "failed",
	Short: "List permanently failed jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := db.Open(cfg.Database.Path, log)
		if err != nil {
			return err
		}
		defer conn.Close()

		list, err := jobs.NewStore(conn).ListFailed(context.Background(), jobsLimit)
		if err != nil {
			return err
		}
		printJobs(list)
		return nil
	},
}

func printJobs(list []*jobs.Job) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tQUEUE\tKEY\tSTATUS\tATTEMPTS\tRUN AT\tLAST ERROR")
	for _, j := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			j.ID, j.Queue, j.IdempotencyKey, j.Status,
			j.Attempts, j.MaxAttempts,
			j.RunAt.Format(time.RFC3339), j.LastError)
	}
	w.Flush()
}

func init() {
	jobsCmd.PersistentFlags().IntVar(&jobsLimit, "limit", 50, "maximum jobs to list")
	jobsLsCmd.Flags().StringVar(&jobsQueue, "queue", "", "filter by queue name")
	jobsLsCmd.Flags().StringVar(&jobsStatus, "status", "", "filter by status (queued, running, completed, failed)")

	jobsCmd.AddCommand(jobsLsCmd)
	jobsCmd.AddCommand(jobsFailedCmd)
}
