package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/talenthos/talenthos/db"
	"github.com/talenthos/talenthos/evaluate"
	"github.com/talenthos/talenthos/interview"
	"github.com/talenthos/talenthos/jobs"
	"github.com/talenthos/talenthos/lifecycle"
	"github.com/talenthos/talenthos/notify"
	"github.com/talenthos/talenthos/token"
)

// openService builds the orchestrator and its stores against the
// configured database. The caller owns the connection.
func openService() (*lifecycle.Service, *sql.DB, error) {
	conn, err := db.Open(cfg.Database.Path, log)
	if err != nil {
		return nil, nil, err
	}

	service := lifecycle.NewService(
		interview.NewStore(conn),
		token.NewIssuer(conn),
		jobs.NewQueue(conn),
		notify.NewLogMailer(log),
		notify.NewDeliveryStore(conn),
		lifecycle.Config{
			TokenTTL:          time.Duration(cfg.Token.TTLHours) * time.Hour,
			ReminderLead:      time.Duration(cfg.Token.ReminderLeadHours) * time.Hour,
			AssessmentBaseURL: cfg.Mail.AssessmentURL,
		},
		log,
	)
	return service, conn, nil
}

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Manage interview lifecycles",
}

var (
	createCandidateID string
	createName        string
	createEmail       string
	createNotes       string
	createWelcome     bool
)

var interviewCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an interview for a candidate",
	RunE: func(cmd *cobra.Command, args []string) error {
		service, conn, err := openService()
		if err != nil {
			return err
		}
		defer conn.Close()

		ctx := context.Background()
		iv, err := service.CreateInterview(ctx, createCandidateID, createName, createEmail, createNotes)
		if err != nil {
			return err
		}
		if createWelcome {
			if err := service.WelcomeCandidate(ctx, createCandidateID, createName, createEmail); err != nil {
				return err
			}
		}
		fmt.Println(iv.ID)
		return nil
	},
}

var scheduleAt string

var interviewScheduleCmd = &cobra.Command{
	Use:   "schedule <interview-id>",
	Short: "Schedule an interview and queue the candidate notification",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		at, err := time.Parse(time.RFC3339, scheduleAt)
		if err != nil {
			return fmt.Errorf("invalid --at, want RFC 3339: %w", err)
		}

		service, conn, err := openService()
		if err != nil {
			return err
		}
		defer conn.Close()

		ctx := context.Background()
		if err := interview.NewStore(conn).SetSchedule(ctx, args[0], at.UTC()); err != nil {
			return err
		}
		return service.RequestTransition(ctx, args[0], interview.StatusScheduled)
	},
}

var interviewTokenCmd = &cobra.Command{
	Use:   "token <interview-id>",
	Short: "Issue an assessment token, replacing any earlier one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		service, conn, err := openService()
		if err != nil {
			return err
		}
		defer conn.Close()

		t, err := service.IssueAssessmentToken(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s\texpires %s\n", t.Value, t.ExpiresAt.Format(time.RFC3339))
		return nil
	},
}

var interviewStartCmd = &cobra.Command{
	Use:   "start <token>",
	Short: "Record the candidate entering the assessment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		service, conn, err := openService()
		if err != nil {
			return err
		}
		defer conn.Close()
		return service.StartAssessment(context.Background(), args[0])
	},
}

var interviewCompleteCmd = &cobra.Command{
	Use:   "complete <token>",
	Short: "Record the candidate submitting the assessment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		service, conn, err := openService()
		if err != nil {
			return err
		}
		defer conn.Close()
		return service.CompleteAssessment(context.Background(), args[0])
	},
}

var interviewEvaluateCmd = &cobra.Command{
	Use:   "evaluate <interview-id>",
	Short: "Queue an AI evaluation for a completed interview",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		service, conn, err := openService()
		if err != nil {
			return err
		}
		defer conn.Close()
		return service.RequestEvaluation(context.Background(), args[0])
	},
}

var interviewShowCmd = &cobra.Command{
	Use:   "show <interview-id>",
	Short: "Print an interview and its evaluation, if any",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := db.Open(cfg.Database.Path, log)
		if err != nil {
			return err
		}
		defer conn.Close()

		ctx := context.Background()
		iv, err := interview.NewStore(conn).Get(ctx, args[0])
		if err != nil {
			return err
		}
		ev, err := evaluate.NewStore(conn).GetByInterview(ctx, args[0])
		if err != nil {
			return err
		}

		out := struct {
			Interview  *interview.Interview `json:"interview"`
			Evaluation *evaluate.Evaluation `json:"evaluation,omitempty"`
		}{iv, ev}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	interviewCreateCmd.Flags().StringVar(&createCandidateID, "candidate", "", "candidate id")
	interviewCreateCmd.Flags().StringVar(&createName, "name", "", "candidate name")
	interviewCreateCmd.Flags().StringVar(&createEmail, "email", "", "candidate email")
	interviewCreateCmd.Flags().StringVar(&createNotes, "notes", "", "interviewer notes")
	interviewCreateCmd.Flags().BoolVar(&createWelcome, "welcome", false, "also queue the welcome mail")
	interviewCreateCmd.MarkFlagRequired("candidate")
	interviewCreateCmd.MarkFlagRequired("email")

	interviewScheduleCmd.Flags().StringVar(&scheduleAt, "at", "", "interview time, RFC 3339")
	interviewScheduleCmd.MarkFlagRequired("at")

	interviewCmd.AddCommand(interviewCreateCmd)
	interviewCmd.AddCommand(interviewScheduleCmd)
	interviewCmd.AddCommand(interviewTokenCmd)
	interviewCmd.AddCommand(interviewStartCmd)
	interviewCmd.AddCommand(interviewCompleteCmd)
	interviewCmd.AddCommand(interviewEvaluateCmd)
	interviewCmd.AddCommand(interviewShowCmd)
}
