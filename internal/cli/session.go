package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rcliao/mem/internal/model"
	"github.com/rcliao/mem/internal/store"
	"github.com/rcliao/mem/internal/transcript"
)

func init() {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Track coding sessions",
	}

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Record the start of a session",
		Args:  cobra.NoArgs,
		Run:   runSessionStart,
	}
	startCmd.Flags().String("id", "", "Session id (default: a new UUID)")
	startCmd.Flags().StringP("project", "p", "", "Project path")
	startCmd.Flags().String("goal", "", "What the session is for")

	endCmd := &cobra.Command{
		Use:   "end",
		Short: "Record the end of a session and capture a summary memory",
		Long: "End a session. When a transcript is given its turns, duration and token usage are " +
			"stored on the session. A summary memory of type auto is captured either way. Ending a " +
			"session that has already ended changes nothing.",
		Args: cobra.NoArgs,
		Run:  runSessionEnd,
	}
	endCmd.Flags().String("id", "", "Session id")
	endCmd.Flags().StringP("project", "p", "", "Project path")
	endCmd.Flags().String("transcript", "", "Path to the session transcript (JSONL)")
	endCmd.Flags().Bool("hook", false, "Read session id, cwd and transcript path from hook JSON on stdin")

	sessionCmd.AddCommand(startCmd, endCmd)
	RootCmd.AddCommand(sessionCmd)
}

func runSessionStart(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetString("id")
	project, _ := cmd.Flags().GetString("project")
	goal, _ := cmd.Flags().GetString("goal")

	if id == "" {
		id = uuid.NewString()
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.StartSession(cmd.Context(), id, project, goal); err != nil {
		exitErr("start session", err)
	}
	sess, err := s.GetSession(cmd.Context(), id)
	if err != nil {
		exitErr("start session", err)
	}

	printJSON(cmd, sess)
}

func runSessionEnd(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetString("id")
	project, _ := cmd.Flags().GetString("project")
	transcriptPath, _ := cmd.Flags().GetString("transcript")
	hook, _ := cmd.Flags().GetBool("hook")

	if hook {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			exitErr("read hook", err)
		}
		h, err := transcript.ParseHook(data)
		if err != nil {
			exitErr("parse hook", err)
		}
		if h.StopHookActive {
			printJSON(cmd, map[string]interface{}{"ok": true, "skipped": true})
			return
		}
		if id == "" {
			id = h.SessionID
		}
		if project == "" {
			project = h.Cwd
		}
		if transcriptPath == "" {
			transcriptPath = h.TranscriptPath
		}
	}
	if id == "" {
		exitErr("end session", fmt.Errorf("%w: session id is required", store.ErrInvalidInput))
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ctx := cmd.Context()

	// Hooks may end sessions that were never started explicitly.
	if err := s.StartSession(ctx, id, project, ""); err != nil {
		exitErr("end session", err)
	}
	ended, err := s.EndSession(ctx, id)
	if err != nil {
		exitErr("end session", err)
	}
	if !ended {
		sess, err := s.GetSession(ctx, id)
		if err != nil {
			exitErr("end session", err)
		}
		printJSON(cmd, map[string]interface{}{"ok": true, "skipped": true, "session": sess})
		return
	}

	var analytics *model.SessionAnalytics
	if transcriptPath != "" {
		a, err := transcript.ParseFile(transcriptPath)
		if err != nil {
			log.Warn().Err(err).Str("transcript", transcriptPath).Msg("Skipping transcript analytics")
		} else if err := s.UpdateSessionAnalytics(ctx, id, *a); err != nil {
			exitErr("store analytics", err)
		} else {
			analytics = a
		}
	}

	sess, err := s.GetSession(ctx, id)
	if err != nil {
		exitErr("end session", err)
	}
	if project == "" {
		project = sess.Project
	}

	title, content := transcript.SessionNote(project, analytics, time.Now())
	m, err := s.CaptureMemory(ctx, store.SaveParams{
		Title:     title,
		Content:   content,
		Project:   project,
		SessionID: id,
	})
	if err != nil {
		exitErr("capture session memory", err)
	}

	printJSON(cmd, map[string]interface{}{
		"session": sess,
		"memory":  m,
	})
}
