package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	jobdomain "signdesk-backend/internal/job/domain"
)

const commandUsage = `Commands:
/jobs - list active jobs
/stage <job> <stage> - move a job (pending, in_production, ready, installed, completed, invoiced, paid)
/eta <job> <YYYY-MM-DD> - set a job's ETA
/cancel - abandon the current edit or draft`

func (w *Workflow) handleCommand(ctx context.Context, chatID int64, text string) {
	fields := strings.Fields(text)
	switch fields[0] {
	case "/jobs":
		w.listJobs(ctx, chatID)
	case "/stage":
		if len(fields) != 3 {
			w.say(ctx, chatID, "Usage: /stage <job> <stage>")
			return
		}
		w.setStage(ctx, chatID, fields[1], fields[2])
	case "/eta":
		if len(fields) != 3 {
			w.say(ctx, chatID, "Usage: /eta <job> <YYYY-MM-DD>")
			return
		}
		w.setEta(ctx, chatID, fields[1], fields[2])
	case "/cancel":
		w.sessions.Clear(chatID)
		w.staged.ClearReply(chatID)
		w.staged.ClearCompletion(chatID)
		w.say(ctx, chatID, "Cancelled.")
	case "/start", "/help":
		w.say(ctx, chatID, commandUsage)
	default:
		w.say(ctx, chatID, "Unknown command.\n"+commandUsage)
	}
}

func (w *Workflow) listJobs(ctx context.Context, chatID int64) {
	jobs, err := w.jobs.FindActive("")
	if err != nil {
		w.say(ctx, chatID, fmt.Sprintf("Cannot list jobs: %v", err))
		return
	}
	if len(jobs) == 0 {
		w.say(ctx, chatID, "No active jobs.")
		return
	}

	var b strings.Builder
	b.WriteString("Active jobs:\n")
	for _, job := range jobs {
		fmt.Fprintf(&b, "\n%s  %s\n  stage: %s", shortID(job.ID), truncate(job.Description, 60), job.Stage)
		if job.ETA != nil {
			fmt.Fprintf(&b, ", ETA %s", job.ETA.Format("2006-01-02"))
		}
	}
	w.say(ctx, chatID, b.String())
}

func (w *Workflow) setStage(ctx context.Context, chatID int64, prefix, stageArg string) {
	stage, ok := jobdomain.ParseStage(stageArg)
	if !ok {
		w.say(ctx, chatID, fmt.Sprintf("Unknown stage %q.\nUsage: /stage <job> <stage>", stageArg))
		return
	}

	job, ok := w.resolveJob(ctx, chatID, prefix)
	if !ok {
		return
	}

	job.Stage = stage
	if err := w.jobs.Update(job); err != nil {
		w.say(ctx, chatID, fmt.Sprintf("Stage update failed: %v", err))
		return
	}
	w.say(ctx, chatID, fmt.Sprintf("Job %s is now %s.", shortID(job.ID), stage))

	if stage == jobdomain.StageCompleted {
		w.StartCompletion(ctx, chatID, job.ID)
	}
}

func (w *Workflow) setEta(ctx context.Context, chatID int64, prefix, dateArg string) {
	eta, err := time.Parse("2006-01-02", dateArg)
	if err != nil {
		w.say(ctx, chatID, fmt.Sprintf("Cannot parse date %q.\nUsage: /eta <job> <YYYY-MM-DD>", dateArg))
		return
	}

	job, ok := w.resolveJob(ctx, chatID, prefix)
	if !ok {
		return
	}

	job.ETA = &eta
	job.EtaReminderSent = false
	if err := w.jobs.Update(job); err != nil {
		w.say(ctx, chatID, fmt.Sprintf("ETA update failed: %v", err))
		return
	}
	w.say(ctx, chatID, fmt.Sprintf("Job %s ETA set to %s.", shortID(job.ID), eta.Format("2006-01-02")))
}

// resolveJob matches a shortened job ID against active jobs. The prefix must
// identify exactly one job.
func (w *Workflow) resolveJob(ctx context.Context, chatID int64, prefix string) (*jobdomain.Job, bool) {
	matches, err := w.jobs.FindByIDPrefix(prefix)
	if err != nil {
		w.say(ctx, chatID, fmt.Sprintf("Job lookup failed: %v", err))
		return nil, false
	}
	switch len(matches) {
	case 0:
		w.say(ctx, chatID, fmt.Sprintf("No active job matches %q. See /jobs.", prefix))
		return nil, false
	case 1:
		return matches[0], true
	default:
		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = shortID(m.ID)
		}
		w.say(ctx, chatID, fmt.Sprintf("%q is ambiguous: %s. Use more characters.", prefix, strings.Join(ids, ", ")))
		return nil, false
	}
}
