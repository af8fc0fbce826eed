package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/internal/domain/repositories"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/draft"
	usecaseErrors "github.com/johnquangdev/meeting-scheduler/internal/usecase/errors"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/response"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/scheduling"
	"github.com/johnquangdev/meeting-scheduler/internal/usecase/sla"
	"github.com/johnquangdev/meeting-scheduler/pkg/config"
	"github.com/johnquangdev/meeting-scheduler/pkg/jobcontext"
)

// ReminderDrafter queues the reminder for a confirmed meeting
type ReminderDrafter interface {
	QueueReminder(ctx context.Context, req *entities.SchedulingRequest) (*entities.Draft, error)
}

// Settler closes out a meeting that has ended
type Settler interface {
	SettleMeeting(ctx context.Context, req *entities.SchedulingRequest) error
}

// Deps carries what the built-in jobs need
type Deps struct {
	Requests  repositories.SchedulingRequestRepository
	Responses response.Service
	Monitor   sla.Service
	Drafts    draft.Service
	Reminders ReminderDrafter
	Settler   Settler
	Rules     config.ReminderRules
	Logger    *zap.Logger
	Now       func() time.Time
}

// Definitions returns the six scheduled jobs bound to their schedules
func Definitions(cfg config.JobsConfig, deps Deps) []Definition {
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return []Definition{
		{Name: ProcessResponses, Schedule: cfg.ProcessResponses, Run: processResponses(deps)},
		{Name: SendFollowUps, Schedule: cfg.SendFollowUps, Run: sendFollowUps(deps)},
		{Name: SendReminders, Schedule: cfg.SendReminders, Run: sendReminders(deps)},
		{Name: CheckNoShows, Schedule: cfg.CheckNoShows, Run: checkNoShows(deps)},
		{Name: ExecuteDrafts, Schedule: cfg.ExecuteDrafts, Run: executeDrafts(deps)},
		{Name: ExpireDrafts, Schedule: cfg.ExpireDrafts, Run: expireDrafts(deps)},
	}
}

func processResponses(d Deps) Func {
	return func(ctx context.Context, batch int) (Result, error) {
		res, err := d.Responses.ProcessPending(ctx, batch)
		return Result{
			Metrics: map[string]int64{
				"processed": int64(res.Processed),
				"escalated": int64(res.Escalated),
				"drafted":   int64(res.Drafted),
				"skipped":   int64(res.Skipped),
				"failed":    int64(res.Failed),
			},
			Errors: res.Errors,
		}, err
	}
}

func sendFollowUps(d Deps) Func {
	return func(ctx context.Context, batch int) (Result, error) {
		res, err := d.Monitor.Sweep(ctx, batch)
		return Result{
			Metrics: map[string]int64{
				"checked":   int64(res.Checked),
				"warned":    int64(res.Warned),
				"overdue":   int64(res.Overdue),
				"escalated": int64(res.Escalated),
				"skipped":   int64(res.Skipped),
				"failed":    int64(res.Failed),
			},
			Errors: res.Errors,
		}, err
	}
}

// sendReminders queues one reminder per confirmed meeting starting inside the window
func sendReminders(d Deps) Func {
	return func(ctx context.Context, batch int) (Result, error) {
		now := d.Now()
		until := now.Add(time.Duration(d.Rules.WindowHours) * time.Hour)
		reqs, err := d.Requests.List(ctx, repositories.RequestFilters{
			Statuses:        []entities.RequestStatus{entities.StatusConfirmed},
			ConfirmedAfter:  &now,
			ConfirmedBefore: &until,
			Limit:           batch,
		})
		if err != nil {
			return Result{}, fmt.Errorf("failed to list confirmed requests: %w", err)
		}

		res := Result{Metrics: map[string]int64{"due": int64(len(reqs))}}
		for _, req := range reqs {
			if ctx.Err() != nil {
				break
			}
			if _, err := d.Reminders.QueueReminder(ctx, req); err != nil {
				d.Logger.Warn("⚠️ Failed to queue reminder", append(jobcontext.Fields(ctx),
					zap.String("request_id", req.ID.String()), zap.Error(err))...)
				res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", req.ID, err))
				continue
			}
			res.Metrics["queued"]++
		}
		return res, ctx.Err()
	}
}

// checkNoShows settles meetings whose end plus grace has passed
func checkNoShows(d Deps) Func {
	return func(ctx context.Context, batch int) (Result, error) {
		now := d.Now()
		grace := time.Duration(d.Rules.NoShowGraceMinutes) * time.Minute
		reqs, err := d.Requests.List(ctx, repositories.RequestFilters{
			Statuses:        []entities.RequestStatus{entities.StatusConfirmed, entities.StatusReminderSent},
			ConfirmedBefore: &now,
			Limit:           batch,
		})
		if err != nil {
			return Result{}, fmt.Errorf("failed to list started meetings: %w", err)
		}

		res := Result{Metrics: map[string]int64{"checked": int64(len(reqs))}}
		for _, req := range reqs {
			if ctx.Err() != nil {
				break
			}
			if scheduling.MeetingEnd(req).Add(grace).After(now) {
				continue
			}
			if err := d.Settler.SettleMeeting(ctx, req); err != nil {
				if usecaseErrors.IsConcurrencyConflict(err) {
					res.Metrics["skipped"]++
					continue
				}
				d.Logger.Warn("⚠️ Failed to settle meeting", append(jobcontext.Fields(ctx),
					zap.String("request_id", req.ID.String()), zap.Error(err))...)
				res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", req.ID, err))
				continue
			}
			if req.Status == entities.StatusNoShow {
				res.Metrics["no_show"]++
			} else {
				res.Metrics["completed"]++
			}
		}
		return res, ctx.Err()
	}
}

func executeDrafts(d Deps) Func {
	return func(ctx context.Context, batch int) (Result, error) {
		res, err := d.Drafts.ExecuteApproved(ctx, batch)
		return Result{
			Metrics: map[string]int64{
				"executed": int64(res.Executed),
				"failed":   int64(res.Failed),
				"skipped":  int64(res.Skipped),
			},
			Errors: res.Errors,
		}, err
	}
}

func expireDrafts(d Deps) Func {
	return func(ctx context.Context, batch int) (Result, error) {
		n, err := d.Drafts.ExpireStale(ctx, batch)
		return Result{Metrics: map[string]int64{"expired": int64(n)}}, err
	}
}
