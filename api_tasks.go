package hrdesk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ListTasks returns the tasks overlapping [from, to].
func (c *Client) ListTasks(ctx context.Context, from, to time.Time) ([]Task, error) {
	q := url.Values{}
	q.Set("startDate", formatInstant(from))
	q.Set("endDate", formatInstant(to))

	var env envelopeOf[[]Task]
	if err := c.doJSON(ctx, http.MethodGet, "/task", q, nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// ListMonth returns the tasks of the month containing t.
func (c *Client) ListMonth(ctx context.Context, t time.Time) ([]Task, error) {
	from, to := MonthRange(t)
	return c.ListTasks(ctx, from, to)
}

// CreateTask posts a new task. Empty priority and status default to LOW and PENDING.
func (c *Client) CreateTask(ctx context.Context, t Task) error {
	if t.Priority == "" {
		t.Priority = PriorityLow
	}
	if t.TaskStatus == "" {
		t.TaskStatus = StatusPending
	}
	if errs := ValidateNewTask(t); len(errs) > 0 {
		return errs
	}
	t.TaskID = 0
	return fieldErrors(c.doJSON(ctx, http.MethodPost, "/task", nil, t, nil))
}

// UpdateTask patches the task identified by t.TaskID.
func (c *Client) UpdateTask(ctx context.Context, t Task) error {
	if t.TaskID <= 0 {
		return ValidationErrors{"taskId": "Task id is required."}
	}
	if errs := ValidateTaskUpdate(t); len(errs) > 0 {
		return errs
	}
	return fieldErrors(c.doJSON(ctx, http.MethodPatch, taskPath(t.TaskID), nil, t, nil))
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("hrdesk: invalid task id %d", id)
	}
	return c.doJSON(ctx, http.MethodDelete, taskPath(id), nil, nil, nil)
}

func taskPath(id int64) string {
	return "/task/" + strconv.FormatInt(id, 10)
}

func formatInstant(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
