// Package tasks derives the list views shown on the dashboards and the
// request history screen. Every function returns a new slice and leaves
// its input untouched.
package tasks

import (
	"slices"
	"strings"

	"stratolift/internal/models"
)

type Bucket string

const (
	BucketAll        Bucket = "all"
	BucketPending    Bucket = "pending"
	BucketInProgress Bucket = "in-progress"
	BucketCompleted  Bucket = "completed"
)

// Contains reports whether a task status is shown under the bucket.
func (b Bucket) Contains(s models.TaskStatus) bool {
	switch b {
	case BucketPending:
		return s == models.TaskStatusPending || s == models.TaskStatusAssigned
	case BucketInProgress:
		return s == models.TaskStatusInProgress
	case BucketCompleted:
		return s == models.TaskStatusCompleted || s == models.TaskStatusResolved
	default:
		return true
	}
}

type SortOrder string

const (
	SortLatest   SortOrder = "latest"
	SortOldest   SortOrder = "oldest"
	SortPriority SortOrder = "priority"
)

// Filter is the state of the task list controls. Zero values mean "all"
// and "latest".
type Filter struct {
	Bucket   Bucket
	Priority models.TaskPriority
	Query    string
	Sort     SortOrder
}

func priorityRank(p models.TaskPriority) int {
	switch p {
	case models.TaskPriorityUrgent:
		return 0
	case models.TaskPriorityHigh:
		return 1
	case models.TaskPriorityMedium:
		return 2
	case models.TaskPriorityLow:
		return 3
	default:
		return 4
	}
}

func matches(t models.Task, q string) bool {
	return strings.Contains(strings.ToLower(t.Title), q) ||
		strings.Contains(strings.ToLower(t.Description), q) ||
		strings.Contains(strings.ToLower(t.TaskID), q)
}

// Apply narrows by bucket, then priority, then search text, and sorts.
func Apply(in []models.Task, f Filter) []models.Task {
	q := strings.ToLower(strings.TrimSpace(f.Query))

	out := make([]models.Task, 0, len(in))
	for _, t := range in {
		if !f.Bucket.Contains(t.Status) {
			continue
		}
		if f.Priority != "" && f.Priority != "all" && t.Priority != f.Priority {
			continue
		}
		if q != "" && !matches(t, q) {
			continue
		}
		out = append(out, t)
	}

	switch f.Sort {
	case SortOldest:
		slices.SortStableFunc(out, func(a, b models.Task) int { return a.CreatedAt.Compare(b.CreatedAt) })
	case SortPriority:
		slices.SortStableFunc(out, func(a, b models.Task) int { return priorityRank(a.Priority) - priorityRank(b.Priority) })
	default:
		slices.SortStableFunc(out, func(a, b models.Task) int { return b.CreatedAt.Compare(a.CreatedAt) })
	}
	return out
}

type Summary struct {
	Pending    int `json:"pending"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
	Total      int `json:"total"`
}

func Counts(in []models.Task) Summary {
	s := Summary{Total: len(in)}
	for _, t := range in {
		switch {
		case BucketPending.Contains(t.Status):
			s.Pending++
		case BucketInProgress.Contains(t.Status):
			s.InProgress++
		case BucketCompleted.Contains(t.Status):
			s.Completed++
		}
	}
	return s
}

// HistoryFilter keeps tasks whose type or status equals key. "all" and ""
// keep everything.
func HistoryFilter(in []models.Task, key string) []models.Task {
	if key == "" || key == "all" {
		return slices.Clone(in)
	}
	out := make([]models.Task, 0, len(in))
	for _, t := range in {
		if string(t.Type) == key || string(t.Status) == key {
			out = append(out, t)
		}
	}
	return out
}
