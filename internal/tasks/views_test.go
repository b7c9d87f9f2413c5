package tasks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"stratolift/internal/models"
)

var base = time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)

func fixture() []models.Task {
	return []models.Task{
		{ID: "1", TaskID: "TSK-001", Type: models.TaskTypeMaintenance, Title: "Door sensor", Description: "Door closes slowly", Status: models.TaskStatusPending, Priority: models.TaskPriorityLow, CreatedAt: base},
		{ID: "2", TaskID: "TSK-002", Type: models.TaskTypeSOS, Title: "Stuck cabin", Description: "Passengers trapped", Status: models.TaskStatusAssigned, Priority: models.TaskPriorityUrgent, CreatedAt: base.Add(time.Hour)},
		{ID: "3", TaskID: "TSK-003", Type: models.TaskTypeService, Title: "Annual check", Description: "Cable inspection", Status: models.TaskStatusInProgress, Priority: models.TaskPriorityMedium, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "4", TaskID: "TSK-004", Type: models.TaskTypeService, Title: "Noise", Description: "Grinding sound in shaft", Status: models.TaskStatusResolved, Priority: models.TaskPriorityHigh, CreatedAt: base.Add(3 * time.Hour)},
		{ID: "5", TaskID: "TSK-005", Type: models.TaskTypeMaintenance, Title: "Lighting", Description: "Cabin light flickers", Status: models.TaskStatusCompleted, Priority: models.TaskPriorityMedium, CreatedAt: base.Add(4 * time.Hour)},
		{ID: "6", TaskID: "TSK-006", Type: models.TaskTypeService, Title: "Buttons", Description: "Floor 3 button dead", Status: models.TaskStatusUnresolved, CreatedAt: base.Add(5 * time.Hour)},
	}
}

func ids(in []models.Task) []string {
	out := make([]string, len(in))
	for i, t := range in {
		out[i] = t.ID
	}
	return out
}

func TestApply(t *testing.T) {
	tests := []struct {
		name string
		f    Filter
		want []string
	}{
		{"defaults to latest first", Filter{}, []string{"6", "5", "4", "3", "2", "1"}},
		{"oldest", Filter{Sort: SortOldest}, []string{"1", "2", "3", "4", "5", "6"}},
		{"pending bucket includes assigned", Filter{Bucket: BucketPending}, []string{"2", "1"}},
		{"in progress", Filter{Bucket: BucketInProgress}, []string{"3"}},
		{"completed bucket includes resolved", Filter{Bucket: BucketCompleted, Sort: SortOldest}, []string{"4", "5"}},
		{"priority filter", Filter{Priority: models.TaskPriorityMedium}, []string{"5", "3"}},
		{"priority all", Filter{Priority: "all", Sort: SortOldest}, []string{"1", "2", "3", "4", "5", "6"}},
		{"search title case insensitive", Filter{Query: "  CABIN "}, []string{"5", "2"}},
		{"search task id", Filter{Query: "tsk-004"}, []string{"4"}},
		{"search description", Filter{Query: "shaft"}, []string{"4"}},
		{"priority sort is stable", Filter{Sort: SortPriority}, []string{"2", "4", "3", "5", "1", "6"}},
		{"bucket then search", Filter{Bucket: BucketPending, Query: "door"}, []string{"1"}},
		{"no match", Filter{Query: "escalator"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Apply(fixture(), tt.f)))
		})
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	in := fixture()
	snapshot := fixture()

	_ = Apply(in, Filter{Sort: SortPriority})
	_ = HistoryFilter(in, "service")

	assert.Equal(t, snapshot, in)
}

func TestCounts(t *testing.T) {
	assert.Equal(t, Summary{Pending: 2, InProgress: 1, Completed: 2, Total: 6}, Counts(fixture()))
	assert.Equal(t, Summary{}, Counts(nil))
}

func TestHistoryFilter(t *testing.T) {
	assert.Equal(t, []string{"3", "4", "6"}, ids(HistoryFilter(fixture(), "service")))
	assert.Equal(t, []string{"4"}, ids(HistoryFilter(fixture(), "resolved")))
	assert.Len(t, HistoryFilter(fixture(), "all"), 6)
	assert.Len(t, HistoryFilter(fixture(), ""), 6)
	assert.Empty(t, HistoryFilter(fixture(), "escalator"))
}
