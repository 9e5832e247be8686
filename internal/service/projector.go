package service

import (
	"sort"
	"time"

	"shared-planner/internal/model"
	"shared-planner/internal/recurrence"
)

// maxProjectionSteps bounds the walk per template in one projection.
const maxProjectionSteps = 400

// VirtualInstance is a display-only occurrence past the persisted horizon.
// It is never stored; Key equals the OccurrenceKey a persisted instance of the same
// template and day would have.
type VirtualInstance struct {
	Key           string          `json:"key"`
	TemplateID    uint            `json:"templateId"`
	Owner         model.Owner     `json:"-"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	ScheduledDate recurrence.Date `json:"scheduledDate"`
	Rule          recurrence.Doc  `json:"rule"`
}

// Project synthesizes virtual instances for the days of window that lie after
// horizonEnd. occupied holds, per template id, the days that already have a persisted
// instance (soft-deleted included); those days are skipped. Project never writes.
func Project(templates []model.Template, window recurrence.Window, horizonEnd recurrence.Date, occupied map[uint]map[recurrence.Date]bool) []VirtualInstance {
	projection, ok := beyondHorizon(window, horizonEnd)
	if !ok {
		return nil
	}

	var out []VirtualInstance
	for _, tpl := range templates {
		if !tpl.IsActive {
			continue
		}
		rule, err := tpl.DecodeRule()
		if err != nil || !recurrence.IsRecurring(rule) || recurrence.IsCompletionGated(rule) {
			continue
		}
		taken := occupied[tpl.ID]

		next, ok := recurrence.FirstOnOrAfter(rule, tpl.StartDate, projection.Start)
		for step := 0; ok && step < maxProjectionSteps; step++ {
			if next.After(projection.End) {
				break
			}
			if !taken[next] {
				out = append(out, VirtualInstance{
					Key:           recurrence.OccurrenceKey(tpl.ID, next),
					TemplateID:    tpl.ID,
					Owner:         tpl.Owner(),
					Title:         tpl.Title,
					Description:   tpl.Description,
					ScheduledDate: next,
					Rule:          tpl.Rule,
				})
			}
			var after recurrence.Date
			after, ok = recurrence.Resolve(rule, next)
			if ok && !after.After(next) {
				break
			}
			next = after
		}
	}
	return out
}

// beyondHorizon clips window to the days after horizonEnd.
func beyondHorizon(window recurrence.Window, horizonEnd recurrence.Date) (recurrence.Window, bool) {
	if !window.Valid() {
		return recurrence.Window{}, false
	}
	start := window.Start
	if !horizonEnd.IsZero() && !start.After(horizonEnd) {
		start = horizonEnd.AddDays(1)
	}
	if start.After(window.End) {
		return recurrence.Window{}, false
	}
	return recurrence.Window{Start: start, End: window.End}, true
}

// Entry is one row of a merged calendar view.
type Entry struct {
	Key                 string          `json:"key"`
	Date                recurrence.Date `json:"date"`
	Title               string          `json:"title"`
	Description         string          `json:"description,omitempty"`
	Virtual             bool            `json:"virtual"`
	TaskID              *uint           `json:"taskId,omitempty"`
	TemplateID          *uint           `json:"templateId,omitempty"`
	GroupID             *uint           `json:"groupId,omitempty"`
	Completed           bool            `json:"completed"`
	CompletedAt         *time.Time      `json:"completedAt,omitempty"`
	CompletedByMemberID *uint           `json:"completedByMemberId,omitempty"`
}

// Merge combines persisted and virtual instances. When both describe the same
// occurrence only the persisted one is kept. Entries are ordered by date, then
// persisted before virtual, then title.
func Merge(persisted []model.Task, virtual []VirtualInstance) []Entry {
	entries := make([]Entry, 0, len(persisted)+len(virtual))
	seen := make(map[string]bool, len(persisted))

	for i := range persisted {
		task := persisted[i]
		if task.IsDeleted {
			continue
		}
		key := task.OccurrenceKey()
		if key != "" {
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		id := task.ID
		entries = append(entries, Entry{
			Key:                 key,
			Date:                task.ScheduledDate,
			Title:               task.Title,
			Description:         task.Description,
			TaskID:              &id,
			TemplateID:          task.TemplateID,
			GroupID:             task.OwnerGroupID,
			Completed:           task.IsCompleted(),
			CompletedAt:         task.CompletedAt,
			CompletedByMemberID: task.CompletedByMemberID,
		})
	}

	for _, v := range virtual {
		if seen[v.Key] {
			continue
		}
		seen[v.Key] = true
		templateID := v.TemplateID
		entry := Entry{
			Key:         v.Key,
			Date:        v.ScheduledDate,
			Title:       v.Title,
			Description: v.Description,
			Virtual:     true,
			TemplateID:  &templateID,
		}
		if v.Owner.IsGroup() {
			groupID := v.Owner.ID
			entry.GroupID = &groupID
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Virtual != b.Virtual {
			return !a.Virtual
		}
		return a.Title < b.Title
	})
	return entries
}
