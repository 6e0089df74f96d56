package client

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/xpresstask/core/internal/domain/entities"
)

// SortField is a column the task list can be ordered by
type SortField string

const (
	SortByCreatedAt SortField = "created_at"
	SortByTitle     SortField = "title"
	SortByStatus    SortField = "status"
)

// ParseSortField accepts the column names used on the command line
func ParseSortField(s string) (SortField, error) {
	switch f := SortField(strings.ToLower(strings.TrimSpace(s))); f {
	case SortByCreatedAt, SortByTitle, SortByStatus:
		return f, nil
	case "":
		return SortByCreatedAt, nil
	default:
		return "", fmt.Errorf("unknown sort field %q", s)
	}
}

// TaskList is the client-side view of a set of tasks
type TaskList struct {
	Tasks      []entities.Task
	Field      SortField
	Descending bool
}

// Sort orders the tasks in place. Equal keys keep their relative order.
func (l *TaskList) Sort() {
	less := l.less()
	sort.SliceStable(l.Tasks, func(i, j int) bool {
		if l.Descending {
			return less(l.Tasks[j], l.Tasks[i])
		}
		return less(l.Tasks[i], l.Tasks[j])
	})
}

func (l *TaskList) less() func(a, b entities.Task) bool {
	switch l.Field {
	case SortByTitle:
		return func(a, b entities.Task) bool {
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		}
	case SortByStatus:
		return func(a, b entities.Task) bool {
			return a.Status.Rank() < b.Status.Rank()
		}
	default:
		return func(a, b entities.Task) bool {
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
}

// Render writes the list as an aligned table
func (l *TaskList) Render(w io.Writer) error {
	if len(l.Tasks) == 0 {
		_, err := fmt.Fprintln(w, "No tasks found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tOWNER\tCREATED\tDESCRIPTION")
	for _, task := range l.Tasks {
		owner := "-"
		if task.Owner != nil && task.Owner.Username != "" {
			owner = task.Owner.Username
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			task.ID,
			task.Title,
			task.Status.Display(),
			owner,
			task.CreatedAt.Local().Format("2006-01-02"),
			oneLine(task.Description),
		)
	}
	return tw.Flush()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
