package tasks

// Board is a task list split into its status columns. Order within a column
// follows the order the API returned.
type Board struct {
	Pending   []Task
	Ongoing   []Task
	Completed []Task
}

func GroupByStatus(list []Task) Board {
	var b Board
	for _, t := range list {
		switch t.Status {
		case StatusPending:
			b.Pending = append(b.Pending, t)
		case StatusOngoing:
			b.Ongoing = append(b.Ongoing, t)
		case StatusCompleted:
			b.Completed = append(b.Completed, t)
		}
	}
	return b
}

// Column returns the tasks for one status.
func (b Board) Column(s Status) []Task {
	switch s {
	case StatusPending:
		return b.Pending
	case StatusOngoing:
		return b.Ongoing
	case StatusCompleted:
		return b.Completed
	}
	return nil
}

func (b Board) Len() int {
	return len(b.Pending) + len(b.Ongoing) + len(b.Completed)
}
