package task

// CompletedSet is the set of task IDs a user has fully completed, meaning
// the progress count has reached the task's required count. Availability
// uses the same completion threshold as point awarding so the two notions
// can never disagree.
type CompletedSet map[string]bool

// Contains reports whether the set includes the task ID.
func (s CompletedSet) Contains(taskID string) bool {
	return s[taskID]
}

// IsAvailable decides whether a task can currently accrue progress for a
// user. A task with no prerequisites is always available; otherwise every
// prerequisite must appear in the completed set.
func IsAvailable(completed CompletedSet, def Definition) bool {
	for _, prereq := range def.Prerequisites {
		if !completed.Contains(prereq) {
			return false
		}
	}
	return true
}

// FilterAvailable returns the definitions whose prerequisites are satisfied,
// preserving input order.
func FilterAvailable(completed CompletedSet, defs []Definition) []Definition {
	out := make([]Definition, 0, len(defs))
	for _, d := range defs {
		if IsAvailable(completed, d) {
			out = append(out, d)
		}
	}
	return out
}
