package dashboard

import "sync"

// Inflight counts pending status updates and deletes per session and task.
// It only informs rendering; it never blocks a request.
type Inflight struct {
	mu sync.Mutex
	m  map[string]map[string]int
}

func NewInflight() *Inflight {
	return &Inflight{m: make(map[string]map[string]int)}
}

// Begin marks taskID as updating for sessionID and returns the func that
// clears the mark.
func (f *Inflight) Begin(sessionID, taskID string) (end func()) {
	f.mu.Lock()
	tasks := f.m[sessionID]
	if tasks == nil {
		tasks = make(map[string]int)
		f.m[sessionID] = tasks
	}
	tasks[taskID]++
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			tasks := f.m[sessionID]
			if tasks[taskID]--; tasks[taskID] <= 0 {
				delete(tasks, taskID)
			}
			if len(tasks) == 0 {
				delete(f.m, sessionID)
			}
		})
	}
}

// Updating returns the tasks of sessionID with a change in flight.
func (f *Inflight) Updating(sessionID string) map[string]bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]bool, len(f.m[sessionID]))
	for id := range f.m[sessionID] {
		out[id] = true
	}
	return out
}
