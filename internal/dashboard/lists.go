package dashboard

import (
	"sync"
	"time"

	"github.com/s1natex/todo-web-GO/internal/tasks"
)

const maxCachedLists = 10000

type cachedList struct {
	userID string
	list   []tasks.Task
	at     time.Time
}

// Lists keeps the last task list fetched for each session so a page can be
// redrawn without asking the API again. Entries are replaced wholesale,
// belong to the user they were fetched for and expire after ttl.
type Lists struct {
	mu  sync.Mutex
	m   map[string]cachedList
	ttl time.Duration
	now func() time.Time
}

// NewLists returns a cache whose entries live for ttl. A ttl of zero keeps
// entries until they are evicted or dropped.
func NewLists(ttl time.Duration) *Lists {
	return &Lists{m: make(map[string]cachedList), ttl: ttl, now: time.Now}
}

// Get returns the list cached for sessionID if it was fetched for userID
// and has not expired.
func (l *Lists) Get(sessionID, userID string) ([]tasks.Task, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.m[sessionID]
	if !ok {
		return nil, false
	}
	if e.userID != userID || l.expired(e) {
		delete(l.m, sessionID)
		return nil, false
	}
	return e.list, true
}

func (l *Lists) Put(sessionID, userID string, list []tasks.Task) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.m[sessionID]; !ok && len(l.m) >= maxCachedLists {
		l.evictLocked()
	}
	l.m[sessionID] = cachedList{userID: userID, list: list, at: l.now()}
}

func (l *Lists) Drop(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.m, sessionID)
}

func (l *Lists) expired(e cachedList) bool {
	return l.ttl > 0 && l.now().Sub(e.at) > l.ttl
}

// evictLocked drops every expired entry, or the oldest one if none has
// expired.
func (l *Lists) evictLocked() {
	var oldestID string
	var oldest time.Time
	removed := false
	for id, e := range l.m {
		if l.expired(e) {
			delete(l.m, id)
			removed = true
			continue
		}
		if oldestID == "" || e.at.Before(oldest) {
			oldestID, oldest = id, e.at
		}
	}
	if !removed && oldestID != "" {
		delete(l.m, oldestID)
	}
}
