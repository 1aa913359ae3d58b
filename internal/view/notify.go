package view

import "sync"

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notification is a transient message shown once on the next render.
type Notification struct {
	Level   Level
	Message string
}

type Notifications struct {
	mu    sync.Mutex
	items []Notification
}

func (n *Notifications) Push(level Level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, Notification{Level: level, Message: message})
}

// Drain returns the queued notifications and empties the queue.
func (n *Notifications) Drain() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	items := n.items
	n.items = nil
	return items
}
