package wizard

import (
	"sync"
	"time"
)

// Notifier receives user-facing notifications raised by the controller
type Notifier interface {
	Success(message string)
	Error(message string)
}

// Level is the severity of a notification
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a message destined for the user
type Notification struct {
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationQueue is a Notifier that buffers notifications until drained
type NotificationQueue struct {
	mu    sync.Mutex
	items []Notification
	limit int
}

// NewNotificationQueue creates a queue that keeps at most limit pending
// notifications, dropping the oldest ones first. A limit <= 0 means unbounded.
func NewNotificationQueue(limit int) *NotificationQueue {
	return &NotificationQueue{limit: limit}
}

func (q *NotificationQueue) Success(message string) {
	q.push(LevelSuccess, message)
}

func (q *NotificationQueue) Error(message string) {
	q.push(LevelError, message)
}

func (q *NotificationQueue) push(level Level, message string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, Notification{Level: level, Message: message, CreatedAt: time.Now()})
	if q.limit > 0 && len(q.items) > q.limit {
		q.items = q.items[len(q.items)-q.limit:]
	}
}

// Drain returns and clears the pending notifications
func (q *NotificationQueue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	if items == nil {
		return []Notification{}
	}
	return items
}

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Error(string)   {}
