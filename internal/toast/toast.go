// Package toast carries transient user-visible notifications from components
// to whatever renders them.
package toast

import "sync"

// Variant selects the styling of a toast.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Toast is a single notification.
type Toast struct {
	Title       string
	Description string
	Variant     Variant
}

// Notifier receives toasts.
type Notifier interface {
	Notify(t Toast)
}

// Error builds a destructive toast.
func Error(description string) Toast {
	return Toast{Title: "Error", Description: description, Variant: VariantDestructive}
}

// Success builds a default toast.
func Success(title, description string) Toast {
	return Toast{Title: title, Description: description, Variant: VariantDefault}
}

// maxQueued bounds a queue nobody drains.
const maxQueued = 20

// Queue buffers toasts until the next page render drains them.
type Queue struct {
	mu     sync.Mutex
	toasts []Toast
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Notify appends t, dropping the oldest toast when full.
func (q *Queue) Notify(t Toast) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.toasts) == maxQueued {
		q.toasts = q.toasts[1:]
	}
	q.toasts = append(q.toasts, t)
}

// Drain returns and clears the queued toasts.
func (q *Queue) Drain() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.toasts
	q.toasts = nil
	return out
}

// Discard drops every toast.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(Toast) {}
