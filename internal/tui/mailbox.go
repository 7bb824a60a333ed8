package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// mailbox queues controller messages for the tea loop. push never blocks,
// so a publish step on the foreground cannot wait on the program.
type mailbox struct {
	mu    sync.Mutex
	queue []tea.Msg
	ready chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{ready: make(chan struct{}, 1)}
}

func (m *mailbox) push(msg tea.Msg) {
	m.mu.Lock()
	m.queue = append(m.queue, msg)
	m.mu.Unlock()
	select {
	case m.ready <- struct{}{}:
	default:
	}
}

// pop returns the oldest message, if any.
func (m *mailbox) pop() (tea.Msg, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return nil, false
	}
	msg := m.queue[0]
	m.queue[0] = nil
	m.queue = m.queue[1:]
	return msg, true
}

// next blocks until a message is queued or quit is closed.
func (m *mailbox) next(quit <-chan struct{}) (tea.Msg, bool) {
	for {
		if msg, ok := m.pop(); ok {
			return msg, true
		}
		select {
		case <-m.ready:
		case <-quit:
			return nil, false
		}
	}
}
