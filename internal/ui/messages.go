package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rbright/rehearse/internal/ipc"
	"github.com/rbright/rehearse/internal/session"
)

// SnapshotMsg carries the latest published session view.
type SnapshotMsg struct {
	Snapshot session.Snapshot
}

// DoneMsg reports the end of the session run.
type DoneMsg struct {
	Result       session.Result
	RecoveryPath string
}

// responseMsg is the controller's answer to a key action.
type responseMsg struct {
	Response ipc.Response
}

type feedClosedMsg struct{}

// Feed buffers snapshots for the UI. Only the newest unread snapshot is
// kept, so Observe never blocks the session goroutine.
type Feed struct {
	mu      sync.Mutex
	latest  *session.Snapshot
	notify  chan struct{}
	closed  chan struct{}
	closeMu sync.Once
}

// NewFeed returns an empty feed.
func NewFeed() *Feed {
	return &Feed{
		notify: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

// Observe implements session.Observer.
func (f *Feed) Observe(snap session.Snapshot) {
	f.mu.Lock()
	f.latest = &snap
	f.mu.Unlock()

	select {
	case f.notify <- struct{}{}:
	default:
	}
}

// Close wakes any waiting reader; later waits report the feed as closed.
func (f *Feed) Close() {
	f.closeMu.Do(func() { close(f.closed) })
}

// next blocks until a snapshot is available or the feed is closed.
func (f *Feed) next() (session.Snapshot, bool) {
	for {
		f.mu.Lock()
		if f.latest != nil {
			snap := *f.latest
			f.latest = nil
			f.mu.Unlock()
			return snap, true
		}
		f.mu.Unlock()

		select {
		case <-f.notify:
		case <-f.closed:
			return session.Snapshot{}, false
		}
	}
}

func waitForSnapshot(feed *Feed) tea.Cmd {
	return func() tea.Msg {
		snap, ok := feed.next()
		if !ok {
			return feedClosedMsg{}
		}
		return SnapshotMsg{Snapshot: snap}
	}
}

func waitForDone(done <-chan DoneMsg) tea.Cmd {
	return func() tea.Msg {
		return <-done
	}
}
