package output

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager serializes progress output from concurrent download workers. Each
// job gets a registered line; progress updates are throttled so a busy stream
// does not flood the terminal.
type Manager struct {
	mu   sync.Mutex
	jobs map[string]*jobState
}

type jobState struct {
	name       string
	lastRender time.Time
	startTime  time.Time
}

func NewManager() *Manager {
	return &Manager{jobs: make(map[string]*jobState)}
}

// Register adds a job line and returns its ID.
func (m *Manager) Register(name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.jobs[id] = &jobState{name: name, startTime: time.Now()}
	return id
}

// SetMessage prints a status line for the job.
func (m *Manager) SetMessage(id, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return
	}
	PrintPending(fmt.Sprintf("%s %s: %s", StyleSymbols["pending"], job.name, message))
}

// Progress renders a throttled progress line for the job.
func (m *Manager) Progress(id string, downloaded, total int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return
	}
	if time.Since(job.lastRender) < 500*time.Millisecond && downloaded < total {
		return
	}
	job.lastRender = time.Now()
	elapsed := time.Since(job.startTime).Seconds()
	width := min(getTerminalWidth()-40, 40)
	fmt.Printf("\r\033[K%s %s %s %s",
		FDebug(job.name),
		ProgressBar(downloaded, total, width),
		FDebug(FormatBytes(uint64(downloaded))),
		FDebug(FormatSpeed(downloaded, elapsed)))
}

// Complete prints the final success line for the job.
func (m *Manager) Complete(id, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return
	}
	fmt.Print("\r\033[K")
	PrintSuccess(fmt.Sprintf("%s %s: %s", StyleSymbols["pass"], job.name, message))
	delete(m.jobs, id)
}

// Error prints the failure line for the job.
func (m *Manager) Error(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return
	}
	fmt.Print("\r\033[K")
	PrintError(fmt.Sprintf("%s %s: %v", StyleSymbols["fail"], job.name, err))
	delete(m.jobs, id)
}
