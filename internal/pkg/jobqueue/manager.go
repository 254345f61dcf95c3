// Package jobqueue runs the periodic background jobs of the service:
// flushing buffered view counters and refreshing cached statistics.
package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// Job is one periodic task.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Manager manages the background jobs
type Manager struct {
	jobs    []Job
	stopCh  chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		globalManager = NewManager()
	})
	return globalManager
}

// NewManager creates a manager without jobs.
func NewManager() *Manager {
	return &Manager{stopCh: make(chan struct{})}
}

// Register adds a job. Jobs registered while running start with the next Start.
func (m *Manager) Register(job Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job)
}

// Start launches one worker per registered job
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.running = true
	log.Infof("[JobQueue Manager] Starting %d background jobs", len(m.jobs))

	for _, job := range m.jobs {
		if job.Interval <= 0 || job.Run == nil {
			log.Warnf("[JobQueue Manager] Skipping job %q without interval or handler", job.Name)
			continue
		}
		m.wg.Add(1)
		go m.worker(ctx, job, m.stopCh)
	}

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops all workers and waits for running jobs to return
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	log.Info("[JobQueue Manager] Stopping background jobs...")
	close(m.stopCh)
	m.cancel()
	m.running = false
	m.mu.Unlock()

	m.wg.Wait()
	log.Info("[JobQueue Manager] Stopped successfully")
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// RunOnce executes the named job synchronously (admin use).
func (m *Manager) RunOnce(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	var job *Job
	for i := range m.jobs {
		if m.jobs[i].Name == name {
			job = &m.jobs[i]
			break
		}
	}
	m.mu.Unlock()
	if job == nil {
		return false, nil
	}
	return true, job.Run(ctx)
}

func (m *Manager) worker(ctx context.Context, job Job, stopCh <-chan struct{}) {
	defer m.wg.Done()
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	log.Infof("[JobQueue Manager] Started %s worker (interval: %v)", job.Name, job.Interval)

	for {
		select {
		case <-stopCh:
			log.Infof("[JobQueue Manager] %s worker stopping", job.Name)
			return
		case <-ticker.C:
			if err := job.Run(ctx); err != nil {
				log.Errorf("[JobQueue Manager] %s error: %v", job.Name, err)
			}
		}
	}
}
