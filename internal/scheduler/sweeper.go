package scheduler

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs the sweep every five minutes
const DefaultSchedule = "@every 5m"

// SessionSweeper removes expired pairing sessions
type SessionSweeper interface {
	CleanupExpired() int
}

// IdleSweeper closes silent connections
type IdleSweeper interface {
	CleanupIdle(timeout time.Duration) int
}

// Sweeper periodically reclaims expired sessions and idle sockets.
// Components never schedule their own cleanup; this is the only timer.
type Sweeper struct {
	cron        *cron.Cron
	sessions    SessionSweeper
	connections IdleSweeper
	idleTimeout time.Duration

	mu      sync.Mutex
	running bool
}

// New creates a sweeper for schedule (a cron expression such as "@every 5m")
func New(schedule string, sessions SessionSweeper, connections IdleSweeper, idleTimeout time.Duration) (*Sweeper, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	s := &Sweeper{
		cron:        cron.New(),
		sessions:    sessions,
		connections: connections,
		idleTimeout: idleTimeout,
	}
	if _, err := s.cron.AddFunc(schedule, func() { s.RunOnce() }); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins running sweeps in the background
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.cron.Start()
	log.Println("🧹 Sweeper started")
}

// Stop halts the schedule and waits for a running sweep to finish
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	log.Println("🧹 Sweeper stopped")
}

// RunOnce performs one sweep and returns what it reclaimed
func (s *Sweeper) RunOnce() (sessions, connections int) {
	if s.sessions != nil {
		sessions = s.sessions.CleanupExpired()
	}
	if s.connections != nil {
		connections = s.connections.CleanupIdle(s.idleTimeout)
	}
	if sessions > 0 || connections > 0 {
		log.Printf("🧹 Sweep: %d expired sessions, %d idle connections", sessions, connections)
	}
	return sessions, connections
}
