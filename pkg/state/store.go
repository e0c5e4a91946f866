// Package state holds the single mutable record of the simulated
// device. All mutation goes through the narrow mutator API under one
// lock; readers get consistent point-in-time snapshots.
package state

import (
	"reflect"
	"sync"
	"time"

	"masssim/pkg/models"
)

// Snapshot is a consistent copy of the device state. Slices are copied
// so builders never observe a partially-updated view.
type Snapshot struct {
	Registered    bool
	Signal        int
	CPUTemp       int
	DeviceDate    time.Time
	Meters        []models.Meter
	Schedules     []models.Schedule
	Notifications []models.Notification
}

// Store is the process-wide device state. One instance, created at
// startup, lives until process exit.
//
// Mutators do no business validation: out-of-range values are accepted
// as-is, this is a simulator, not a validator.
type Store struct {
	mu            sync.RWMutex
	registered    bool
	signal        int
	cpuTemp       int
	deviceDate    time.Time
	meters        []models.Meter
	schedules     []models.Schedule
	notifications []models.Notification
}

// NewStore creates the store with the fixed power-on defaults of the
// simulated unit.
func NewStore() *Store {
	return &Store{
		signal:     13,
		cpuTemp:    17,
		deviceDate: time.Now(),
	}
}

// Snapshot returns a consistent copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Registered: s.registered,
		Signal:     s.signal,
		CPUTemp:    s.cpuTemp,
		DeviceDate: s.deviceDate,
	}
	snap.Meters = append(snap.Meters, s.meters...)
	snap.Schedules = append(snap.Schedules, s.schedules...)
	snap.Notifications = append(snap.Notifications, s.notifications...)
	return snap
}

// SetRegistered overwrites the provisioning flag.
func (s *Store) SetRegistered(registered bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registered = registered
}

// SetDeviceDate overwrites the timestamp the device believes is "now".
func (s *Store) SetDeviceDate(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deviceDate = t
}

// SetSignal overwrites the signal-strength indicator.
func (s *Store) SetSignal(signal int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signal = signal
}

// SetCPUTemp overwrites the CPU temperature.
func (s *Store) SetCPUTemp(temp int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cpuTemp = temp
}

// AppendMeter adds a meter descriptor. Append-only; insertion order is
// the only ordering guarantee.
func (s *Store) AppendMeter(m models.Meter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meters = append(s.meters, m)
}

// AppendSchedules adds schedule records.
func (s *Store) AppendSchedules(schedules []models.Schedule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules = append(s.schedules, schedules...)
}

// RemoveScheduleByID removes every schedule whose id equals the given
// value (linear scan, all matches). Ids are arbitrary decoded JSON, so
// equality must be deep: `==` on two `any` values panics for slice or
// map ids.
func (s *Store) RemoveScheduleByID(id any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.schedules[:0]
	for _, sched := range s.schedules {
		if !reflect.DeepEqual(sched.ID(), id) {
			kept = append(kept, sched)
		}
	}
	s.schedules = kept
}

// AppendNotifications adds notification records.
func (s *Store) AppendNotifications(notifications []models.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, notifications...)
}

// ClearNotifications drops every notification record.
func (s *Store) ClearNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = nil
}

// Counts reports how many meters, schedules and notifications are
// currently stored.
func (s *Store) Counts() (meters, schedules, notifications int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.meters), len(s.schedules), len(s.notifications)
}
