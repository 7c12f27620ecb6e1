package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/womat/debug"

	"snesio/pkg/state"
)

var (
	ErrUnknownPort = errors.New("unknown port")
	ErrPortRunning = errors.New("port already running")
)

// Manager owns the pipelines of all ports. Each port keeps its state store
// across restarts, so the last committed value stays readable after StopPort.
type Manager struct {
	hw Hardware

	mu    sync.Mutex
	ports map[int]*entry
}

type entry struct {
	store    *state.Store
	pipeline *Pipeline
}

// NewManager returns a manager acquiring lines from hw.
func NewManager(hw Hardware) *Manager {
	return &Manager{
		hw:    hw,
		ports: map[int]*entry{},
	}
}

// StartPort builds and starts the pipeline of port id.
func (m *Manager) StartPort(id int, cfg Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.ports[id]
	if !ok {
		e = &entry{store: state.New()}
	}
	if e.pipeline != nil && e.pipeline.Status() == Running {
		return fmt.Errorf("port %d: %w", id, ErrPortRunning)
	}

	p, err := New(id, m.hw, cfg, e.store)
	if err != nil {
		debug.ErrorLog.Printf("can't start port %d: %v", id, err)
		return err
	}

	e.pipeline = p
	m.ports[id] = e
	p.Start()
	return nil
}

// StopPort stops the pipeline of port id after its current iteration.
// Stopping a stopped port is a no-op.
func (m *Manager) StopPort(id int) error {
	p, err := m.pipeline(id)
	if err != nil {
		return err
	}
	return p.Stop()
}

// Trigger requests a capture on a manual cadence port.
func (m *Manager) Trigger(id int) error {
	p, err := m.pipeline(id)
	if err != nil {
		return err
	}
	return p.Trigger()
}

// ControllerState returns the last committed value of port id. Before the
// first commit, and for unknown ports, it returns state.Default. It never blocks
// on the pipeline.
func (m *Manager) ControllerState(id int) uint16 {
	m.mu.Lock()
	e, ok := m.ports[id]
	m.mu.Unlock()

	if !ok {
		return state.Default
	}
	return e.store.Load()
}

// Ports returns a snapshot of all ports ordered by id.
func (m *Manager) Ports() []Info {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos := make([]Info, 0, len(m.ports))
	for _, e := range m.ports {
		infos = append(infos, e.pipeline.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Port returns the snapshot of port id.
func (m *Manager) Port(id int) (Info, error) {
	p, err := m.pipeline(id)
	if err != nil {
		return Info{}, err
	}
	return p.Info(), nil
}

// Close stops all ports.
func (m *Manager) Close() error {
	m.mu.Lock()
	ps := make([]*Pipeline, 0, len(m.ports))
	for _, e := range m.ports {
		ps = append(ps, e.pipeline)
	}
	m.mu.Unlock()

	var errs []error
	for _, p := range ps {
		errs = append(errs, p.Stop())
	}
	return errors.Join(errs...)
}

func (m *Manager) pipeline(id int) (*Pipeline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.ports[id]
	if !ok {
		return nil, fmt.Errorf("port %d: %w", id, ErrUnknownPort)
	}
	return e.pipeline, nil
}
