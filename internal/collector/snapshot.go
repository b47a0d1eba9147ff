package collector

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"monit-collector/internal/models"
	"monit-collector/internal/monit"
	"monit-collector/internal/xmlmap"
)

// Snapshot flattens a report into the rows SaveReport writes.
func Snapshot(id uuid.UUID, receivedAt time.Time, m monit.Monit) (models.Report, error) {
	rep := models.Report{ID: id, ReceivedAt: receivedAt.UTC()}

	var err error
	if rep.MonitID, err = m.ID(); err != nil {
		return rep, err
	}
	if rep.Incarnation, err = m.Incarnation(); err != nil {
		return rep, err
	}
	if rep.Version, err = m.Version(); err != nil {
		return rep, err
	}

	server, err := m.Server()
	if err != nil {
		return rep, err
	}
	if rep.Hostname, err = server.LocalHostname(); err != nil {
		return rep, err
	}
	if rep.Uptime, err = server.Uptime(); err != nil {
		return rep, err
	}
	if rep.Poll, err = server.Poll(); err != nil {
		return rep, err
	}

	platform, err := m.Platform()
	if err != nil {
		return rep, err
	}
	if rep.PlatformName, err = platform.Name(); err != nil {
		return rep, err
	}
	if rep.PlatformRelease, err = platform.Release(); err != nil {
		return rep, err
	}
	if rep.PlatformMachine, err = platform.Machine(); err != nil {
		return rep, err
	}

	for _, s := range m.Services() {
		row, err := serviceRow(rep, s)
		if err != nil {
			return rep, err
		}
		rep.Services = append(rep.Services, row)
	}
	for _, e := range m.Events() {
		row, err := eventRow(rep, e)
		if err != nil {
			return rep, err
		}
		rep.Events = append(rep.Events, row)
	}

	return rep, nil
}

func serviceRow(rep models.Report, s monit.Service) (models.ServiceStatus, error) {
	row := models.ServiceStatus{ReportID: rep.ID, MonitID: rep.MonitID, Hostname: rep.Hostname}

	var err error
	if row.Name, err = s.Name(); err != nil {
		return row, err
	}
	kind, err := s.Type()
	if err != nil {
		return row, fmt.Errorf("service %q: %w", row.Name, err)
	}
	row.Type = kind.String()
	if row.Status, err = s.Status(); err != nil {
		return row, fmt.Errorf("service %q: %w", row.Name, err)
	}
	if row.StatusHint, err = s.StatusHint(); err != nil {
		return row, fmt.Errorf("service %q: %w", row.Name, err)
	}
	if row.Monitor, err = s.Monitor(); err != nil {
		return row, fmt.Errorf("service %q: %w", row.Name, err)
	}
	if row.CollectedAt, err = s.CollectedAt(); err != nil {
		return row, fmt.Errorf("service %q: %w", row.Name, err)
	}

	if pid, err := s.PID(); err == nil {
		row.PID = &pid
	} else if !errors.Is(err, xmlmap.ErrInapplicableField) {
		return row, fmt.Errorf("service %q: %w", row.Name, err)
	}

	cpu, err := s.CPU()
	if err != nil && !errors.Is(err, xmlmap.ErrInapplicableField) {
		return row, fmt.Errorf("service %q: %w", row.Name, err)
	}
	if row.CPUPercent, err = cpuPercent(cpu); err != nil {
		return row, fmt.Errorf("service %q: %w", row.Name, err)
	}

	mem, err := s.Memory()
	if err != nil && !errors.Is(err, xmlmap.ErrInapplicableField) {
		return row, fmt.Errorf("service %q: %w", row.Name, err)
	}
	if mem != nil {
		pct, err := mem.Percent()
		if err != nil {
			return row, fmt.Errorf("service %q: %w", row.Name, err)
		}
		kb, err := mem.Kilobyte()
		if err != nil {
			return row, fmt.Errorf("service %q: %w", row.Name, err)
		}
		row.MemoryPercent, row.MemoryKilobyte = &pct, &kb
	}

	return row, nil
}

// cpuPercent is the process share for a process and user+system+wait for
// the system service.
func cpuPercent(cpu monit.CPUUsage) (*float64, error) {
	switch c := cpu.(type) {
	case *monit.ProcessCPU:
		pct, err := c.Percent()
		if err != nil {
			return nil, err
		}
		return &pct, nil
	case *monit.SystemCPU:
		user, err := c.User()
		if err != nil {
			return nil, err
		}
		system, err := c.System()
		if err != nil {
			return nil, err
		}
		wait, err := c.Wait()
		if err != nil {
			return nil, err
		}
		total := user + system + wait
		return &total, nil
	}
	return nil, nil
}

func eventRow(rep models.Report, e monit.Event) (models.Event, error) {
	row := models.Event{ReportID: rep.ID, MonitID: rep.MonitID}

	var err error
	if row.Service, err = e.Service(); err != nil {
		return row, err
	}
	kind, err := e.Type()
	if err != nil {
		return row, fmt.Errorf("event for %q: %w", row.Service, err)
	}
	row.Type = kind.String()
	if row.EventID, err = e.ID(); err != nil {
		return row, fmt.Errorf("event for %q: %w", row.Service, err)
	}
	if row.State, err = e.State(); err != nil {
		return row, fmt.Errorf("event for %q: %w", row.Service, err)
	}
	if row.Action, err = e.Action(); err != nil {
		return row, fmt.Errorf("event for %q: %w", row.Service, err)
	}
	if row.Message, err = e.Message(); err != nil {
		return row, fmt.Errorf("event for %q: %w", row.Service, err)
	}
	if row.CollectedAt, err = e.CollectedAt(); err != nil {
		return row, fmt.Errorf("event for %q: %w", row.Service, err)
	}
	return row, nil
}
