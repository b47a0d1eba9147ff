package models

import (
	"time"

	"github.com/google/uuid"
)

type Report struct {
	ID              uuid.UUID `db:"id" json:"id"`
	MonitID         string    `db:"monit_id" json:"monit_id"`
	Incarnation     int64     `db:"incarnation" json:"incarnation"`
	Version         string    `db:"version" json:"version"`
	Hostname        string    `db:"hostname" json:"hostname"`
	Uptime          int64     `db:"uptime" json:"uptime"`
	Poll            int64     `db:"poll" json:"poll"`
	PlatformName    string    `db:"platform_name" json:"platform_name"`
	PlatformRelease string    `db:"platform_release" json:"platform_release"`
	PlatformMachine string    `db:"platform_machine" json:"platform_machine"`
	ReceivedAt      time.Time `db:"received_at" json:"received_at"`

	Services []ServiceStatus `db:"-" json:"services,omitempty"`
	Events   []Event         `db:"-" json:"events,omitempty"`
}

// ServiceStatus is one service as seen in one report. The resource columns
// are nil when the service type does not carry them.
type ServiceStatus struct {
	ReportID       uuid.UUID `db:"report_id" json:"report_id"`
	MonitID        string    `db:"monit_id" json:"monit_id"`
	Hostname       string    `db:"hostname" json:"hostname"`
	Name           string    `db:"name" json:"name"`
	Type           string    `db:"type" json:"type"`
	Status         int64     `db:"status" json:"status"`
	StatusHint     int64     `db:"status_hint" json:"status_hint"`
	Monitor        int64     `db:"monitor" json:"monitor"`
	CollectedAt    time.Time `db:"collected_at" json:"collected_at"`
	PID            *int64    `db:"pid" json:"pid,omitempty"`
	CPUPercent     *float64  `db:"cpu_percent" json:"cpu_percent,omitempty"`
	MemoryPercent  *float64  `db:"memory_percent" json:"memory_percent,omitempty"`
	MemoryKilobyte *int64    `db:"memory_kilobyte" json:"memory_kilobyte,omitempty"`
}

type Event struct {
	ReportID    uuid.UUID `db:"report_id" json:"report_id"`
	MonitID     string    `db:"monit_id" json:"monit_id"`
	Service     string    `db:"service" json:"service"`
	Type        string    `db:"type" json:"type"`
	EventID     int64     `db:"event_id" json:"event_id"`
	State       int64     `db:"state" json:"state"`
	Action      int64     `db:"action" json:"action"`
	Message     string    `db:"message" json:"message"`
	CollectedAt time.Time `db:"collected_at" json:"collected_at"`
}

// Agent summarizes the reports received from one Monit instance.
type Agent struct {
	MonitID      string    `json:"monit_id"`
	Hostname     string    `json:"hostname"`
	Version      string    `json:"version"`
	Incarnation  int64     `json:"incarnation"`
	LastReportID uuid.UUID `json:"last_report_id"`
	FirstSeen    time.Time `json:"first_seen"`
	LastSeen     time.Time `json:"last_seen"`
	Reports      int64     `json:"reports"`
	Restarts     int64     `json:"restarts"`
}
