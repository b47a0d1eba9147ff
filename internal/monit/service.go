package monit

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/antchfx/xmlquery"

	"monit-collector/internal/xmlmap"
)

// ServiceType is the <type> discriminator of a service.
type ServiceType int64

const (
	TypeFilesystem ServiceType = iota
	TypeDirectory
	TypeFile
	TypeProcess
	TypeHost
	TypeSystem
	TypeFIFO
	TypeProgram
)

var serviceTypeNames = [...]string{
	TypeFilesystem: "filesystem",
	TypeDirectory:  "directory",
	TypeFile:       "file",
	TypeProcess:    "process",
	TypeHost:       "host",
	TypeSystem:     "system",
	TypeFIFO:       "fifo",
	TypeProgram:    "program",
}

func (t ServiceType) String() string {
	if t >= 0 && int(t) < len(serviceTypeNames) {
		return serviceTypeNames[t]
	}
	return "type(" + strconv.FormatInt(int64(t), 10) + ")"
}

// Known reports whether t is one of the eight service kinds.
func (t ServiceType) Known() bool {
	return t >= TypeFilesystem && t <= TypeProgram
}

func serviceType(s string) (ServiceType, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	return ServiceType(v), err
}

// Service is one <service> of a status report. Which fields are valid
// depends on Type; reading a field of another kind fails with
// xmlmap.ErrInapplicableField.
type Service struct{ node *xmlquery.Node }

var (
	serviceName          = xmlmap.NewAttr("name", ".", xmlmap.String, xmlmap.Required[string]())
	serviceTypeField     = xmlmap.NewText("type", serviceType, xmlmap.Required[ServiceType]())
	serviceCollectedSec  = integer("collected_sec")
	serviceCollectedUsec = integer("collected_usec")
	serviceStatus        = integer("status")
	serviceStatusHint    = integer("status_hint")
	serviceMonitor       = integer("monitor")
	serviceMonitorMode   = integer("monitormode")
	servicePendingAction = integer("pendingaction")
	serviceEvery         = optional("every", func(n *xmlquery.Node) Every { return Every{node: n} })

	ownerMode = text("mode")
	ownerUID  = integer("uid")
	ownerGID  = integer("gid")

	fsFlags = integer("flags")
	fsBlock = optional("block", func(n *xmlquery.Node) FilesystemBlock { return FilesystemBlock{node: n} })
	fsInode = optional("inode", func(n *xmlquery.Node) FilesystemInode { return FilesystemInode{node: n} })

	pathTimestamp = integer("timestamp")

	fileSize         = integer("size")
	fileChecksum     = text("checksum")
	fileChecksumType = xmlmap.NewAttr("type", "checksum", xmlmap.String, xmlmap.Default(""))

	processPID      = integer("pid")
	processPPID     = integer("ppid")
	processUptime   = integer("uptime")
	processChildren = integer("children")
	processMemory   = optional("memory", func(n *xmlquery.Node) ProcessMemory { return ProcessMemory{node: n} })
	processCPU      = optional("cpu", func(n *xmlquery.Node) ProcessCPU { return ProcessCPU{node: n} })

	netPorts       = xmlmap.NewChildren("port", func(n *xmlquery.Node) Port { return Port{node: n} })
	netUnixSockets = xmlmap.NewChildren("unix", func(n *xmlquery.Node) UnixSocket { return UnixSocket{node: n} })
	hostICMP       = xmlmap.NewChildren("icmp", func(n *xmlquery.Node) ICMP { return ICMP{node: n} })

	systemLoad   = optional("system/load", func(n *xmlquery.Node) SystemLoad { return SystemLoad{node: n} })
	systemCPU    = optional("system/cpu", func(n *xmlquery.Node) SystemCPU { return SystemCPU{node: n} })
	systemMemory = optional("system/memory", func(n *xmlquery.Node) SystemMemory { return SystemMemory{node: n} })
	systemSwap   = optional("system/swap", func(n *xmlquery.Node) SystemSwap { return SystemSwap{node: n} })

	programProgram = optional("program", func(n *xmlquery.Node) Program { return Program{node: n} })
)

func (s Service) Name() (string, error)         { return serviceName.Get(s.node) }
func (s Service) Type() (ServiceType, error)    { return serviceTypeField.Get(s.node) }
func (s Service) CollectedSec() (int64, error)  { return serviceCollectedSec.Get(s.node) }
func (s Service) CollectedUsec() (int64, error) { return serviceCollectedUsec.Get(s.node) }
func (s Service) Status() (int64, error)        { return serviceStatus.Get(s.node) }
func (s Service) StatusHint() (int64, error)    { return serviceStatusHint.Get(s.node) }
func (s Service) Monitor() (int64, error)       { return serviceMonitor.Get(s.node) }
func (s Service) MonitorMode() (int64, error)   { return serviceMonitorMode.Get(s.node) }
func (s Service) PendingAction() (int64, error) { return servicePendingAction.Get(s.node) }
func (s Service) Every() (*Every, error)        { return serviceEvery.Get(s.node) }

// Collected joins collected_sec and collected_usec as "sec.usec" and parses
// the result. The microseconds are not zero padded, so usec=5 reads as .5;
// CollectedAt gives the exact instant.
func (s Service) Collected() (float64, error) {
	return joinCollected(s.CollectedSec, s.CollectedUsec)
}

func (s Service) CollectedAt() (time.Time, error) {
	return collectedAt(s.CollectedSec, s.CollectedUsec)
}

func joinCollected(sec, usec func() (int64, error)) (float64, error) {
	a, err := sec()
	if err != nil {
		return 0, err
	}
	b, err := usec()
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(fmt.Sprintf("%d.%d", a, b), 64)
}

func collectedAt(sec, usec func() (int64, error)) (time.Time, error) {
	a, err := sec()
	if err != nil {
		return time.Time{}, err
	}
	b, err := usec()
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(a, b*int64(time.Microsecond)).UTC(), nil
}

// LogValue keeps slog output to the identifying fields.
func (s Service) LogValue() slog.Value {
	name, _ := s.Name()
	kind, _ := s.Type()
	status, _ := s.Status()
	return slog.GroupValue(
		slog.String("name", name),
		slog.String("type", kind.String()),
		slog.Int64("status", status),
	)
}

func (s Service) as(field string, want ServiceType) error {
	kind, err := s.Type()
	if err != nil {
		return err
	}
	if kind != want {
		return xmlmap.Inapplicable(field, kind.String())
	}
	return nil
}

// Ownership holds the mode, uid and gid shared by filesystems, directories,
// files and FIFOs.
type Ownership struct{ node *xmlquery.Node }

// Mode is the octal permission string, e.g. "755".
func (o Ownership) Mode() (string, error) { return ownerMode.Get(o.node) }
func (o Ownership) UID() (int64, error)   { return ownerUID.Get(o.node) }
func (o Ownership) GID() (int64, error)   { return ownerGID.Get(o.node) }

type FilesystemService struct{ Ownership }

func (f FilesystemService) Flags() (int64, error)            { return fsFlags.Get(f.node) }
func (f FilesystemService) Block() (*FilesystemBlock, error) { return fsBlock.Get(f.node) }
func (f FilesystemService) Inode() (*FilesystemInode, error) { return fsInode.Get(f.node) }

type DirectoryService struct{ Ownership }

func (d DirectoryService) Timestamp() (int64, error) { return pathTimestamp.Get(d.node) }

type FIFOService struct{ Ownership }

func (f FIFOService) Timestamp() (int64, error) { return pathTimestamp.Get(f.node) }

type FileService struct{ Ownership }

func (f FileService) Timestamp() (int64, error) { return pathTimestamp.Get(f.node) }
func (f FileService) Size() (int64, error)      { return fileSize.Get(f.node) }
func (f FileService) Checksum() (string, error) { return fileChecksum.Get(f.node) }

// ChecksumType is the hash name, e.g. "MD5".
func (f FileService) ChecksumType() (string, error) { return fileChecksumType.Get(f.node) }

type ProcessService struct{ node *xmlquery.Node }

func (p ProcessService) PID() (int64, error)             { return processPID.Get(p.node) }
func (p ProcessService) PPID() (int64, error)            { return processPPID.Get(p.node) }
func (p ProcessService) Uptime() (int64, error)          { return processUptime.Get(p.node) }
func (p ProcessService) Children() (int64, error)        { return processChildren.Get(p.node) }
func (p ProcessService) Memory() (*ProcessMemory, error) { return processMemory.Get(p.node) }
func (p ProcessService) CPU() (*ProcessCPU, error)       { return processCPU.Get(p.node) }
func (p ProcessService) Ports() []Port                   { return netPorts.Get(p.node) }
func (p ProcessService) UnixSockets() []UnixSocket       { return netUnixSockets.Get(p.node) }

type HostService struct{ node *xmlquery.Node }

func (h HostService) Ports() []Port             { return netPorts.Get(h.node) }
func (h HostService) UnixSockets() []UnixSocket { return netUnixSockets.Get(h.node) }
func (h HostService) ICMP() []ICMP              { return hostICMP.Get(h.node) }

type SystemService struct{ node *xmlquery.Node }

func (s SystemService) Load() (*SystemLoad, error)     { return systemLoad.Get(s.node) }
func (s SystemService) CPU() (*SystemCPU, error)       { return systemCPU.Get(s.node) }
func (s SystemService) Memory() (*SystemMemory, error) { return systemMemory.Get(s.node) }
func (s SystemService) Swap() (*SystemSwap, error)     { return systemSwap.Get(s.node) }

type ProgramService struct{ node *xmlquery.Node }

func (p ProgramService) Program() (*Program, error) { return programProgram.Get(p.node) }

func (s Service) AsFilesystem() (FilesystemService, error) {
	if err := s.as("filesystem", TypeFilesystem); err != nil {
		return FilesystemService{}, err
	}
	return FilesystemService{Ownership{s.node}}, nil
}

func (s Service) AsDirectory() (DirectoryService, error) {
	if err := s.as("directory", TypeDirectory); err != nil {
		return DirectoryService{}, err
	}
	return DirectoryService{Ownership{s.node}}, nil
}

func (s Service) AsFile() (FileService, error) {
	if err := s.as("file", TypeFile); err != nil {
		return FileService{}, err
	}
	return FileService{Ownership{s.node}}, nil
}

func (s Service) AsProcess() (ProcessService, error) {
	if err := s.as("process", TypeProcess); err != nil {
		return ProcessService{}, err
	}
	return ProcessService{s.node}, nil
}

func (s Service) AsHost() (HostService, error) {
	if err := s.as("host", TypeHost); err != nil {
		return HostService{}, err
	}
	return HostService{s.node}, nil
}

func (s Service) AsSystem() (SystemService, error) {
	if err := s.as("system", TypeSystem); err != nil {
		return SystemService{}, err
	}
	return SystemService{s.node}, nil
}

func (s Service) AsFIFO() (FIFOService, error) {
	if err := s.as("fifo", TypeFIFO); err != nil {
		return FIFOService{}, err
	}
	return FIFOService{Ownership{s.node}}, nil
}

func (s Service) AsProgram() (ProgramService, error) {
	if err := s.as("program", TypeProgram); err != nil {
		return ProgramService{}, err
	}
	return ProgramService{s.node}, nil
}

func (s Service) ownership(field string) (Ownership, error) {
	kind, err := s.Type()
	if err != nil {
		return Ownership{}, err
	}
	switch kind {
	case TypeFilesystem, TypeDirectory, TypeFile, TypeFIFO:
		return Ownership{s.node}, nil
	}
	return Ownership{}, xmlmap.Inapplicable(field, kind.String())
}

func (s Service) Mode() (string, error) {
	o, err := s.ownership("mode")
	if err != nil {
		return "", err
	}
	return o.Mode()
}

func (s Service) UID() (int64, error) {
	o, err := s.ownership("uid")
	if err != nil {
		return 0, err
	}
	return o.UID()
}

func (s Service) GID() (int64, error) {
	o, err := s.ownership("gid")
	if err != nil {
		return 0, err
	}
	return o.GID()
}

// Timestamp is the modification time of a file, directory or FIFO.
func (s Service) Timestamp() (int64, error) {
	kind, err := s.Type()
	if err != nil {
		return 0, err
	}
	switch kind {
	case TypeDirectory:
		return DirectoryService{Ownership{s.node}}.Timestamp()
	case TypeFile:
		return FileService{Ownership{s.node}}.Timestamp()
	case TypeFIFO:
		return FIFOService{Ownership{s.node}}.Timestamp()
	}
	return 0, xmlmap.Inapplicable("timestamp", kind.String())
}

func (s Service) Size() (int64, error) {
	f, err := s.asField("size", TypeFile)
	if err != nil {
		return 0, err
	}
	return FileService{Ownership{f}}.Size()
}

func (s Service) Checksum() (string, error) {
	f, err := s.asField("checksum", TypeFile)
	if err != nil {
		return "", err
	}
	return FileService{Ownership{f}}.Checksum()
}

func (s Service) ChecksumType() (string, error) {
	f, err := s.asField("checksum_type", TypeFile)
	if err != nil {
		return "", err
	}
	return FileService{Ownership{f}}.ChecksumType()
}

func (s Service) PID() (int64, error) {
	n, err := s.asField("pid", TypeProcess)
	if err != nil {
		return 0, err
	}
	return ProcessService{n}.PID()
}

func (s Service) PPID() (int64, error) {
	n, err := s.asField("ppid", TypeProcess)
	if err != nil {
		return 0, err
	}
	return ProcessService{n}.PPID()
}

func (s Service) Uptime() (int64, error) {
	n, err := s.asField("uptime", TypeProcess)
	if err != nil {
		return 0, err
	}
	return ProcessService{n}.Uptime()
}

func (s Service) Children() (int64, error) {
	n, err := s.asField("children", TypeProcess)
	if err != nil {
		return 0, err
	}
	return ProcessService{n}.Children()
}

// Memory is *ProcessMemory for a process and *SystemMemory for the system
// service. It is nil when the block is absent.
func (s Service) Memory() (MemoryUsage, error) {
	kind, err := s.Type()
	if err != nil {
		return nil, err
	}
	switch kind {
	case TypeProcess:
		m, err := ProcessService{s.node}.Memory()
		if err != nil || m == nil {
			return nil, err
		}
		return m, nil
	case TypeSystem:
		m, err := SystemService{s.node}.Memory()
		if err != nil || m == nil {
			return nil, err
		}
		return m, nil
	}
	return nil, xmlmap.Inapplicable("memory", kind.String())
}

// CPU is *ProcessCPU for a process and *SystemCPU for the system service.
// It is nil when the block is absent.
func (s Service) CPU() (CPUUsage, error) {
	kind, err := s.Type()
	if err != nil {
		return nil, err
	}
	switch kind {
	case TypeProcess:
		c, err := ProcessService{s.node}.CPU()
		if err != nil || c == nil {
			return nil, err
		}
		return c, nil
	case TypeSystem:
		c, err := SystemService{s.node}.CPU()
		if err != nil || c == nil {
			return nil, err
		}
		return c, nil
	}
	return nil, xmlmap.Inapplicable("cpu", kind.String())
}

func (s Service) Ports() ([]Port, error) {
	kind, err := s.Type()
	if err != nil {
		return nil, err
	}
	if kind != TypeProcess && kind != TypeHost {
		return nil, xmlmap.Inapplicable("ports", kind.String())
	}
	return netPorts.Get(s.node), nil
}

func (s Service) UnixSockets() ([]UnixSocket, error) {
	kind, err := s.Type()
	if err != nil {
		return nil, err
	}
	if kind != TypeProcess && kind != TypeHost {
		return nil, xmlmap.Inapplicable("unix", kind.String())
	}
	return netUnixSockets.Get(s.node), nil
}

func (s Service) ICMP() ([]ICMP, error) {
	n, err := s.asField("icmp", TypeHost)
	if err != nil {
		return nil, err
	}
	return HostService{n}.ICMP(), nil
}

func (s Service) Load() (*SystemLoad, error) {
	n, err := s.asField("load", TypeSystem)
	if err != nil {
		return nil, err
	}
	return SystemService{n}.Load()
}

func (s Service) Swap() (*SystemSwap, error) {
	n, err := s.asField("swap", TypeSystem)
	if err != nil {
		return nil, err
	}
	return SystemService{n}.Swap()
}

func (s Service) Flags() (int64, error) {
	n, err := s.asField("flags", TypeFilesystem)
	if err != nil {
		return 0, err
	}
	return FilesystemService{Ownership{n}}.Flags()
}

func (s Service) Block() (*FilesystemBlock, error) {
	n, err := s.asField("block", TypeFilesystem)
	if err != nil {
		return nil, err
	}
	return FilesystemService{Ownership{n}}.Block()
}

func (s Service) Inode() (*FilesystemInode, error) {
	n, err := s.asField("inode", TypeFilesystem)
	if err != nil {
		return nil, err
	}
	return FilesystemService{Ownership{n}}.Inode()
}

func (s Service) Program() (*Program, error) {
	n, err := s.asField("program", TypeProgram)
	if err != nil {
		return nil, err
	}
	return ProgramService{n}.Program()
}

func (s Service) asField(field string, want ServiceType) (*xmlquery.Node, error) {
	if err := s.as(field, want); err != nil {
		return nil, err
	}
	return s.node, nil
}
