package monit

import (
	"github.com/antchfx/xmlquery"

	"monit-collector/internal/xmlmap"
)

func text(path string) xmlmap.Text[string] {
	return xmlmap.NewText(path, xmlmap.String, xmlmap.Default(""))
}

func integer(path string) xmlmap.Text[int64] {
	return xmlmap.NewText(path, xmlmap.Int64, xmlmap.Default[int64](0))
}

func float(path string) xmlmap.Text[float64] {
	return xmlmap.NewText(path, xmlmap.Float64, xmlmap.Default(0.0))
}

// optional declares a child record that is nil when absent.
func optional[R any](path string, wrap func(*xmlquery.Node) R) xmlmap.Child[*R] {
	return xmlmap.NewChild(path, func(n *xmlquery.Node) *R {
		r := wrap(n)
		return &r
	}, xmlmap.Default[*R](nil))
}

// Httpd is the <httpd> block of <server>.
type Httpd struct{ node *xmlquery.Node }

var (
	httpdAddress = text("address")
	httpdPort    = integer("port")
	httpdSSL     = integer("ssl")
)

func (h Httpd) Address() (string, error) { return httpdAddress.Get(h.node) }
func (h Httpd) Port() (int64, error)     { return httpdPort.Get(h.node) }

// SSL is reported as 0 or 1.
func (h Httpd) SSL() (int64, error) { return httpdSSL.Get(h.node) }

// Server describes the reporting Monit daemon.
type Server struct{ node *xmlquery.Node }

var (
	serverUptime        = integer("uptime")
	serverPoll          = integer("poll")
	serverStartDelay    = integer("startdelay")
	serverLocalHostname = text("localhostname")
	serverControlFile   = text("controlfile")
	serverHttpd         = optional("httpd", func(n *xmlquery.Node) Httpd { return Httpd{node: n} })
)

func (s Server) Uptime() (int64, error)         { return serverUptime.Get(s.node) }
func (s Server) Poll() (int64, error)           { return serverPoll.Get(s.node) }
func (s Server) StartDelay() (int64, error)     { return serverStartDelay.Get(s.node) }
func (s Server) LocalHostname() (string, error) { return serverLocalHostname.Get(s.node) }
func (s Server) ControlFile() (string, error)   { return serverControlFile.Get(s.node) }

// Httpd returns nil when Monit runs without its web interface.
func (s Server) Httpd() (*Httpd, error) { return serverHttpd.Get(s.node) }

// Platform describes the monitored host.
type Platform struct{ node *xmlquery.Node }

var (
	platformName    = text("name")
	platformRelease = text("release")
	platformVersion = text("version")
	platformMachine = text("machine")
	platformCPU     = integer("cpu")
	platformMemory  = integer("memory")
	platformSwap    = integer("swap")
)

func (p Platform) Name() (string, error)    { return platformName.Get(p.node) }
func (p Platform) Release() (string, error) { return platformRelease.Get(p.node) }
func (p Platform) Version() (string, error) { return platformVersion.Get(p.node) }
func (p Platform) Machine() (string, error) { return platformMachine.Get(p.node) }
func (p Platform) CPU() (int64, error)      { return platformCPU.Get(p.node) }

// Memory and Swap are in kilobytes.
func (p Platform) Memory() (int64, error) { return platformMemory.Get(p.node) }
func (p Platform) Swap() (int64, error)   { return platformSwap.Get(p.node) }

// ICMP is one <icmp> test of a host service.
type ICMP struct{ node *xmlquery.Node }

var (
	icmpType         = text("type")
	icmpResponseTime = float("responsetime")
)

func (i ICMP) Type() (string, error)          { return icmpType.Get(i.node) }
func (i ICMP) ResponseTime() (float64, error) { return icmpResponseTime.Get(i.node) }

// Port is one <port> test of a process or host service.
type Port struct{ node *xmlquery.Node }

var (
	portHostname     = text("hostname")
	portNumber       = integer("portnumber")
	portRequest      = text("request")
	portProtocol     = text("protocol")
	portType         = text("type")
	portResponseTime = float("responsetime")
)

func (p Port) Hostname() (string, error)      { return portHostname.Get(p.node) }
func (p Port) PortNumber() (int64, error)     { return portNumber.Get(p.node) }
func (p Port) Request() (string, error)       { return portRequest.Get(p.node) }
func (p Port) Protocol() (string, error)      { return portProtocol.Get(p.node) }
func (p Port) Type() (string, error)          { return portType.Get(p.node) }
func (p Port) ResponseTime() (float64, error) { return portResponseTime.Get(p.node) }

// UnixSocket is one <unix> socket test of a process or host service.
type UnixSocket struct{ node *xmlquery.Node }

var (
	unixPath         = text("path")
	unixProtocol     = text("protocol")
	unixResponseTime = float("responsetime")
)

func (u UnixSocket) Path() (string, error)          { return unixPath.Get(u.node) }
func (u UnixSocket) Protocol() (string, error)      { return unixProtocol.Get(u.node) }
func (u UnixSocket) ResponseTime() (float64, error) { return unixResponseTime.Get(u.node) }

// MemoryUsage is implemented by *ProcessMemory and *SystemMemory.
type MemoryUsage interface {
	Percent() (float64, error)
	Kilobyte() (int64, error)
	memoryUsage()
}

// CPUUsage is implemented by *ProcessCPU and *SystemCPU. The two share no
// fields; use a type switch.
type CPUUsage interface {
	cpuUsage()
}

// ProcessMemory is the <memory> block of a process service.
type ProcessMemory struct{ node *xmlquery.Node }

var (
	procMemPercent       = float("percent")
	procMemPercentTotal  = float("percenttotal")
	procMemKilobyte      = integer("kilobyte")
	procMemKilobyteTotal = integer("kilobytetotal")
)

func (m *ProcessMemory) Percent() (float64, error)      { return procMemPercent.Get(m.node) }
func (m *ProcessMemory) PercentTotal() (float64, error) { return procMemPercentTotal.Get(m.node) }
func (m *ProcessMemory) Kilobyte() (int64, error)       { return procMemKilobyte.Get(m.node) }
func (m *ProcessMemory) KilobyteTotal() (int64, error)  { return procMemKilobyteTotal.Get(m.node) }
func (*ProcessMemory) memoryUsage()                     {}

// ProcessCPU is the <cpu> block of a process service.
type ProcessCPU struct{ node *xmlquery.Node }

var (
	procCPUPercent      = float("percent")
	procCPUPercentTotal = float("percenttotal")
)

func (c *ProcessCPU) Percent() (float64, error)      { return procCPUPercent.Get(c.node) }
func (c *ProcessCPU) PercentTotal() (float64, error) { return procCPUPercentTotal.Get(c.node) }
func (*ProcessCPU) cpuUsage()                        {}

// SystemLoad is <system><load>.
type SystemLoad struct{ node *xmlquery.Node }

var (
	loadAvg01 = float("avg01")
	loadAvg05 = float("avg05")
	loadAvg15 = float("avg15")
)

func (l *SystemLoad) Avg01() (float64, error) { return loadAvg01.Get(l.node) }
func (l *SystemLoad) Avg05() (float64, error) { return loadAvg05.Get(l.node) }
func (l *SystemLoad) Avg15() (float64, error) { return loadAvg15.Get(l.node) }

// SystemCPU is <system><cpu>, in percent.
type SystemCPU struct{ node *xmlquery.Node }

var (
	sysCPUUser   = float("user")
	sysCPUSystem = float("system")
	sysCPUWait   = float("wait")
)

func (c *SystemCPU) User() (float64, error)   { return sysCPUUser.Get(c.node) }
func (c *SystemCPU) System() (float64, error) { return sysCPUSystem.Get(c.node) }
func (c *SystemCPU) Wait() (float64, error)   { return sysCPUWait.Get(c.node) }
func (*SystemCPU) cpuUsage()                  {}

// SystemMemory is <system><memory>.
type SystemMemory struct{ node *xmlquery.Node }

var (
	sysMemPercent  = float("percent")
	sysMemKilobyte = integer("kilobyte")
)

func (m *SystemMemory) Percent() (float64, error) { return sysMemPercent.Get(m.node) }
func (m *SystemMemory) Kilobyte() (int64, error)  { return sysMemKilobyte.Get(m.node) }
func (*SystemMemory) memoryUsage()                {}

// SystemSwap is <system><swap>; same shape as SystemMemory.
type SystemSwap struct{ node *xmlquery.Node }

func (s *SystemSwap) Percent() (float64, error) { return sysMemPercent.Get(s.node) }
func (s *SystemSwap) Kilobyte() (int64, error)  { return sysMemKilobyte.Get(s.node) }

// Program is the <program> block of a program service.
type Program struct{ node *xmlquery.Node }

var (
	programStarted = integer("started")
	programStatus  = integer("status")
)

func (p *Program) Started() (int64, error) { return programStarted.Get(p.node) }

// Status is the exit status of the last run.
func (p *Program) Status() (int64, error) { return programStatus.Get(p.node) }

// FilesystemBlock is the <block> block of a filesystem service, in megabytes.
type FilesystemBlock struct{ node *xmlquery.Node }

var (
	blockPercent = float("percent")
	blockUsage   = float("usage")
	blockTotal   = float("total")
)

func (b *FilesystemBlock) Percent() (float64, error) { return blockPercent.Get(b.node) }
func (b *FilesystemBlock) Usage() (float64, error)   { return blockUsage.Get(b.node) }
func (b *FilesystemBlock) Total() (float64, error)   { return blockTotal.Get(b.node) }

// FilesystemInode is the <inode> block of a filesystem service.
type FilesystemInode struct{ node *xmlquery.Node }

var (
	inodePercent = float("percent")
	inodeUsage   = integer("usage")
	inodeTotal   = integer("total")
)

func (i *FilesystemInode) Percent() (float64, error) { return inodePercent.Get(i.node) }
func (i *FilesystemInode) Usage() (int64, error)     { return inodeUsage.Get(i.node) }
func (i *FilesystemInode) Total() (int64, error)     { return inodeTotal.Get(i.node) }

// Every is the <every> schedule of a service.
//
// Type is 0 for every cycle, 1 to skip cycles (Counter of Number), 2 to run
// within Cron and 3 to run outside Cron.
type Every struct{ node *xmlquery.Node }

var (
	everyType    = integer("type")
	everyCounter = integer("counter")
	everyNumber  = integer("number")
	everyCron    = text("cron")
)

func (e *Every) Type() (int64, error)    { return everyType.Get(e.node) }
func (e *Every) Counter() (int64, error) { return everyCounter.Get(e.node) }
func (e *Every) Number() (int64, error)  { return everyNumber.Get(e.node) }
func (e *Every) Cron() (string, error)   { return everyCron.Get(e.node) }
