package machine

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/deepaksuthar40128/RemoteDx/pkg/diag"
)

// Check names, in suite order.
const (
	CheckPing     = "ping_check"
	CheckSoftware = "software_version_check"
	CheckClock    = "clock_sync_check"
)

const (
	PingLatencyMinMS       = 0.0
	PingLatencyMaxMS       = 300.0
	PingLatencyThresholdMS = 200.0
	PingPacketLossChance   = 0.1

	ClockDriftThreshold = 1.5

	softwarePauseMin = 50 * time.Millisecond
	softwarePauseMax = 200 * time.Millisecond
	clockPauseMin    = 20 * time.Millisecond
	clockPauseMax    = 100 * time.Millisecond
)

const softwareQueryCommand = `dpkg-query -W -f='${Package}==${Version}\n'`

// Check is one entry of a machine's suite: its name, retry policy and the
// operation bound to the machine.
type Check struct {
	Name   string
	Policy diag.Policy
	Run    diag.Operation
}

// Checks returns the machine's check suite in its fixed order.
func (p *Profile) Checks() []Check {
	retry := diag.Policy{Retry: true, Delay: p.retryDelay}
	return []Check{
		{Name: CheckPing, Policy: retry, Run: p.ping},
		{Name: CheckSoftware, Policy: diag.Policy{Retry: false}, Run: p.software},
		{Name: CheckClock, Policy: retry, Run: p.clock},
	}
}

// ping simulates an ICMP round trip. The wait for the latency honors ctx.
func (p *Profile) ping(ctx context.Context) (diag.Outcome, error) {
	cmds := []string{"ping -c 1 " + p.address}
	latency := p.sim.Latency(PingLatencyMinMS, PingLatencyMaxMS)

	if err := p.sleep(ctx, msDuration(latency)); err != nil {
		return diag.Outcome{CommandsRun: cmds}, err
	}

	if p.sim.PacketLost(p.packetLossChance) {
		return diag.Outcome{
			Status:      diag.StatusFailed,
			Details:     fmt.Sprintf("Packet loss simulated. (Attempted latency: %.2fms)", latency),
			CommandsRun: cmds,
		}, nil
	}
	if latency > p.latencyThreshold {
		return diag.Outcome{
			Status:      diag.StatusFailed,
			Details:     fmt.Sprintf("Latency %.2fms exceeded threshold of %sms.", latency, formatFloat(p.latencyThreshold)),
			CommandsRun: cmds,
		}, nil
	}
	return diag.Outcome{
		Status:      diag.StatusPassed,
		Details:     fmt.Sprintf("Latency %.2fms.", latency),
		CommandsRun: cmds,
	}, nil
}

// software compares the expected entries against the installed snapshot.
// The simulated query blocks without observing ctx.
func (p *Profile) software(context.Context) (diag.Outcome, error) {
	cmds := []string{softwareQueryCommand}
	_ = p.sleep(context.Background(), p.sim.Pause(softwarePauseMin, softwarePauseMax))

	if len(p.packages) == 0 {
		return diag.Outcome{Status: diag.StatusPassed, Details: "No expected software.", CommandsRun: cmds}, nil
	}

	var issues []string
	for _, pkg := range p.packages {
		have, ok := p.installed[pkg.Name]
		switch {
		case !ok:
			issues = append(issues, fmt.Sprintf("Missing: '%s'", pkg.Name))
		case pkg.MinVersion != "" && CompareVersions(have, pkg.MinVersion) < 0:
			issues = append(issues, fmt.Sprintf("Version Mismatch for '%s': Expected >='%s', Found '%s'.",
				pkg.Name, pkg.MinVersion, have))
		}
	}
	if len(issues) > 0 {
		return diag.Outcome{Status: diag.StatusFailed, Details: strings.Join(issues, "; "), CommandsRun: cmds}, nil
	}
	return diag.Outcome{Status: diag.StatusPassed, Details: "All expected software OK.", CommandsRun: cmds}, nil
}

// clock draws a drift from the variant's range and compares it to the
// threshold. Like software, the simulated query blocks.
func (p *Profile) clock(context.Context) (diag.Outcome, error) {
	cmds := []string{"date +%s", "ntpdate -q pool.ntp.org"}
	_ = p.sleep(context.Background(), p.sim.Pause(clockPauseMin, clockPauseMax))

	r := p.DriftRange()
	drift := p.sim.Drift(r.Min, r.Max)
	abs := math.Abs(drift)
	threshold := formatFloat(ClockDriftThreshold)

	if abs > ClockDriftThreshold {
		return diag.Outcome{
			Status:      diag.StatusFailed,
			Details:     fmt.Sprintf("Drift %.2fs (abs: %.2fs) > threshold %ss.", drift, abs, threshold),
			CommandsRun: cmds,
		}, nil
	}
	return diag.Outcome{
		Status:      diag.StatusPassed,
		Details:     fmt.Sprintf("Drift %.2fs (within threshold %ss).", drift, threshold),
		CommandsRun: cmds,
	}, nil
}

func msDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
