// Package machine models the machines a diagnostics run targets: identity,
// expected software, the per-variant check parameters and the check suite.
package machine

import (
	"fmt"
	"strings"
	"time"

	"github.com/deepaksuthar40128/RemoteDx/pkg/diag"
)

// Config is a validated machine configuration.
type Config struct {
	Name             string   `json:"name" yaml:"name"`
	Address          string   `json:"ip_address" yaml:"ip_address"`
	Variant          Variant  `json:"machine_type" yaml:"machine_type"`
	ExpectedSoftware []string `json:"expected_software" yaml:"expected_software"`
}

// Profile is one machine under diagnosis. Identity, variant and the installed
// snapshot are fixed at construction; results are rebuilt on every run by the
// single goroutine running that machine's suite.
type Profile struct {
	name     string
	address  string
	variant  Variant
	expected []string
	packages []Package

	installed map[string]string
	sim       Simulator
	sleep     Sleeper

	retryDelay       time.Duration
	latencyThreshold float64
	packetLossChance float64

	results []diag.Record
}

// Option configures a Profile.
type Option func(*Profile)

// WithSimulator replaces the random source behind the checks.
func WithSimulator(sim Simulator) Option {
	return func(p *Profile) {
		if sim != nil {
			p.sim = sim
		}
	}
}

// WithSeed seeds the default simulator, making runs reproducible.
func WithSeed(seed int64) Option {
	return func(p *Profile) {
		p.sim = NewRandSimulator(seed)
	}
}

// WithInstalledSoftware fixes the installed-software snapshot instead of
// drawing it from the pool.
func WithInstalledSoftware(installed map[string]string) Option {
	return func(p *Profile) {
		p.installed = make(map[string]string, len(installed))
		for k, v := range installed {
			p.installed[k] = v
		}
	}
}

// WithSleeper replaces the function used for simulated waits.
func WithSleeper(sleep Sleeper) Option {
	return func(p *Profile) {
		if sleep != nil {
			p.sleep = sleep
		}
	}
}

// WithRetryDelay sets the pause before retrying a check that retries.
func WithRetryDelay(d time.Duration) Option {
	return func(p *Profile) {
		if d >= 0 {
			p.retryDelay = d
		}
	}
}

// WithLatencyThreshold overrides the ping latency threshold in milliseconds.
func WithLatencyThreshold(ms float64) Option {
	return func(p *Profile) {
		if ms > 0 {
			p.latencyThreshold = ms
		}
	}
}

// WithPacketLossChance overrides the simulated packet loss probability.
func WithPacketLossChance(chance float64) Option {
	return func(p *Profile) {
		if chance >= 0 && chance <= 1 {
			p.packetLossChance = chance
		}
	}
}

// New validates cfg and builds the machine profile for its variant.
func New(cfg Config, opts ...Option) (*Profile, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, invalid("", "name", "must be a non-empty string")
	}
	if strings.TrimSpace(cfg.Address) == "" {
		return nil, invalid(cfg.Name, "ip_address", "must be a non-empty string")
	}
	if !cfg.Variant.Valid() {
		return nil, invalid(cfg.Name, "machine_type",
			fmt.Sprintf("'%s' is not one of: %s", cfg.Variant, variantList()))
	}

	packages := make([]Package, 0, len(cfg.ExpectedSoftware))
	for i, entry := range cfg.ExpectedSoftware {
		pkg := ParsePackage(entry)
		if pkg.Name == "" {
			return nil, invalid(cfg.Name, fmt.Sprintf("expected_software[%d]", i),
				fmt.Sprintf("%q does not name a package", entry))
		}
		packages = append(packages, pkg)
	}

	p := &Profile{
		name:             cfg.Name,
		address:          cfg.Address,
		variant:          cfg.Variant,
		expected:         append([]string(nil), cfg.ExpectedSoftware...),
		packages:         packages,
		sleep:            SleepContext,
		retryDelay:       diag.DefaultRetryDelay,
		latencyThreshold: PingLatencyThresholdMS,
		packetLossChance: PingPacketLossChance,
	}
	if p.expected == nil {
		p.expected = []string{}
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.sim == nil {
		p.sim = NewRandSimulator(0)
	}
	if p.installed == nil {
		p.installed = p.sim.Installed(installedPool)
	}
	return p, nil
}

// Name returns the machine name.
func (p *Profile) Name() string { return p.name }

// Address returns the host identifier.
func (p *Profile) Address() string { return p.address }

// Variant returns the deployment class.
func (p *Profile) Variant() Variant { return p.variant }

// DriftRange returns the clock drift range for this machine's variant.
func (p *Profile) DriftRange() DriftRange { return p.variant.DriftRange() }

// ExpectedSoftware returns the expected-software entries exactly as configured.
func (p *Profile) ExpectedSoftware() []string {
	return append([]string{}, p.expected...)
}

// Installed returns a copy of the simulated installed-software snapshot.
func (p *Profile) Installed() map[string]string {
	out := make(map[string]string, len(p.installed))
	for k, v := range p.installed {
		out[k] = v
	}
	return out
}

// Config returns the configuration the profile was built from.
func (p *Profile) Config() Config {
	return Config{
		Name:             p.name,
		Address:          p.address,
		Variant:          p.variant,
		ExpectedSoftware: p.ExpectedSoftware(),
	}
}

// Results returns a copy of the records from the latest run.
func (p *Profile) Results() []diag.Record {
	out := make([]diag.Record, len(p.results))
	for i, r := range p.results {
		out[i] = r.Clone()
	}
	return out
}

// ResetResults clears the records of the previous run.
func (p *Profile) ResetResults() {
	p.results = nil
}

// Record appends a finished check record.
func (p *Profile) Record(r diag.Record) {
	p.results = append(p.results, r.Clone())
}

func (p *Profile) String() string {
	return fmt.Sprintf("Machine(name='%s', ip='%s', type='%s', expected_sw_count=%d)",
		p.name, p.address, p.variant, len(p.expected))
}
