// Package inventory loads the list of machines to diagnose from a JSON or
// YAML file.
package inventory

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/deepaksuthar40128/RemoteDx/pkg/machine"
)

// DefaultFile is the inventory read when no path is given.
const DefaultFile = "machines.json"

var (
	// ErrConfigNotFound is returned when the inventory file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
	// ErrConfigParse is matched by every *ParseError.
	ErrConfigParse = errors.New("configuration parse error")
)

// ParseError describes why an inventory could not be parsed. Index is -1 for
// problems with the document as a whole.
type ParseError struct {
	Source string
	Index  int
	Name   string
	Msg    string
}

func (e *ParseError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid configuration file '%s': %s", e.Source, e.Msg)
	}
	if e.Name != "" {
		return fmt.Sprintf("error parsing entry at index %d in '%s': machine '%s': %s", e.Index, e.Source, e.Name, e.Msg)
	}
	return fmt.Sprintf("error parsing entry at index %d in '%s': %s", e.Index, e.Source, e.Msg)
}

func (e *ParseError) Unwrap() error { return ErrConfigParse }

// Load reads and parses the inventory file at path.
func Load(path string) ([]machine.Config, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Source: path, Index: -1, Msg: fmt.Sprintf("could not read file: %v", err)}
	}
	return Parse(data, path)
}

// Parse decodes an inventory document. JSON is accepted as the YAML subset it
// is. Every entry must be a mapping with non-empty string name, ip_address and
// machine_type fields and a list of strings under expected_software.
func Parse(data []byte, source string) ([]machine.Config, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Source: source, Index: -1, Msg: err.Error()}
	}
	entries, ok := doc.([]any)
	if !ok {
		return nil, &ParseError{Source: source, Index: -1, Msg: "content must be a list of machine objects"}
	}

	configs := make([]machine.Config, 0, len(entries))
	for i, entry := range entries {
		cfg, err := parseEntry(entry)
		if err != nil {
			err.Source = source
			err.Index = i
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

func parseEntry(entry any) (machine.Config, *ParseError) {
	fields, ok := entry.(map[string]any)
	if !ok {
		return machine.Config{}, &ParseError{Msg: "entry is not a mapping"}
	}

	name, ok := nonEmptyString(fields["name"])
	if !ok {
		return machine.Config{}, &ParseError{Msg: "'name' is missing, not a string, or empty"}
	}
	fail := func(msg string) (machine.Config, *ParseError) {
		return machine.Config{}, &ParseError{Name: name, Msg: msg}
	}

	address, ok := nonEmptyString(fields["ip_address"])
	if !ok {
		return fail("'ip_address' is missing, not a string, or empty")
	}

	rawType, ok := nonEmptyString(fields["machine_type"])
	if !ok {
		return fail("'machine_type' is missing, not a string, or empty")
	}
	variant, err := machine.ParseVariant(rawType)
	if err != nil {
		return fail("invalid 'machine_type'. " + err.Error())
	}

	list, ok := fields["expected_software"].([]any)
	if !ok {
		return fail("'expected_software' is missing or not a list")
	}
	software := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return fail("all items in 'expected_software' must be strings")
		}
		software = append(software, s)
	}

	return machine.Config{
		Name:             name,
		Address:          address,
		Variant:          variant,
		ExpectedSoftware: software,
	}, nil
}

func nonEmptyString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// BuildMachines constructs a profile per config. Invalid configs are skipped
// and reported; the caller decides whether that aborts the run. A non-zero
// seed gives machine i the seed seed+i.
func BuildMachines(configs []machine.Config, seed int64, opts ...machine.Option) ([]*machine.Profile, []error) {
	machines := make([]*machine.Profile, 0, len(configs))
	var errs []error
	for i, cfg := range configs {
		machineOpts := opts
		if seed != 0 {
			machineOpts = append(append([]machine.Option(nil), opts...), machine.WithSeed(seed+int64(i)))
		}
		m, err := machine.New(cfg, machineOpts...)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		machines = append(machines, m)
	}
	return machines, errs
}
