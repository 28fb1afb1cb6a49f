package machine

import (
	"sort"
	"strconv"
	"strings"
)

// installedPool is the catalog the simulated installed-software snapshot is
// drawn from: package name to the versions a machine may carry.
var installedPool = map[string][]string{
	"nginx":         {"1.18.0", "1.20.1", "1.21.0"},
	"python3":       {"3.7.9", "3.8.5", "3.9.7", "3.10.4"},
	"curl":          {"7.68.0", "7.74.0"},
	"docker":        {"20.10.7", "20.10.12"},
	"gcc":           {"9.3.0", "10.2.0"},
	"node":          {"14.17.0", "16.13.0", "17.0.1"},
	"java11":        {"11.0.10", "11.0.12"},
	"postgres":      {"12.5", "13.1", "14.0"},
	"my_custom_app": {"1.0.0", "1.2.0", "1.2.3"},
}

// installChance is the probability that a pool package is installed.
const installChance = 0.8

// Package is one expected-software entry.
type Package struct {
	Name string
	// MinVersion is empty when any installed version is acceptable.
	MinVersion string
}

// ParsePackage splits "name==version" into its parts. Entries without "=="
// carry no minimum version.
func ParsePackage(entry string) Package {
	if name, ver, ok := strings.Cut(entry, "=="); ok {
		return Package{Name: strings.TrimSpace(name), MinVersion: strings.TrimSpace(ver)}
	}
	return Package{Name: strings.TrimSpace(entry)}
}

// parseVersion splits a dotted version into numeric segments. Segments that
// are not integers count as 0.
func parseVersion(v string) []int {
	parts := strings.Split(strings.TrimSpace(v), ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			n = 0
		}
		out[i] = n
	}
	return out
}

// CompareVersions returns -1, 0 or 1 as a is lower than, equal to or higher
// than b. Missing trailing segments count as 0, so "13.1" equals "13.1.0".
func CompareVersions(a, b string) int {
	av, bv := parseVersion(a), parseVersion(b)
	n := len(av)
	if len(bv) > n {
		n = len(bv)
	}
	for i := 0; i < n; i++ {
		var x, y int
		if i < len(av) {
			x = av[i]
		}
		if i < len(bv) {
			y = bv[i]
		}
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}

// poolNames returns the pool package names sorted, so a seeded simulator
// draws the same snapshot every time.
func poolNames(pool map[string][]string) []string {
	names := make([]string, 0, len(pool))
	for name := range pool {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
