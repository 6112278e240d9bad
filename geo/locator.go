package geo

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LAN is reported for loopback, private, and link-local addresses.
const LAN = "LAN"

// ErrUnknownAddress is returned when no entry covers an address.
var ErrUnknownAddress = errors.New("address not located")

// Locator resolves an IP to a location.
type Locator interface {
	Locate(ctx context.Context, ip string) (string, error)
}

// Func adapts a function to a Locator.
type Func func(ctx context.Context, ip string) (string, error)

// Locate calls f.
func (f Func) Locate(ctx context.Context, ip string) (string, error) {
	return f(ctx, ip)
}

// Static reports the same location for every address.
type Static string

// Locate returns s.
func (s Static) Locate(context.Context, string) (string, error) {
	return string(s), nil
}

// Entry maps one network to a location.
type Entry struct {
	CIDR     string `yaml:"cidr"`
	Location string `yaml:"location"`
}

// Table is an in-memory CIDR table. The most specific prefix wins.
type Table struct {
	prefixes  []netip.Prefix
	locations []string
}

type tableFile struct {
	Networks []Entry `yaml:"networks"`
}

// NewTable builds a Table from entries.
func NewTable(entries []Entry) (*Table, error) {
	type row struct {
		prefix   netip.Prefix
		location string
	}
	rows := make([]row, 0, len(entries))
	for _, e := range entries {
		p, err := netip.ParsePrefix(strings.TrimSpace(e.CIDR))
		if err != nil {
			return nil, fmt.Errorf("parse cidr %q: %w", e.CIDR, err)
		}
		rows = append(rows, row{prefix: p.Masked(), location: e.Location})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].prefix.Bits() > rows[j].prefix.Bits()
	})

	t := &Table{
		prefixes:  make([]netip.Prefix, len(rows)),
		locations: make([]string, len(rows)),
	}
	for i, r := range rows {
		t.prefixes[i] = r.prefix
		t.locations[i] = r.location
	}
	return t, nil
}

// LoadTable reads a YAML table of the form:
//
//	networks:
//	  - cidr: 203.0.113.0/24
//	    location: "China|0|Zhejiang|Hangzhou|Telecom"
func LoadTable(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read geo table: %w", err)
	}
	return ParseTable(raw)
}

// ParseTable parses the YAML form read by LoadTable.
func ParseTable(raw []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse geo table: %w", err)
	}
	return NewTable(f.Networks)
}

// Locate returns the location of ip. Loopback and private addresses are reported as LAN
// without consulting the table.
func (t *Table) Locate(ctx context.Context, ip string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return "", fmt.Errorf("parse ip %q: %w", ip, err)
	}
	addr = addr.Unmap()
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() || addr.IsUnspecified() {
		return LAN, nil
	}
	for i, p := range t.prefixes {
		if p.Contains(addr) {
			return t.locations[i], nil
		}
	}
	return "", ErrUnknownAddress
}
