package processing

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/yl2chen/cidranger"
)

type asnEntry struct {
	ipNet net.IPNet
	asn   int
}

func (e *asnEntry) Network() net.IPNet {
	return e.ipNet
}

// ASNMapper maps IP addresses to the origin AS of the most specific
// announced prefix containing them.
type ASNMapper struct {
	Ranger   cidranger.Ranger
	Prefixes int
	Logger   *log.Entry
}

// MakeASNMapper reads a prefix database with lines of the form
// "<prefix>/<len><TAB><asn>". Empty lines and lines starting with ';' are
// ignored.
func MakeASNMapper(r io.Reader) (*ASNMapper, error) {
	m := &ASNMapper{
		Ranger: cidranger.NewPCTrieRanger(),
		Logger: log.WithFields(log.Fields{
			"domain": "asn",
		}),
	}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: expected prefix and ASN", lineNo)
		}
		_, network, err := net.ParseCIDR(fields[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		asn, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid ASN: %w", lineNo, err)
		}
		if err := m.Ranger.Insert(&asnEntry{ipNet: *network, asn: asn}); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		m.Prefixes++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	m.Logger.WithField("prefixes", m.Prefixes).Info("prefix database loaded")
	return m, nil
}

// MakeASNMapperFromFile reads a prefix database from the given file.
func MakeASNMapperFromFile(path string) (*ASNMapper, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return MakeASNMapper(f)
}

// Lookup returns the ASN for the given address.
func (m *ASNMapper) Lookup(addr string) (int, bool) {
	ip := net.ParseIP(addr)
	if ip == nil {
		return 0, false
	}
	entries, err := m.Ranger.ContainingNetworks(ip)
	if err != nil || len(entries) == 0 {
		return 0, false
	}
	best := -1
	asn := 0
	for _, e := range entries {
		n := e.Network()
		ones, _ := n.Mask.Size()
		if ones > best {
			best = ones
			asn = e.(*asnEntry).asn
		}
	}
	return asn, true
}

// MTUGroup collects the TCP-side addresses of flagged resolver hop queries
// from windows sharing the same predominant MTU.
type MTUGroup struct {
	MTU       int
	Addresses []string
}

// flaggedMTUMode returns the most common UDP MTU among the flagged pairs.
// Ties go to the value seen first.
func flaggedMTUMode(pairs []FragmentationPair) (int, bool) {
	counts := make(map[int]int)
	var order []int
	for _, p := range pairs {
		m := p.UDPMTU()
		if _, ok := counts[m]; !ok {
			order = append(order, m)
		}
		counts[m]++
	}
	best, mode := 0, 0
	for _, m := range order {
		if counts[m] > best {
			best, mode = counts[m], m
		}
	}
	return mode, best > 0
}

// GroupFlaggedByMTU groups the flagged pairs of each result by the result's
// predominant MTU, in order of first appearance. Results without flagged
// pairs are ignored.
func GroupFlaggedByMTU(results []FragmentationResult) []MTUGroup {
	var groups []MTUGroup
	idx := make(map[int]int)
	for _, r := range results {
		mtu, ok := flaggedMTUMode(r.Flagged)
		if !ok {
			continue
		}
		i, ok := idx[mtu]
		if !ok {
			i = len(groups)
			idx[mtu] = i
			groups = append(groups, MTUGroup{MTU: mtu})
		}
		for _, p := range r.Flagged {
			groups[i].Addresses = append(groups[i].Addresses, p.TCP.Address)
		}
	}
	return groups
}

// ExcludeBaseline removes the baseline group and all addresses that also
// occur in it from the other groups.
func ExcludeBaseline(groups []MTUGroup, baseline int) []MTUGroup {
	seen := make(map[string]struct{})
	for _, g := range groups {
		if g.MTU != baseline {
			continue
		}
		for _, a := range g.Addresses {
			seen[a] = struct{}{}
		}
	}
	var out []MTUGroup
	for _, g := range groups {
		if g.MTU == baseline {
			continue
		}
		ng := MTUGroup{MTU: g.MTU}
		for _, a := range g.Addresses {
			if _, ok := seen[a]; !ok {
				ng.Addresses = append(ng.Addresses, a)
			}
		}
		out = append(out, ng)
	}
	return out
}

// ASNs maps the addresses of a group to ASNs, skipping unknown addresses.
func (m *ASNMapper) ASNs(g MTUGroup) []int {
	var asns []int
	for _, a := range g.Addresses {
		asn, ok := m.Lookup(a)
		if !ok {
			m.Logger.WithField("address", a).Debug("no prefix for address")
			continue
		}
		asns = append(asns, asn)
	}
	return asns
}

// WriteASNFiles writes one file "asn<MTU>.txt" per group into dir, with one
// ASN per line. It returns the names of the files written.
func (m *ASNMapper) WriteASNFiles(dir string, groups []MTUGroup) ([]string, error) {
	var files []string
	for _, g := range groups {
		name := filepath.Join(dir, fmt.Sprintf("asn%d.txt", g.MTU))
		f, err := os.Create(name)
		if err != nil {
			return files, err
		}
		w := bufio.NewWriter(f)
		for _, asn := range m.ASNs(g) {
			fmt.Fprintf(w, "%d\n", asn)
		}
		if err := w.Flush(); err != nil {
			f.Close()
			return files, err
		}
		if err := f.Close(); err != nil {
			return files, err
		}
		files = append(files, name)
	}
	return files, nil
}
