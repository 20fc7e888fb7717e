package mtu

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"
)

// Interface identifies a live local network interface. The identity is only
// valid for the duration of a single resolution call; interfaces can appear
// and disappear between calls.
type Interface struct {
	Name  string
	Index int
	Flags net.Flags
	Addrs []netip.Addr
}

// fetchInterfaces enumerates the live interfaces.
// Variable for mocking in tests.
var fetchInterfaces = func() ([]net.Interface, error) { return net.Interfaces() }

// catalog is a point-in-time snapshot of the local interfaces. It is rebuilt
// on every call and never kept across calls.
type catalog []Interface

func readCatalog() (catalog, error) {
	ifs, err := fetchInterfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate interfaces: %w", err)
	}
	cat := make(catalog, 0, len(ifs))
	for _, ifc := range ifs {
		entry := Interface{Name: ifc.Name, Index: ifc.Index, Flags: ifc.Flags}
		addrs, err := ifc.Addrs()
		if err != nil {
			// The interface may have vanished mid-enumeration; keep the
			// identity so index lookups still resolve.
			cat = append(cat, entry)
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch a := addr.(type) {
			case *net.IPNet:
				ip = a.IP
			case *net.IPAddr:
				ip = a.IP
			default:
				continue
			}
			if a, ok := netip.AddrFromSlice(ip); ok {
				entry.Addrs = append(entry.Addrs, a.Unmap())
			}
		}
		cat = append(cat, entry)
	}
	return cat, nil
}

// byIndex returns the interface with the given OS index, or nil if it is no
// longer present.
func (c catalog) byIndex(index int) *Interface {
	for i := range c {
		if c[i].Index == index {
			return &c[i]
		}
	}
	return nil
}

// ownerOf returns the interface that has ip assigned, or nil. A zone on ip
// restricts the match to the named (or numbered) interface.
func (c catalog) ownerOf(ip netip.Addr) *Interface {
	zone := ip.Zone()
	want := ip.Unmap().WithZone("")
	for i := range c {
		if zone != "" && zone != c[i].Name && zone != strconv.Itoa(c[i].Index) {
			continue
		}
		for _, a := range c[i].Addrs {
			if a == want {
				return &c[i]
			}
		}
	}
	return nil
}

// zoneIndex maps an IPv6 zone to an interface index, accepting either an
// interface name or a numeric index. Returns 0 for no zone or an unknown one.
func zoneIndex(zone string) int {
	if zone == "" {
		return 0
	}
	if ifc, err := net.InterfaceByName(zone); err == nil {
		return ifc.Index
	}
	if n, err := strconv.Atoi(zone); err == nil {
		return n
	}
	return 0
}
