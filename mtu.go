// Package mtu reports the name and maximum transmission unit (MTU) of the
// local network interface the operating system would use to send traffic
// toward a given remote address.
//
// Resolution delegates to the kernel's own route selection: a netlink query
// on Linux, an AF_ROUTE routing socket on macOS and the BSDs, and the IP
// helper API on Windows. The routing table is never re-implemented or
// second-guessed. Every call performs a fresh query; nothing is cached, no
// interface identity is reused across calls, and no packets are transmitted.
//
// The returned MTU is passed through from the operating system unmodified.
// It may exceed the 65,535-byte maximum IP packet size for some destinations
// (loopback on Windows, for example); that is expected and not an error.
//
// All calls block until the operating system answers and apply no timeout of
// their own. Callers that need bounded latency should impose a deadline
// around the call. Concurrent calls are independent; the package holds no
// shared mutable state between calls.
package mtu

import (
	"fmt"
	"net"
	"net/netip"
)

// LocalAddrer is the subset of net.Conn and net.PacketConn needed to resolve
// the interface and MTU of an already-bound socket.
type LocalAddrer interface {
	LocalAddr() net.Addr
}

// InterfaceAndMTU returns the name and MTU of the interface that would carry
// traffic between local and remote. Either address may be the zero
// netip.Addr, meaning "unset":
//
//   - If remote is set, the kernel's route to remote decides the interface.
//     A set local address is passed along as a source hint where the
//     platform supports one; precedence between a conflicting local address
//     and the route table is the operating system's call.
//   - If only local is set, the result is the interface that owns local,
//     with no route lookup.
//   - If neither is set, ErrNoAddress is returned before any OS call.
func InterfaceAndMTU(local, remote netip.Addr) (string, int, error) {
	if !local.IsValid() && !remote.IsValid() {
		return "", 0, ErrNoAddress
	}
	return interfaceAndMTU(local.Unmap(), remote.Unmap())
}

// InterfaceAndMTUOfConn returns the name and MTU of the interface that owns
// the socket's bound local address, as reported by the socket itself. The
// socket must be bound to a specific address; unbound or wildcard-bound
// sockets yield ErrAddrUnavailable.
func InterfaceAndMTUOfConn(conn LocalAddrer) (string, int, error) {
	if conn == nil {
		return "", 0, ErrAddrUnavailable
	}
	local, err := boundAddr(conn)
	if err != nil {
		return "", 0, err
	}
	return interfaceAndMTU(local, netip.Addr{})
}

// boundAddr extracts the socket's bound IP address.
func boundAddr(conn LocalAddrer) (netip.Addr, error) {
	la := conn.LocalAddr()
	if la == nil {
		return netip.Addr{}, ErrAddrUnavailable
	}
	var ip netip.Addr
	switch a := la.(type) {
	case *net.UDPAddr:
		ip = a.AddrPort().Addr()
	case *net.TCPAddr:
		ip = a.AddrPort().Addr()
	case *net.IPAddr:
		ip, _ = netip.AddrFromSlice(a.IP)
		ip = ip.WithZone(a.Zone)
	default:
		host, _, err := net.SplitHostPort(la.String())
		if err != nil {
			host = la.String()
		}
		ip, _ = netip.ParseAddr(host)
	}
	ip = ip.Unmap()
	if !ip.IsValid() || ip.IsUnspecified() {
		return netip.Addr{}, fmt.Errorf("%w: socket bound to %v", ErrAddrUnavailable, la)
	}
	return ip, nil
}

// interfaceAndMTU runs the portable resolution flow: pick the egress
// interface, confirm it is still present and up, then ask the OS for its
// current MTU.
func interfaceAndMTU(local, remote netip.Addr) (string, int, error) {
	var ifc *Interface
	if remote.IsValid() {
		index, err := routeInterface(local, remote)
		if err != nil {
			return "", 0, err
		}
		cat, err := readCatalog()
		if err != nil {
			return "", 0, err
		}
		// The index can go stale the moment the route query returns, so it
		// is checked against the live interface table before use.
		ifc = cat.byIndex(index)
		if ifc == nil {
			return "", 0, fmt.Errorf("%w: index %d vanished after route lookup", ErrInterfaceNotFound, index)
		}
	} else {
		cat, err := readCatalog()
		if err != nil {
			return "", 0, err
		}
		ifc = cat.ownerOf(local)
		if ifc == nil {
			return "", 0, fmt.Errorf("%w: no interface owns %s", ErrInterfaceNotFound, local)
		}
	}
	if ifc.Flags&net.FlagUp == 0 {
		return "", 0, fmt.Errorf("%w: %s", ErrInterfaceDown, ifc.Name)
	}
	m, err := interfaceMTU(ifc)
	if err != nil {
		return "", 0, err
	}
	if m <= 0 {
		return "", 0, fmt.Errorf("%w: %s reports %d", ErrInvalidMTU, ifc.Name, m)
	}
	return ifc.Name, m, nil
}
