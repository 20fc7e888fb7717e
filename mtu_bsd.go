//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package mtu

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"sync/atomic"

	"golang.org/x/net/route"
	"golang.org/x/sys/unix"
)

// routeSeq distinguishes concurrent routing-socket requests from one process;
// replies are matched on (pid, seq) since the socket also sees messages for
// other processes.
var routeSeq atomic.Int32

// fetchRouteReply performs one RTM_GET round trip over a routing socket and
// returns the matching reply. Variable for mocking in tests.
var fetchRouteReply = func(remote netip.Addr) (*route.RouteMessage, error) {
	fd, err := unix.Socket(unix.AF_ROUTE, unix.SOCK_RAW, unix.AF_UNSPEC)
	if err != nil {
		return nil, fmt.Errorf("failed to open routing socket: %w", err)
	}
	defer unix.Close(fd)

	var dst route.Addr
	if remote.Is4() {
		dst = &route.Inet4Addr{IP: remote.As4()}
	} else {
		dst = &route.Inet6Addr{IP: remote.As16(), ZoneID: zoneIndex(remote.Zone())}
	}

	pid := os.Getpid()
	seq := int(routeSeq.Add(1))
	msg := &route.RouteMessage{
		Version: unix.RTM_VERSION,
		Type:    unix.RTM_GET,
		ID:      uintptr(pid),
		Seq:     seq,
		Addrs:   []route.Addr{unix.RTAX_DST: dst},
	}
	b, err := msg.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal route request: %w", err)
	}
	if _, err := unix.Write(fd, b); err != nil {
		// The kernel rejects the request synchronously when the
		// destination is not in the route table.
		if errors.Is(err, unix.ESRCH) || errors.Is(err, unix.ENETUNREACH) {
			return nil, fmt.Errorf("%w: %s", ErrNoRoute, remote)
		}
		return nil, fmt.Errorf("failed to send route request: %w", err)
	}

	buf := make([]byte, 2048)
	for {
		n, err := unix.Read(fd, buf)
		if err != nil {
			return nil, fmt.Errorf("failed to read route reply: %w", err)
		}
		msgs, err := route.ParseRIB(route.RIBTypeRoute, buf[:n])
		if err != nil {
			return nil, fmt.Errorf("malformed route reply: %w", err)
		}
		for _, m := range msgs {
			rm, ok := m.(*route.RouteMessage)
			if !ok || rm.Seq != seq || rm.ID != uintptr(pid) {
				continue
			}
			if rm.Err != nil {
				if errors.Is(rm.Err, unix.ESRCH) || errors.Is(rm.Err, unix.ENETUNREACH) || errors.Is(rm.Err, unix.EHOSTUNREACH) {
					return nil, fmt.Errorf("%w: %s", ErrNoRoute, remote)
				}
				return nil, fmt.Errorf("route lookup for %s failed: %w", remote, rm.Err)
			}
			return rm, nil
		}
	}
}

// routeInterface resolves the egress interface index for remote with an
// RTM_GET query. The local address does not participate; source selection is
// left to the kernel.
func routeInterface(_, remote netip.Addr) (int, error) {
	rm, err := fetchRouteReply(remote)
	if err != nil {
		return 0, err
	}
	// Prefer the link-level address when the kernel included one; the
	// message header index is the fallback.
	if la, ok := linkAddrOf(rm); ok && la.Index > 0 {
		return la.Index, nil
	}
	if rm.Index > 0 {
		return rm.Index, nil
	}
	return 0, fmt.Errorf("route reply for %s carries no interface index", remote)
}

func linkAddrOf(rm *route.RouteMessage) (*route.LinkAddr, bool) {
	if len(rm.Addrs) > unix.RTAX_IFP {
		if la, ok := rm.Addrs[unix.RTAX_IFP].(*route.LinkAddr); ok && la != nil {
			return la, true
		}
	}
	return nil, false
}

// fetchInterfaceRIB reads the kernel interface-enumeration table for a single
// interface index. Variable for mocking in tests.
var fetchInterfaceRIB = func(index int) ([]route.Message, error) {
	b, err := route.FetchRIB(unix.AF_UNSPEC, route.RIBTypeInterface, index)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch interface table: %w", err)
	}
	msgs, err := route.ParseRIB(route.RIBTypeInterface, b)
	if err != nil {
		return nil, fmt.Errorf("malformed interface table: %w", err)
	}
	return msgs, nil
}

// interfaceMTU reads the interface's current MTU from the kernel interface
// table.
func interfaceMTU(ifc *Interface) (int, error) {
	msgs, err := fetchInterfaceRIB(ifc.Index)
	if err != nil {
		return 0, err
	}
	for _, m := range msgs {
		im, ok := m.(*route.InterfaceMessage)
		if !ok || im.Index != ifc.Index {
			continue
		}
		for _, sys := range im.Sys() {
			if metrics, ok := sys.(*route.InterfaceMetrics); ok {
				return metrics.MTU, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrInterfaceNotFound, ifc.Name)
}
