//go:build linux

package mtu

import (
	"errors"
	"fmt"
	"net/netip"

	"github.com/jsimonetti/rtnetlink"
	"golang.org/x/sys/unix"
)

// fetchRoute asks the kernel which route it would use to reach remote,
// optionally hinting the source address. Variable for mocking in tests.
var fetchRoute = func(local, remote netip.Addr) ([]rtnetlink.RouteMessage, error) {
	c, err := rtnetlink.Dial(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open netlink route socket: %w", err)
	}
	defer c.Close()

	af := unix.AF_INET
	if remote.Is6() {
		af = unix.AF_INET6
	}

	attr := rtnetlink.RouteAttributes{Dst: remote.AsSlice()}
	if local.IsValid() {
		attr.Src = local.AsSlice()
	}
	if index := zoneIndex(remote.Zone()); index > 0 {
		attr.OutIface = uint32(index)
	}

	tx := &rtnetlink.RouteMessage{
		Family:     uint8(af),
		Table:      unix.RT_TABLE_MAIN,
		Attributes: attr,
	}
	return c.Route.Get(tx)
}

// fetchLink retrieves the link with the given interface index.
// Variable for mocking in tests.
var fetchLink = func(index uint32) (rtnetlink.LinkMessage, error) {
	c, err := rtnetlink.Dial(nil)
	if err != nil {
		return rtnetlink.LinkMessage{}, fmt.Errorf("failed to open netlink route socket: %w", err)
	}
	defer c.Close()
	return c.Link.Get(index)
}

// routeInterface resolves the egress interface index for remote with an
// RTM_GETROUTE query. The kernel answers with the single most specific
// route; its output interface is the answer.
func routeInterface(local, remote netip.Addr) (int, error) {
	msgs, err := fetchRoute(local, remote)
	if err != nil {
		if errors.Is(err, unix.ENETUNREACH) || errors.Is(err, unix.EHOSTUNREACH) {
			return 0, fmt.Errorf("%w: %s", ErrNoRoute, remote)
		}
		return 0, fmt.Errorf("route lookup for %s failed: %w", remote, err)
	}
	if len(msgs) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoRoute, remote)
	}
	index := msgs[0].Attributes.OutIface
	if index == 0 {
		return 0, fmt.Errorf("route reply for %s carries no output interface", remote)
	}
	return int(index), nil
}

// interfaceMTU reads the link's current MTU with an RTM_GETLINK query on the
// same netlink channel the route lookup uses.
func interfaceMTU(ifc *Interface) (int, error) {
	msg, err := fetchLink(uint32(ifc.Index))
	if err != nil {
		if errors.Is(err, unix.ENODEV) {
			return 0, fmt.Errorf("%w: %s", ErrInterfaceNotFound, ifc.Name)
		}
		return 0, fmt.Errorf("link lookup for %s failed: %w", ifc.Name, err)
	}
	if msg.Attributes == nil {
		return 0, fmt.Errorf("link reply for %s carries no attributes", ifc.Name)
	}
	return int(msg.Attributes.MTU), nil
}
