//go:build windows

package mtu

import (
	"errors"
	"fmt"
	"math"
	"net/netip"
	"unsafe"

	"golang.org/x/sys/windows"
)

// fetchBestInterface asks the IP helper API for the index of the best
// outbound interface toward remote. Variable for mocking in tests.
var fetchBestInterface = func(remote netip.Addr) (int, error) {
	var index uint32
	if remote.Is4() {
		sa := windows.RawSockaddrInet4{
			Family: windows.AF_INET,
			Addr:   remote.As4(),
		}
		if err := windows.GetBestInterfaceEx(unsafe.Pointer(&sa), &index); err != nil {
			return 0, err
		}
	} else {
		sa := windows.RawSockaddrInet6{
			Family:   windows.AF_INET6,
			Addr:     remote.As16(),
			Scope_id: uint32(zoneIndex(remote.Zone())),
		}
		if err := windows.GetBestInterfaceEx(unsafe.Pointer(&sa), &index); err != nil {
			return 0, err
		}
	}
	return int(index), nil
}

// routeInterface resolves the egress interface index for remote. The best
// route decision is the OS API's own; this engine does not re-implement
// prefix matching. The local address does not participate.
func routeInterface(_, remote netip.Addr) (int, error) {
	index, err := fetchBestInterface(remote)
	if err != nil {
		if errors.Is(err, windows.ERROR_NETWORK_UNREACHABLE) || errors.Is(err, windows.ERROR_HOST_UNREACHABLE) {
			return 0, fmt.Errorf("%w: %s", ErrNoRoute, remote)
		}
		return 0, fmt.Errorf("best-interface lookup for %s failed: %w", remote, err)
	}
	if index == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoRoute, remote)
	}
	return index, nil
}

// fetchAdapters walks the adapter table. The required buffer size is not
// known in advance: the call is probed with a default size and retried
// exactly once with the size the OS reports, per the documented API
// protocol. Variable for mocking in tests.
var fetchAdapters = func() ([]*windows.IpAdapterAddresses, error) {
	size := uint32(15000)
	var buf []byte
	for attempt := 0; ; attempt++ {
		buf = make([]byte, size)
		err := windows.GetAdaptersAddresses(windows.AF_UNSPEC, windows.GAA_FLAG_INCLUDE_PREFIX, 0,
			(*windows.IpAdapterAddresses)(unsafe.Pointer(&buf[0])), &size)
		if err == nil {
			break
		}
		if !errors.Is(err, windows.ERROR_BUFFER_OVERFLOW) || attempt > 0 || size <= uint32(len(buf)) {
			return nil, fmt.Errorf("failed to fetch adapter table: %w", err)
		}
	}
	var rows []*windows.IpAdapterAddresses
	for aa := (*windows.IpAdapterAddresses)(unsafe.Pointer(&buf[0])); aa != nil; aa = aa.Next {
		rows = append(rows, aa)
	}
	return rows, nil
}

// interfaceMTU reads the interface's current MTU from the adapter table.
// Loopback adapters report an MTU far above the maximum IP packet size; the
// value is passed through as-is wherever it fits the platform int.
func interfaceMTU(ifc *Interface) (int, error) {
	rows, err := fetchAdapters()
	if err != nil {
		return 0, err
	}
	for _, aa := range rows {
		if int(aa.IfIndex) == ifc.Index || int(aa.Ipv6IfIndex) == ifc.Index {
			// Loopback adapters report an MTU of 0xFFFFFFFF, which does
			// not fit a 32-bit int; saturate so the value stays positive
			// instead of wrapping negative on 386/arm builds.
			m := int64(aa.Mtu)
			if m > math.MaxInt {
				m = math.MaxInt
			}
			return int(m), nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrInterfaceNotFound, ifc.Name)
}
