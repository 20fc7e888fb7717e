//go:build windows

package mtu

import (
	"errors"
	"math"
	"net"
	"net/netip"
	"strconv"
	"testing"

	"golang.org/x/sys/windows"
)

func TestRouteInterfaceWindows(t *testing.T) {
	remote := netip.MustParseAddr("192.0.2.100")

	tests := []struct {
		name      string
		index     int
		err       error
		wantIndex int
		wantKind  error
	}{
		{
			name:      "best interface found",
			index:     5,
			wantIndex: 5,
		},
		{
			name:     "network unreachable",
			err:      windows.ERROR_NETWORK_UNREACHABLE,
			wantKind: ErrNoRoute,
		},
		{
			name:     "host unreachable",
			err:      windows.ERROR_HOST_UNREACHABLE,
			wantKind: ErrNoRoute,
		},
		{
			name:     "zero index",
			index:    0,
			wantKind: ErrNoRoute,
		},
	}

	orig := fetchBestInterface
	defer func() { fetchBestInterface = orig }()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetchBestInterface = func(_ netip.Addr) (int, error) {
				return tt.index, tt.err
			}

			index, err := routeInterface(netip.Addr{}, remote)
			if tt.wantIndex > 0 {
				if err != nil {
					t.Fatalf("routeInterface() error = %v", err)
				}
				if index != tt.wantIndex {
					t.Errorf("index = %d, want %d", index, tt.wantIndex)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantKind != nil && !errors.Is(err, tt.wantKind) {
				t.Errorf("error = %v, want %v", err, tt.wantKind)
			}
		})
	}
}

func TestInterfaceMTUWindows(t *testing.T) {
	orig := fetchAdapters
	defer func() { fetchAdapters = orig }()

	fetchAdapters = func() ([]*windows.IpAdapterAddresses, error) {
		return []*windows.IpAdapterAddresses{
			{IfIndex: 5, Ipv6IfIndex: 5, Mtu: 1500},
			{IfIndex: 9, Ipv6IfIndex: 12, Mtu: 9000},
		}, nil
	}

	tests := []struct {
		name    string
		ifc     Interface
		wantMTU int
		wantErr error
	}{
		{"match on IPv4 index", Interface{Name: "Ethernet", Index: 5}, 1500, nil},
		{"match on IPv6 index", Interface{Name: "Ethernet 2", Index: 12}, 9000, nil},
		{"vanished adapter", Interface{Name: "gone", Index: 42}, 0, ErrInterfaceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := interfaceMTU(&tt.ifc)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("interfaceMTU() error = %v", err)
			}
			if m != tt.wantMTU {
				t.Errorf("MTU = %d, want %d", m, tt.wantMTU)
			}
		})
	}
}

func TestInterfaceMTUWindowsLoopbackScale(t *testing.T) {
	orig := fetchAdapters
	defer func() { fetchAdapters = orig }()

	fetchAdapters = func() ([]*windows.IpAdapterAddresses, error) {
		return []*windows.IpAdapterAddresses{
			{IfIndex: 20, Ipv6IfIndex: 20, Mtu: math.MaxUint32},
		}, nil
	}

	m, err := interfaceMTU(&Interface{Name: "Loopback", Index: 20})
	if err != nil {
		t.Fatalf("interfaceMTU() error = %v", err)
	}
	// The loopback adapter's 0xFFFFFFFF must stay positive on every build;
	// on 64-bit targets it is passed through unmodified.
	if m <= 0 {
		t.Errorf("MTU = %d, want > 0", m)
	}
	if strconv.IntSize == 64 && int64(m) != math.MaxUint32 {
		t.Errorf("MTU = %d, want %d", m, int64(math.MaxUint32))
	}
}

func TestInterfaceAndMTUDegradedWindows(t *testing.T) {
	remote := netip.MustParseAddr("192.0.2.100")

	origBest, origAdapters, origIfs := fetchBestInterface, fetchAdapters, fetchInterfaces
	defer func() {
		fetchBestInterface, fetchAdapters, fetchInterfaces = origBest, origAdapters, origIfs
	}()

	fetchBestInterface = func(_ netip.Addr) (int, error) { return 9, nil }
	fetchAdapters = func() ([]*windows.IpAdapterAddresses, error) {
		return []*windows.IpAdapterAddresses{{IfIndex: 9, Ipv6IfIndex: 9, Mtu: 0}}, nil
	}

	tests := []struct {
		name string
		ifs  []net.Interface
		want error
	}{
		{
			name: "interface vanished after route lookup",
			ifs:  []net.Interface{{Name: "Ethernet", Index: 1, Flags: net.FlagUp}},
			want: ErrInterfaceNotFound,
		},
		{
			name: "interface down",
			ifs:  []net.Interface{{Name: "Ethernet 9", Index: 9}},
			want: ErrInterfaceDown,
		},
		{
			name: "zero MTU",
			ifs:  []net.Interface{{Name: "Ethernet 9", Index: 9, Flags: net.FlagUp}},
			want: ErrInvalidMTU,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetchInterfaces = func() ([]net.Interface, error) { return tt.ifs, nil }

			_, _, err := InterfaceAndMTU(netip.Addr{}, remote)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoopbackMTUWindows(t *testing.T) {
	_, m, err := InterfaceAndMTU(netip.Addr{}, netip.MustParseAddr("127.0.0.1"))
	if err != nil {
		t.Fatalf("InterfaceAndMTU() error = %v", err)
	}
	// The Windows loopback adapter reports an MTU far above the 65,535-byte
	// IP maximum; the value is passed through unmodified.
	if m <= 0 {
		t.Errorf("MTU = %d, want > 0", m)
	}
}
