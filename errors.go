package mtu

import "errors"

// Error kinds returned by this package. Every error returned by
// InterfaceAndMTU and InterfaceAndMTUOfConn either matches one of these via
// errors.Is or wraps the underlying OS error untouched.
var (
	// ErrNoAddress is returned when neither a local nor a remote address
	// was supplied.
	ErrNoAddress = errors.New("mtu: neither local nor remote address given")

	// ErrAddrUnavailable is returned when a socket has no usable bound
	// local address, either because it is unbound or because it is bound
	// to the unspecified address.
	ErrAddrUnavailable = errors.New("mtu: socket local address unavailable")

	// ErrNoRoute is returned when the operating system reports no path to
	// the remote address.
	ErrNoRoute = errors.New("mtu: no route to destination")

	// ErrInterfaceNotFound is returned when the resolved interface index is
	// no longer present in the interface table, or when no interface owns
	// the given local address.
	ErrInterfaceNotFound = errors.New("mtu: interface not found")

	// ErrInterfaceDown is returned when the resolved interface is
	// administratively down.
	ErrInterfaceDown = errors.New("mtu: interface is down")

	// ErrInvalidMTU is returned when the operating system reports a
	// non-positive MTU for the resolved interface.
	ErrInvalidMTU = errors.New("mtu: interface reports no usable MTU")
)
