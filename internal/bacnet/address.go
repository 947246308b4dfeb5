package bacnet

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// Address is a protocol network address: a network number and the MAC
// address of the station on that network.
//
// Network 0 means "the local network". On BACnet/IP the MAC is six bytes:
// four bytes of IPv4 address followed by the UDP port, big-endian.
type Address struct {
	Net uint16 `cbor:"1,keyasint" json:"net"`
	MAC []byte `cbor:"2,keyasint" json:"mac"`
}

// Address formatting constants.
const (
	// ipMACLen is the MAC length of a BACnet/IP station (IPv4 + port).
	ipMACLen = 6

	// ipv4Len is the length of the IPv4 part of an IP MAC.
	ipv4Len = 4

	// netSeparator separates the network number from the MAC in String().
	netSeparator = "@"
)

// NewIPAddress builds a local-network BACnet/IP address from an IPv4 address
// and UDP port.
func NewIPAddress(ap netip.AddrPort) (Address, error) {
	ip := ap.Addr().Unmap()
	if !ip.Is4() {
		return Address{}, fmt.Errorf("%w: %s is not an IPv4 address", ErrInvalidAddress, ap.Addr())
	}
	mac := make([]byte, ipMACLen)
	v4 := ip.As4()
	copy(mac, v4[:])
	binary.BigEndian.PutUint16(mac[ipv4Len:], ap.Port())
	return Address{MAC: mac}, nil
}

// String renders the address.
//
// Examples:
//
//	192.168.1.20:47808     (IP station on the local network)
//	5@0a                   (MS/TP station 0x0a on network 5)
func (a Address) String() string {
	var mac string
	if len(a.MAC) == ipMACLen {
		ip := netip.AddrFrom4([ipv4Len]byte(a.MAC[:ipv4Len]))
		port := binary.BigEndian.Uint16(a.MAC[ipv4Len:])
		mac = netip.AddrPortFrom(ip, port).String()
	} else {
		mac = hex.EncodeToString(a.MAC)
	}

	if a.Net == 0 {
		return mac
	}
	return strconv.Itoa(int(a.Net)) + netSeparator + mac
}

// ParseAddress parses the String() form. An IPv4 "host:port" MAC is encoded
// as a six-byte IP MAC; anything else must be a hex string.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Address{}, fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}

	var network uint16
	macPart := s
	if before, after, found := strings.Cut(s, netSeparator); found {
		n, err := strconv.ParseUint(before, 10, 16)
		if err != nil {
			return Address{}, fmt.Errorf("%w: network must be 0-65535, got %q", ErrInvalidAddress, before)
		}
		network = uint16(n)
		macPart = after
	}

	if ap, err := netip.ParseAddrPort(macPart); err == nil {
		addr, err := NewIPAddress(ap)
		if err != nil {
			return Address{}, err
		}
		addr.Net = network
		return addr, nil
	}

	mac, err := hex.DecodeString(strings.ReplaceAll(macPart, ":", ""))
	if err != nil || len(mac) == 0 {
		return Address{}, fmt.Errorf("%w: MAC must be host:port or hex, got %q", ErrInvalidAddress, macPart)
	}
	return Address{Net: network, MAC: mac}, nil
}

// Equal reports whether two addresses name the same station.
func (a Address) Equal(b Address) bool {
	return a.Net == b.Net && bytes.Equal(a.MAC, b.MAC)
}

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool {
	return a.Net == 0 && len(a.MAC) == 0
}

// Clone returns a copy that does not share the MAC backing array.
func (a Address) Clone() Address {
	if a.MAC == nil {
		return Address{Net: a.Net}
	}
	return Address{Net: a.Net, MAC: bytes.Clone(a.MAC)}
}
