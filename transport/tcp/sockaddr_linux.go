//go:build linux
// +build linux

// File: transport/tcp/sockaddr_linux.go
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"errors"
	"net"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-net/api"
)

// resolveSockaddr turns "host:port" into a socket address and its family.
// An empty host binds the IPv4 wildcard.
func resolveSockaddr(address string) (unix.Sockaddr, int, error) {
	addr, err := net.ResolveTCPAddr("tcp", address)
	if err != nil {
		return nil, 0, api.NewError(api.ErrCodeInvalid, err.Error()).WithContext("address", address)
	}
	if addr.IP == nil || addr.IP.To4() != nil {
		sa := &unix.SockaddrInet4{Port: addr.Port}
		if addr.IP != nil {
			copy(sa.Addr[:], addr.IP.To4())
		}
		return sa, unix.AF_INET, nil
	}
	sa := &unix.SockaddrInet6{Port: addr.Port}
	copy(sa.Addr[:], addr.IP.To16())
	if addr.Zone != "" {
		if ifi, err := net.InterfaceByName(addr.Zone); err == nil {
			sa.ZoneId = uint32(ifi.Index)
		}
	}
	return sa, unix.AF_INET6, nil
}

// tcpAddr converts a kernel socket address for display.
func tcpAddr(sa unix.Sockaddr) net.Addr {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IP(append([]byte(nil), a.Addr[:]...)), Port: a.Port}
	case *unix.SockaddrInet6:
		addr := &net.TCPAddr{IP: net.IP(append([]byte(nil), a.Addr[:]...)), Port: a.Port}
		if a.ZoneId != 0 {
			if ifi, err := net.InterfaceByIndex(int(a.ZoneId)); err == nil {
				addr.Zone = ifi.Name
			}
		}
		return addr
	}
	return nil
}

// sysError maps a failed setup syscall onto the api taxonomy.
func sysError(op string, err error) error {
	var errno unix.Errno
	if errors.As(err, &errno) {
		return api.ErrorFromErrno(op, errno)
	}
	return err
}
