// Package h2net provides the dial-side networking this module's
// client-only Transport actually uses: TCP/Unix connect plus
// read/write deadlines. Spec.md's Non-goals rule out a server role, so
// the teacher's listener/socket-option/address-introspection helpers
// (TCPListen, UnixListen, SetReceiveBuffer, SetBlocking, GetLocalAddr,
// GetRemoteAddr) have no caller here and were trimmed — see DESIGN.md.
package h2net

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// IsUnixSocket checks if the given path is a Unix socket path
func IsUnixSocket(path string) bool {
	return strings.HasPrefix(path, "/") || strings.HasPrefix(path, "@")
}

// ParseAddress parses an address string into host and port components.
// Supports formats: "host:port", "/path/to/socket", "@abstract-socket"
func ParseAddress(addr string) (host, port string, isUnix bool, err error) {
	if IsUnixSocket(addr) {
		return addr, "", true, nil
	}

	// Check for IPv6 addresses [host]:port
	if strings.HasPrefix(addr, "[") {
		endBracket := strings.Index(addr, "]")
		if endBracket == -1 {
			return "", "", false, fmt.Errorf("invalid IPv6 address format: %s", addr)
		}
		host = addr[1:endBracket]
		if len(addr) > endBracket+1 && addr[endBracket+1] == ':' {
			port = addr[endBracket+2:]
		}
		return host, port, false, nil
	}

	// Regular host:port format
	lastColon := strings.LastIndex(addr, ":")
	if lastColon == -1 {
		// No port specified
		return addr, "", false, nil
	}

	host = addr[:lastColon]
	port = addr[lastColon+1:]
	return host, port, false, nil
}

// TCPConnect establishes a TCP connection to the given address with timeout
func TCPConnect(addr string, timeout time.Duration) (net.Conn, error) {
	host, port, isUnix, err := ParseAddress(addr)
	if err != nil {
		return nil, err
	}

	if isUnix {
		return UnixConnect(host, timeout)
	}

	// Resolve the address
	var netAddr string
	if port != "" {
		netAddr = net.JoinHostPort(host, port)
	} else {
		netAddr = host
	}

	dialer := &net.Dialer{
		Timeout: timeout,
	}

	conn, err := dialer.Dial("tcp", netAddr)
	if err != nil {
		return nil, fmt.Errorf("TCP connect to %s failed: %w", netAddr, err)
	}

	return conn, nil
}

// UnixConnect establishes a Unix domain socket connection with timeout
func UnixConnect(path string, timeout time.Duration) (net.Conn, error) {
	network := "unix"
	addr := path

	// Handle abstract sockets (Linux-specific)
	if strings.HasPrefix(path, "@") {
		addr = "\x00" + path[1:]
	}

	dialer := &net.Dialer{
		Timeout: timeout,
	}

	conn, err := dialer.Dial(network, addr)
	if err != nil {
		return nil, fmt.Errorf("Unix connect to %s failed: %w", path, err)
	}

	return conn, nil
}

// SetReadTimeout sets the read timeout for a connection
func SetReadTimeout(conn net.Conn, timeout time.Duration) error {
	if timeout > 0 {
		return conn.SetReadDeadline(time.Now().Add(timeout))
	}
	return conn.SetReadDeadline(time.Time{})
}

// SetWriteTimeout sets the write timeout for a connection
func SetWriteTimeout(conn net.Conn, timeout time.Duration) error {
	if timeout > 0 {
		return conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	return conn.SetWriteDeadline(time.Time{})
}
