package util

import (
	"fmt"
	"net"
	"strconv"
)

// ResolveAddr builds a host:port string, validating that the host is a
// numeric IP when noDNS is true.
func ResolveAddr(host string, port int, noDNS bool) (string, error) {
	if noDNS {
		if net.ParseIP(host) == nil {
			return "", fmt.Errorf("cannot parse %q as an IP address (DNS disabled with -n)", host)
		}
	}
	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

// FormatAddr returns "host:port".
func FormatAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Endpoint returns the network and address to dial: the unix socket
// path when one is set, otherwise host:port over TCP.
func Endpoint(unixPath, host string, port int) (network, address string) {
	if unixPath != "" {
		return "unix", unixPath
	}
	return "tcp", FormatAddr(host, port)
}
