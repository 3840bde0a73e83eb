//go:build windows

package netio

import "golang.org/x/net/icmp"

// enableRecvOptions is a no-op on Windows; SO_TIMESTAMP support there
// requires WSAIoctl plumbing this module doesn't need badly enough to
// carry the extra platform-specific path.
func enableRecvOptions(conn *icmp.PacketConn) {}
