//go:build unix

package netio

import (
	"golang.org/x/net/icmp"
	"golang.org/x/sys/unix"
)

// enableRecvOptions turns on SO_TIMESTAMP for an ICMP listen socket,
// best-effort, ignoring errors. The kernel timestamp is never read back:
// Reply.RecvTime is always taken in userspace (Conn.Poll sets it to the
// reactor's poll time).
func enableRecvOptions(conn *icmp.PacketConn) {
	sc, err := conn.SyscallConn()
	if err != nil {
		return
	}
	_ = sc.Control(func(fd uintptr) {
		_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_TIMESTAMP, 1)
	})
}
