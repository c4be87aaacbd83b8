package mailer

import (
	"context"
	"errors"
	"net"
	"syscall"
)

// isReachabilityErr classifies a dial failure as network-level: connection
// refused, host/network unreachable, timeout or DNS failure. Auth and
// protocol errors (e.g. 535 replies) are deliberately not in this class.
func isReachabilityErr(err error) bool {
	if err == nil {
		return false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	for _, errno := range []syscall.Errno{
		syscall.ECONNREFUSED,
		syscall.EHOSTUNREACH,
		syscall.ENETUNREACH,
		syscall.ENETDOWN,
		syscall.ETIMEDOUT,
	} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}
