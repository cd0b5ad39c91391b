// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package errclass implements error classification.

This package extends [github.com/rbmk-project/common/errclass] with the
errors that we may get while creating and connecting many non-blocking
sockets at once (e.g., [EMFILE] when running out of descriptors), and
delegates everything else to it.

# Socket Errors

- [EACCES], [EAFNOSUPPORT], [EINPROGRESS], [EMFILE], [ENFILE] for the
respective syscall errors, which are defined in platform-specific files
(unix.go and windows.go)

# Fallback

- every other error is classified by [errclass.New]
*/
package errclass

import (
	"errors"

	"github.com/rbmk-project/common/errclass"
)

const (
	//
	// Errors shared with the common package:
	//

	// EADDRNOTAVAIL is the address not available error.
	EADDRNOTAVAIL = errclass.EADDRNOTAVAIL

	// EADDRINUSE is the address in use error.
	EADDRINUSE = errclass.EADDRINUSE

	// ECONNABORTED is the connection aborted error.
	ECONNABORTED = errclass.ECONNABORTED

	// ECONNREFUSED is the connection refused error.
	ECONNREFUSED = errclass.ECONNREFUSED

	// ECONNRESET is the connection reset by peer error.
	ECONNRESET = errclass.ECONNRESET

	// EHOSTUNREACH is the host unreachable error.
	EHOSTUNREACH = errclass.EHOSTUNREACH

	// EEOF indicates an unexpected EOF.
	EEOF = errclass.EEOF

	// EINVAL is the invalid argument error.
	EINVAL = errclass.EINVAL

	// EINTR is the interrupted system call error.
	EINTR = errclass.EINTR

	// ENETDOWN is the network is down error.
	ENETDOWN = errclass.ENETDOWN

	// ENETUNREACH is the network unreachable error.
	ENETUNREACH = errclass.ENETUNREACH

	// ENOBUFS is the no buffer space available error.
	ENOBUFS = errclass.ENOBUFS

	// ENOTCONN is the not connected error.
	ENOTCONN = errclass.ENOTCONN

	// EPROTONOSUPPORT is the protocol not supported error.
	EPROTONOSUPPORT = errclass.EPROTONOSUPPORT

	// ETIMEDOUT is the operation timed out error.
	ETIMEDOUT = errclass.ETIMEDOUT

	// EDNS_NONAME is the DNS error for "no such host".
	EDNS_NONAME = errclass.EDNS_NONAME

	// EDNS_NODATA is the DNS error for "no answer".
	EDNS_NODATA = errclass.EDNS_NODATA

	// EGENERIC is the generic, unclassified error.
	EGENERIC = errclass.EGENERIC

	//
	// Socket errors classified by this package:
	//

	// EACCES is the permission denied error.
	EACCES = "EACCES"

	// EAFNOSUPPORT is the address family not supported error.
	EAFNOSUPPORT = "EAFNOSUPPORT"

	// EINPROGRESS is the operation in progress error.
	EINPROGRESS = "EINPROGRESS"

	// EMFILE is the too many open files (per process) error.
	EMFILE = "EMFILE"

	// ENFILE is the too many open files (system wide) error.
	ENFILE = "ENFILE"
)

// socketErrorsMap contains the socket errors we map with [errors.Is].
var socketErrorsMap = map[error]string{
	errEACCES:       EACCES,
	errEAFNOSUPPORT: EAFNOSUPPORT,
	errEINPROGRESS:  EINPROGRESS,
	errEMFILE:       EMFILE,
	errENFILE:       ENFILE,
}

// New creates a new error class from the given error.
func New(err error) string {
	if err == nil {
		return ""
	}
	for candidate, class := range socketErrorsMap {
		if errors.Is(err, candidate) {
			return class
		}
	}
	return errclass.New(err)
}
