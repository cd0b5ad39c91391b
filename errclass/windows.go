//go:build windows

// SPDX-License-Identifier: GPL-3.0-or-later

package errclass

import "golang.org/x/sys/windows"

const (
	errEACCES       = windows.WSAEACCES
	errEAFNOSUPPORT = windows.WSAEAFNOSUPPORT
	errEINPROGRESS  = windows.WSAEINPROGRESS
	errEMFILE       = windows.WSAEMFILE
	errENFILE       = windows.ERROR_TOO_MANY_OPEN_FILES
)
