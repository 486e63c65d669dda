//go:build !windows

package platform

import "golang.org/x/sys/unix"

func uname() (sysname, release string, err error) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return "", "", err
	}
	return unix.ByteSliceToString(u.Sysname[:]), unix.ByteSliceToString(u.Release[:]), nil
}
