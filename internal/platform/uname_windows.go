//go:build windows

package platform

import "errors"

func uname() (sysname, release string, err error) {
	return "", "", errors.New("uname is not available on windows")
}
