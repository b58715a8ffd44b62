//go:build !linux

package platform

import "fmt"

func openX11(string) (Toolkit, error) {
	return nil, fmt.Errorf("x11 backend is only available on linux")
}
