//go:build !linux && !darwin && !freebsd

package device

func open(Kind, string, Options) (Device, error) {
	return nil, ErrUnsupported
}
