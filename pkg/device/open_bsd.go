//go:build darwin || freebsd

package device

func open(kind Kind, name string, _ Options) (Device, error) {
	if kind == KindBPF {
		b, err := OpenBPF(name)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	return nil, ErrUnsupported
}
