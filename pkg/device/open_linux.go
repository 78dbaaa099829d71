//go:build linux

package device

func open(kind Kind, name string, opts Options) (Device, error) {
	switch kind {
	case KindTAP, KindTUN:
		typ := TAP
		if kind == KindTUN {
			typ = TUN
		}
		t, err := OpenTunTap(TunTapConfig{Name: name, Type: typ, Persist: opts.Persist})
		if err != nil {
			return nil, err
		}
		return t, nil
	case KindRawSocket:
		r, err := OpenRawSocket(RawSocketConfig{
			Interface:   name,
			EtherTypes:  opts.EtherTypes,
			Promiscuous: opts.Promiscuous,
		})
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	return nil, ErrUnsupported
}
