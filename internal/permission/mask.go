package permission

type Mask64 uint64

func (m Mask64) Has(p Permission) bool {
	if !p.Valid() {
		return false
	}
	return m&(1<<p) != 0
}

func (m *Mask64) Set(p Permission) {
	if !p.Valid() {
		return
	}
	*m |= 1 << p
}

func (m *Mask64) Clear(p Permission) {
	if !p.Valid() {
		return
	}
	*m &^= 1 << p
}

func MaskOf(ps ...Permission) Mask64 {
	var m Mask64
	for _, p := range ps {
		m.Set(p)
	}
	return m
}

func fullMask() Mask64 {
	return MaskOf(All()...)
}
