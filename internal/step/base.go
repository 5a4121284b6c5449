package step

// Base provides common plumbing for steps (identity).
type Base struct {
	info Info
}

// NewBase seeds the helper with step info.
func NewBase(info Info) Base {
	return Base{info: info}
}

// Info implements Step.Info.
func (b *Base) Info() Info {
	return b.info
}
