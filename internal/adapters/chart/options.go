package chart

// Option applies a configuration option to the Renderer.
type Option func(*Renderer)

// WithSize sets the edge of the square canvas in pixels.
func WithSize(px int) Option {
	return func(r *Renderer) {
		if px >= minSize {
			r.size = px
		}
	}
}

// WithScale sets the radial range of radar charts. Ignored unless lo < hi.
func WithScale(lo, hi float64) Option {
	return func(r *Renderer) {
		if lo < hi {
			r.scaleMin, r.scaleMax = lo, hi
		}
	}
}
