package audio

import "math"

// biquad is a direct-form-I second-order low-pass section applied to the
// host-rate samples after the channel mix has been decimated.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64

	x1, x2 float64
	y1, y2 float64
}

// newLowPass derives Butterworth low-pass coefficients for the given
// cutoff at the given sample rate.
func newLowPass(sampleRate, cutoff float64) biquad {
	omega := 2 * math.Pi * cutoff / sampleRate
	sin, cos := math.Sincos(omega)
	q := math.Sqrt2 / 2
	alpha := sin / (2 * q)

	a0 := 1 + alpha
	return biquad{
		b0: (1 - cos) / 2 / a0,
		b1: (1 - cos) / a0,
		b2: (1 - cos) / 2 / a0,
		a1: -2 * cos / a0,
		a2: (1 - alpha) / a0,
	}
}

func (f *biquad) process(x float64) float64 {
	y := f.b0*x + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
	f.x2, f.x1 = f.x1, x
	f.y2, f.y1 = f.y1, y
	return y
}
