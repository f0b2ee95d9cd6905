package render

// Brightness shifts every color channel by a fixed offset, clamped to the
// byte range. Alpha is untouched.
type Brightness struct {
	Offset int
}

func (b Brightness) Apply(frame *Frame) {
	if frame == nil || b.Offset == 0 {
		return
	}
	for i := 0; i+3 < len(frame.Data); i += 4 {
		frame.Data[i] = clampByte(int(frame.Data[i]) + b.Offset)
		frame.Data[i+1] = clampByte(int(frame.Data[i+1]) + b.Offset)
		frame.Data[i+2] = clampByte(int(frame.Data[i+2]) + b.Offset)
	}
}

// Contrast scales color channels around the midpoint. Factor 1.0 is a no-op.
type Contrast struct {
	Factor float64
}

func (c Contrast) Apply(frame *Frame) {
	if frame == nil || c.Factor == 1.0 {
		return
	}
	for i := 0; i+3 < len(frame.Data); i += 4 {
		for ch := 0; ch < 3; ch++ {
			scaled := (float64(frame.Data[i+ch])-128)*c.Factor + 128
			frame.Data[i+ch] = clampByte(int(scaled))
		}
	}
}

func clampByte(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
