package filter

// Difference writes max(src - aux, 0) per pixel.
func Difference(dst, src, aux []uint8) {
	for i := range dst {
		if s, a := src[i], aux[i]; s > a {
			dst[i] = s - a
		} else {
			dst[i] = 0
		}
	}
}

// CombineMax writes max(src, aux) per pixel.
func CombineMax(dst, src, aux []uint8) {
	for i := range dst {
		dst[i] = max(src[i], aux[i])
	}
}

// Scale multiplies every pixel by scale, clamping to [0, 255].
func Scale(dst, src []uint8, scale float32) {
	for i, v := range src {
		dst[i] = scaleByte(v, scale)
	}
}
