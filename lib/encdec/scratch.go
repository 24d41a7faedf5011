package encdec

// scratchBytes returns scratch resliced to n when it is big enough,
// otherwise a freshly allocated slice.
func scratchBytes(scratch []byte, n int) []byte {
	if cap(scratch) >= n {
		return scratch[:n]
	}
	return make([]byte, n)
}

func scratchUint32(scratch []uint32, n int) []uint32 {
	if cap(scratch) >= n {
		return scratch[:n]
	}
	return make([]uint32, n)
}
