package bayesopt

import "math/bits"

const sobolBits = 32

// sobolDirection is one row of the Joe-Kuo direction-number table: degree s
// of the primitive polynomial, its inner coefficients a, and the initial
// odd direction integers m.
type sobolDirection struct {
	s int
	a uint32
	m []uint32
}

// Dimensions 2..16; dimension 1 is the van der Corput sequence.
var sobolDirections = []sobolDirection{
	{1, 0, []uint32{1}},
	{2, 1, []uint32{1, 3}},
	{3, 1, []uint32{1, 3, 1}},
	{3, 2, []uint32{1, 1, 1}},
	{4, 1, []uint32{1, 1, 3, 3}},
	{4, 4, []uint32{1, 3, 5, 13}},
	{5, 2, []uint32{1, 1, 5, 5, 17}},
	{5, 4, []uint32{1, 1, 5, 5, 5}},
	{5, 7, []uint32{1, 1, 7, 11, 19}},
	{5, 11, []uint32{1, 1, 5, 1, 1}},
	{5, 13, []uint32{1, 1, 1, 3, 11}},
	{5, 14, []uint32{1, 3, 5, 5, 31}},
	{6, 1, []uint32{1, 3, 3, 9, 7, 49}},
	{6, 13, []uint32{1, 1, 1, 15, 21, 21}},
	{6, 16, []uint32{1, 3, 1, 13, 27, 49}},
}

// maxSobolDimensions is len(sobolDirections) + 1.
const maxSobolDimensions = 16

// sobolPoints returns the first n points of the unscrambled Sobol sequence
// in [0, 1)^d, generated in Gray-code order. The first point is the origin.
func sobolPoints(n, d int) [][]float64 {
	v := make([][sobolBits]uint32, d)

	for k := 0; k < sobolBits; k++ {
		v[0][k] = 1 << (sobolBits - 1 - k)
	}

	for j := 1; j < d; j++ {
		dir := sobolDirections[j-1]
		s := dir.s

		for k := 0; k < s; k++ {
			v[j][k] = dir.m[k] << (sobolBits - 1 - k)
		}

		for k := s; k < sobolBits; k++ {
			val := v[j][k-s] ^ (v[j][k-s] >> s)

			for i := 1; i < s; i++ {
				if (dir.a>>(s-1-i))&1 == 1 {
					val ^= v[j][k-i]
				}
			}

			v[j][k] = val
		}
	}

	x := make([]uint32, d)
	points := make([][]float64, n)

	for i := range points {
		p := make([]float64, d)
		for j := range p {
			p[j] = float64(x[j]) / (1 << sobolBits)
		}

		points[i] = p

		// Flip by the direction number at the rightmost zero bit of i.
		c := bits.TrailingZeros64(^uint64(i))
		for j := range x {
			x[j] ^= v[j][c]
		}
	}

	return points
}
