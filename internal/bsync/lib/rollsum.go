package lib

// Rollsum is the rsync weak checksum over a window of bytes. For a window
// x[0..n) it keeps a = sum(x[i]) and b = sum((n-i) * x[i]), both wrapping at
// 16 bits, and digests to (b << 16) | a.
//
// The zero value is the checksum of an empty window.
type Rollsum struct {
	a, b  uint16
	count int
}

// NewRollsum returns the checksum of window.
func NewRollsum(window []byte) *Rollsum {
	r := &Rollsum{}
	r.Init(window)
	return r
}

// WeakChecksum computes the digest of p from scratch.
func WeakChecksum(p []byte) uint32 {
	return NewRollsum(p).Digest()
}

// Init discards the current state and computes the checksum of window.
func (r *Rollsum) Init(window []byte) {
	n := len(window)
	r.a, r.b = 0, 0
	for i, c := range window {
		r.a += uint16(c)
		r.b += uint16(n-i) * uint16(c)
	}
	r.count = n
}

// Rollin appends in to the window. Every byte already in the window gains one
// unit of weight, which is the same as adding the new a to b.
func (r *Rollsum) Rollin(in byte) {
	r.a += uint16(in)
	r.b += r.a
	r.count++
}

// Rollout drops out, the oldest byte, from the window.
func (r *Rollsum) Rollout(out byte) {
	r.a -= uint16(out)
	r.b -= uint16(r.count) * uint16(out)
	r.count--
}

// Roll slides a full window forward by one byte: out leaves, in enters.
func (r *Rollsum) Roll(out, in byte) {
	r.a = r.a - uint16(out) + uint16(in)
	r.b = r.b - uint16(r.count)*uint16(out) + r.a
}

// Digest returns (b << 16) | a.
func (r *Rollsum) Digest() uint32 {
	return uint32(r.b)<<16 | uint32(r.a)
}

// Len returns the number of bytes in the window.
func (r *Rollsum) Len() int {
	return r.count
}

// Reset empties the window.
func (r *Rollsum) Reset() {
	*r = Rollsum{}
}
