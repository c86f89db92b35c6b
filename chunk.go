package blepty

import "slices"

type ChunkStatus int

const (
	Accumulating ChunkStatus = iota
	Full
)

// Assembler buffers bytes read from the port until a chunk is ready to
// flush to the radio. A chunk never grows beyond the capacity it was
// created with; the bridge flushes at exactly that size.
type Assembler struct {
	buf      []byte
	capacity int
}

func NewAssembler(capacity int) *Assembler {
	return &Assembler{
		buf:      make([]byte, 0, capacity),
		capacity: capacity,
	}
}

func (a *Assembler) Append(c byte) ChunkStatus {
	if len(a.buf) == a.capacity {
		panic("blepty: append to a full chunk")
	}
	a.buf = append(a.buf, c)
	if len(a.buf) == a.capacity {
		return Full
	}
	return Accumulating
}

func (a *Assembler) Size() int {
	return len(a.buf)
}

// Take returns the buffered bytes and resets the assembler.
func (a *Assembler) Take() []byte {
	p := slices.Clone(a.buf)
	a.buf = a.buf[:0]
	return p
}

// TakePadded returns the buffered bytes padded with NUL to exactly the
// chunk capacity and resets the assembler. The acknowledged protocol
// variant only accepts full-size packets.
func (a *Assembler) TakePadded() []byte {
	p := make([]byte, a.capacity)
	copy(p, a.buf)
	a.buf = a.buf[:0]
	return p
}
