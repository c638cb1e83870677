package gpu

// TensorMaxDims is the maximum rank handled by rank-specialized kernels.
const TensorMaxDims = 8

// RankTable holds one implementation of an operation per rank, from 1 to TensorMaxDims.
//
// Kernels specialized by rank register one function per rank they support, and Dispatch picks
// the one matching the rank of the input.
type RankTable[A any] [TensorMaxDims]func(args A) error

// NewRankTable creates a RankTable from a generator of the implementation of each rank.
// The generator may return nil for the ranks that aren't supported.
func NewRankTable[A any](gen func(rank int) func(args A) error) *RankTable[A] {
	var table RankTable[A]
	for rank := 1; rank <= TensorMaxDims; rank++ {
		table[rank-1] = gen(rank)
	}
	return &table
}

// Dispatch calls the implementation for the rank. It returns an InvalidArgument error if the rank is out of
// [1, TensorMaxDims] or if it has no implementation.
func (t *RankTable[A]) Dispatch(rank int, args A) error {
	if rank < 1 || rank > TensorMaxDims {
		return invalidArgf("rank %d out of range [1, %d]", rank, TensorMaxDims)
	}
	fn := t[rank-1]
	if fn == nil {
		return invalidArgf("rank %d not supported", rank)
	}
	return fn(args)
}
