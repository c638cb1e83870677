package gpu

// Launch geometry of the elementwise kernels.
const (
	NumThreads      = 128
	MaxNumBlocks    = 4096
	NumThreads2DX   = 16
	NumThreads2DY   = 16
	MaxNumBlocks2DX = 128
	MaxNumBlocks2DY = 128

	// Grid size limits of the devices.
	GridDimMaxX = 2147483647
	GridDimMaxY = 65535
	GridDimMaxZ = 65535
)

// Dim3 is the size of a grid or of a block of threads.
type Dim3 struct {
	X, Y, Z int
}

// Threads2D is the block size used with the grids returned by GetBlocks2D.
var Threads2D = Dim3{X: NumThreads2DX, Y: NumThreads2DY, Z: 1}

// GetBlocks returns the number of blocks of NumThreads threads needed to process n elements,
// capped at MaxNumBlocks. It is at least 1, since empty grids can't be launched.
func GetBlocks(n int) int {
	return blocksFor(n, NumThreads, MaxNumBlocks)
}

// GetBlocks2D returns the grid needed to process an n x m matrix with blocks of Threads2D.
func GetBlocks2D(n, m int) Dim3 {
	return Dim3{
		X: blocksFor(n, NumThreads2DX, MaxNumBlocks2DX),
		Y: blocksFor(m, NumThreads2DY, MaxNumBlocks2DY),
		Z: 1,
	}
}

func blocksFor(n, threads, maxBlocks int) int {
	return max(min((n+threads-1)/threads, maxBlocks), 1)
}
