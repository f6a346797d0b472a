package heap

// NumSizeClasses is the number of segregated free lists.
const NumSizeClasses = 8

// classLimits are the inclusive upper byte bounds of each size class except
// the last, which is unbounded. The staircase is monotone: searching from
// sizeClass(n) upward visits every list that can hold a block of size n.
var classLimits = [NumSizeClasses - 1]uint32{64, 128, 256, 512, 1024, 2048, 4096}

// sizeClass maps a block size to its free-list index.
func sizeClass(size uint32) int {
	for i, limit := range classLimits {
		if size <= limit {
			return i
		}
	}
	return NumSizeClasses - 1
}
