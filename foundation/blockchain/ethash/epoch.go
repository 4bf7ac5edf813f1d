// Package ethash provides the epoch arithmetic and the support for running
// the external ethashproof tools that build DAGs and block proofs.
package ethash

// DefaultEpochLength is the number of blocks in an ethash epoch.
const DefaultEpochLength = 30000

// Epoch returns the epoch the specified block belongs to.
func Epoch(number uint64, length uint64) uint64 {
	return number / length
}

// NextEpochBlock returns the first block of the epoch following the one the
// specified block belongs to.
func NextEpochBlock(number uint64, length uint64) uint64 {
	return (Epoch(number, length) + 1) * length
}

// ShouldGenerateDAG reports if the chain is past the halfway point of its
// current epoch, which is when the DAG for the next epoch is built.
func ShouldGenerateDAG(number uint64, length uint64) bool {
	return NextEpochBlock(number, length)-number < length/2
}
