package payout

const (
	// DustLimit is the smallest output worth creating, in satoshis. Change
	// at or below it is left to the miner.
	DustLimit = uint64(546)

	// DefaultFeeRate is the fee rate in satoshis per 1000 bytes.
	DefaultFeeRate = uint64(100)

	// P2PKH sizes: prevout(36) + script len(1) + sig and key(~107) + sequence(4),
	// and value(8) + script len(1) + script(25).
	p2pkhInputSize  = 148
	p2pkhOutputSize = 34
	txOverhead      = 10
)

// EstimateSize returns the approximate serialized size of a transaction
// spending numInputs P2PKH outputs into numOutputs P2PKH outputs.
func EstimateSize(numInputs, numOutputs int) int {
	return txOverhead + numInputs*p2pkhInputSize + numOutputs*p2pkhOutputSize
}

// EstimateFee returns the fee for size bytes at feeRate sat/KB, rounded up.
func EstimateFee(size int, feeRate uint64) uint64 {
	if feeRate == 0 {
		feeRate = DefaultFeeRate
	}
	return (uint64(size)*feeRate + 999) / 1000
}
