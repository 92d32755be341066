// Package priority turns a launcher's base priority and an item's usage count
// into the ascending sort key used by the search pipeline.
package priority

import "math"

// Band is added to every base priority. Usage pulls an item down from
// base+Band toward base, so it reorders items inside a launcher's band
// without moving them into another launcher's band.
const Band float32 = 0.99

// Compute returns the ranking key for an item. Lower sorts earlier.
func Compute(base float32, count uint32, decimals int32) float32 {
	if count == 0 {
		return base + Band
	}
	return base + Band - float32(count)*float32(math.Pow10(-int(decimals)))
}

// Decimals returns the number of decimal digits needed to scale the largest
// observed usage count below 1.
func Decimals(maxCount uint32) int32 {
	if maxCount == 0 {
		return 0
	}
	return int32(math.Floor(math.Log10(float64(maxCount)))) + 1
}
