// Package mix blends a processed signal with its source.
package mix

// DryWet returns dry*(1-amount) + wet*amount. amount 0 is fully dry.
func DryWet(dry, wet, amount float32) float32 {
	return dry + (wet-dry)*amount
}
