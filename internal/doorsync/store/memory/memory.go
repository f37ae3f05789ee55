// Package memory holds map- and slice-backed stores with the same semantics
// as the SQLite ones.
package memory

import "fmt"

func errDuplicateCard(card uint32) error {
	return fmt.Errorf("member %d already exists", card)
}
