package lz

// lenPlusAddend is the length correction GLOSSARY calls LEN_PLUS: RAR5
// grows a match's length by one for each of three thresholds the final
// decoded distance crosses (0x100, 0x2000, 0x40000), not by a table
// indexed on the distance slot's bit width. Grounded on
// _examples/other_examples/ethereum-go-ethereum__decode50.go's decodeSym,
// whose default case computes `offset` in full before applying exactly
// this cascade of three `if offset > ...{ length++ }` checks.
func lenPlusAddend(dist uint32) int {
	if dist <= 0x100 {
		return 0
	}
	n := 1
	if dist > 0x2000 {
		n++
		if dist > 0x40000 {
			n++
		}
	}
	return n
}
