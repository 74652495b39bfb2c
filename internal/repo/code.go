package repo

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatClientCode renders a code like EM03-00042.
func FormatClientCode(prefix string, n int) string {
	return fmt.Sprintf("%s-%05d", prefix, n)
}

// ShipmentCode derives the composite cargo code from a client code and a
// 1-based sequence number.
func ShipmentCode(clientCode string, sequence int) string {
	return fmt.Sprintf("%s-%d", clientCode, sequence)
}

// maxCodeNumber scans existing codes for the highest numeric suffix under
// the given prefix. Malformed codes are skipped.
func maxCodeNumber(prefix string, codes []string) int {
	max := 0
	lead := prefix + "-"
	for _, code := range codes {
		if !strings.HasPrefix(code, lead) {
			continue
		}
		n, err := strconv.Atoi(code[len(lead):])
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max
}
