package provisioner

import (
	"regexp"
	"strconv"
)

var creditPackSKU = regexp.MustCompile(`^CREDITS-(\d+)$`)

// classifyLine reports whether sku is a credit pack, and if so, the number
// of credits one unit of it grants.
func classifyLine(sku string) (creditsPerUnit int64, isCreditPack bool) {
	m := creditPackSKU.FindStringSubmatch(sku)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
