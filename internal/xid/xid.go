// Package xid mints the prefixed ids used across the ledger: prd- for
// products, cus- for customers and sale- for sales.
package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// New returns an id of the form <prefix>-<unixnano>-<random>. The
// timestamp keeps ids roughly ordered by creation time, which the sale
// log relies on as a tiebreak for equal timestamps.
func New(prefix string) string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(buf))
}
