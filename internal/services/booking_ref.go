package services

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const refAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// RefGenerator builds booking references: prefix + base-36 millisecond
// timestamp + random base-36 suffix, upper-cased.
type RefGenerator struct {
	prefix    string
	suffixLen int
	now       func() time.Time
}

// NewRefGenerator creates a generator with the given prefix
func NewRefGenerator(prefix string) *RefGenerator {
	return &RefGenerator{prefix: strings.ToUpper(prefix), suffixLen: 4, now: time.Now}
}

// Next returns a new reference
func (g *RefGenerator) Next() string {
	var b strings.Builder
	b.WriteString(g.prefix)
	b.WriteString(strings.ToUpper(strconv.FormatInt(g.now().UnixMilli(), 36)))

	max := big.NewInt(int64(len(refAlphabet)))
	for i := 0; i < g.suffixLen; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails if the OS source is broken; fall back to the clock
			n = big.NewInt(g.now().UnixNano() % int64(len(refAlphabet)))
		}
		b.WriteByte(refAlphabet[n.Int64()])
	}
	return b.String()
}
