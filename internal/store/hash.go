package store

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// ComputeSignatureHash returns a stable digest of an element's kind and
// rendered signature. Stored next to each type and member row so a
// baseline can be checked for corruption and searched by signature.
func ComputeSignatureHash(kind, signature string) string {
	d := xxhash.New()
	d.WriteString(kind)
	d.WriteString("\x00")
	d.WriteString(signature)
	return fmt.Sprintf("%016x", d.Sum64())
}
