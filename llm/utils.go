package llm

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"time"
)

// newBatchID returns a tellm batch identifier: a unix timestamp prefix plus
// eight random bytes, hex encoded to 24 characters.
func newBatchID() string {
	timestamp := time.Now().Unix()
	randomBytes := make([]byte, 8)
	rand.Read(randomBytes)

	id := make([]byte, 12)
	binary.BigEndian.PutUint32(id[:4], uint32(timestamp))
	copy(id[4:], randomBytes)

	return hex.EncodeToString(id)
}

func isValidBatchID(s string) bool {
	_, err := hex.DecodeString(s)
	return err == nil && len(s) == 24
}

// EnsureBatchID keeps a well-formed batch id and replaces anything else
// with a fresh one, so a stale or hand-edited config never breaks logging.
func EnsureBatchID(s string) string {
	if !isValidBatchID(s) {
		return newBatchID()
	}
	return s
}
