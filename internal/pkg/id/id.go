package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. Used for task ids and user ids; ULIDs sort
// by creation time, which keeps worker logs and DynamoDB keys in issue order.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
