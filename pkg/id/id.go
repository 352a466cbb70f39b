package id

import (
	"crypto/md5"

	"github.com/gofrs/uuid"
)

// GenTraceID random v4 trace id
func GenTraceID() string {
	return uuid.Must(uuid.NewV4()).String()
}

// UUIDFromString md5 based v3 style uuid of text, the same text gives the same id
func UUIDFromString(text string) string {
	sum := md5.Sum([]byte(text))
	sum[6] = (sum[6] & 0x0f) | 0x30
	sum[8] = (sum[8] & 0x3f) | 0x80
	return uuid.FromBytesOrNil(sum[:]).String()
}
