package core

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"

	"pkt.systems/webchat/schema"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

func newID() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return hex.EncodeToString(buf[:])
}

// newActionID returns a millisecond timestamp followed by a six character base36 suffix.
func newActionID(now time.Time) schema.ActionID {
	var buf [6]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return schema.ActionID(strconv.FormatInt(now.UnixNano(), 10))
	}
	suffix := make([]byte, len(buf))
	for i, b := range buf {
		suffix[i] = base36[int(b)%len(base36)]
	}
	return schema.ActionID(strconv.FormatInt(now.UnixMilli(), 10) + string(suffix))
}
