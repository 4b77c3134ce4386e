package trade

import (
	"crypto/rand"
	"math/big"
)

// TrackingIDLength 为自动生成的追踪 ID 长度。
const TrackingIDLength = 12

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// NewTrackingID 生成随机字母数字追踪 ID，仅作便利默认值，不保证唯一。
func NewTrackingID() string {
	buf := make([]byte, TrackingIDLength)
	limit := big.NewInt(int64(len(alphanumeric)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			// crypto/rand 在受支持平台上不会失败
			panic(err)
		}
		buf[i] = alphanumeric[n.Int64()]
	}
	return string(buf)
}

func trackingIDOrNew(id string) string {
	if id == "" {
		return NewTrackingID()
	}
	return id
}
