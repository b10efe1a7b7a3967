package authority

import "time"

func msToTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}

func timeToMs(t time.Time) int64 {
	return t.UnixMilli()
}
