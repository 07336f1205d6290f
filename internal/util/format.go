package util

import (
	"fmt"
	"time"
)

// FormatNumber shortens large counts
func FormatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	} else if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	} else {
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	}
}

// FormatInterval renders a tick or column interval compactly
func FormatInterval(d time.Duration) string {
	switch {
	case d <= 0:
		return "0ms"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		hours := int(d.Hours())
		minutes := int(d.Minutes()) % 60
		if hours > 0 {
			return fmt.Sprintf("%dh %dm", hours, minutes)
		}
		return fmt.Sprintf("%dm %ds", minutes, int(d.Seconds())%60)
	}
}

// MillisToTime converts an epoch milliseconds key to a time
func MillisToTime(ms float64) time.Time {
	return time.UnixMilli(int64(ms))
}

// FormatColumnKey formats a column key (epoch ms) in the configured timezone
func FormatColumnKey(ms float64, layout string) string {
	return GetTimeProvider().Format(MillisToTime(ms), layout)
}
