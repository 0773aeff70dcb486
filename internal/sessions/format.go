package sessions

import "fmt"

// FormatMinutes renders a whole-minute duration as an hour/minute split,
// omitting zero components: "5m", "1h", "1h 15m".
func FormatMinutes(total int) string {
	h := total / 60
	m := total % 60

	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dm", m)
	}
}
