package telegram

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/yishaik/winter-wellness-bot/internal/sessions"
)

var tips = []string{
	"20 min of morning light 🌤️",
	"10 min breathing or meditation",
	"short movement: a walk or stretching",
	"warm drink + a light meal",
}

// ComposeDigest renders the daily wellness message. It is pure so message
// layout can be tested without a live bot.
func ComposeDigest(emoji, weatherLine string, found []sessions.Session, loc *time.Location) string {
	saunaLine := "🧖 No sauna session in the last 24 hours."
	if len(found) > 0 {
		saunaLine = "🧖 Last session: " + FormatSessionLine(found[len(found)-1], loc)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>Daily winter check-in</b>\n", emoji)
	fmt.Fprintf(&b, "⛅️ %s\n", weatherLine)
	b.WriteString(saunaLine + "\n")
	b.WriteString("• " + strings.Join(tips, " · ") + "\n")
	b.WriteString("—\n")
	b.WriteString("Commands: /now · /sauna · /mood")
	return b.String()
}

// FormatSessionLine renders one session as "02.01 18:15 · 1h 5m · max 78°C".
func FormatSessionLine(s sessions.Session, loc *time.Location) string {
	return fmt.Sprintf("%s · %s · max %.0f°C",
		s.Start.In(loc).Format("02.01 15:04"),
		sessions.FormatMinutes(s.Minutes),
		math.Round(s.MaxTemperatureC))
}
