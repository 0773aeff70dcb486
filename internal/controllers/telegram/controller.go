// Package telegram implements the wellness bot: command handling, mood
// check-ins, and the twice-daily scheduled digests.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/yishaik/winter-wellness-bot/internal/history"
	"github.com/yishaik/winter-wellness-bot/internal/log"
	"github.com/yishaik/winter-wellness-bot/internal/sessions"
	"github.com/yishaik/winter-wellness-bot/internal/state"
	"github.com/yishaik/winter-wellness-bot/internal/weather"
	"github.com/yishaik/winter-wellness-bot/pkg/config"
)

// Controller runs the Telegram bot.
type Controller struct {
	ctx      context.Context
	wg       *sync.WaitGroup
	cfg      config.BotData
	params   sessions.Params
	location *time.Location
	bot      *tgbotapi.BotAPI
	store    *state.Store
	history  history.Source
	weather  *weather.Client
	coords   config.WeatherData
	logger   *zap.SugaredLogger
}

// NewController creates a Telegram bot controller.
func NewController(ctx context.Context, wg *sync.WaitGroup, cfg *config.ConfigData, store *state.Store, src history.Source, wx *weather.Client, logger *zap.SugaredLogger) (*Controller, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating Telegram bot client: %w", err)
	}

	location, err := time.LoadLocation(cfg.Bot.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Bot.Timezone, err)
	}

	return &Controller{
		ctx:      ctx,
		wg:       wg,
		cfg:      cfg.Bot,
		params: sessions.Params{
			ThresholdC:     cfg.Sessions.ThresholdC,
			MinDurationMin: cfg.Sessions.MinDurationMin,
			GapMinutes:     cfg.Sessions.GapMinutes,
		},
		location: location,
		bot:      bot,
		store:    store,
		history:  src,
		weather:  wx,
		coords:   cfg.Weather,
		logger:   logger,
	}, nil
}

// StartController begins polling for updates and arms the daily schedules.
func (c *Controller) StartController() error {
	log.Infof("Starting Telegram bot controller (@%s)...", c.bot.Self.UserName)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		u := tgbotapi.NewUpdate(0)
		u.Timeout = 30
		updates := c.bot.GetUpdatesChan(u)

		for {
			select {
			case update := <-updates:
				c.handleUpdate(update)
			case <-c.ctx.Done():
				log.Info("Shutting down Telegram update loop...")
				c.bot.StopReceivingUpdates()
				return
			}
		}
	}()

	if !c.cfg.DisableMorning {
		hour, minute, err := config.ParseHHMM(c.cfg.MorningTime)
		if err != nil {
			return fmt.Errorf("morning schedule: %w", err)
		}
		log.Infof("Morning digest scheduled for %02d:%02d", hour, minute)
		c.wg.Add(1)
		go c.runDailyAt(hour, minute, "🌤️")
	} else {
		log.Info("Morning digest disabled")
	}

	if !c.cfg.DisableEvening {
		hour, minute, err := config.ParseHHMM(c.cfg.EveningTime)
		if err != nil {
			return fmt.Errorf("evening schedule: %w", err)
		}
		log.Infof("Evening digest scheduled for %02d:%02d", hour, minute)
		c.wg.Add(1)
		go c.runDailyAt(hour, minute, "🌙")
	} else {
		log.Info("Evening digest disabled")
	}

	return nil
}

// runDailyAt fires once per day at the given wall-clock time in the bot's
// timezone.
func (c *Controller) runDailyAt(hour, minute int, emoji string) {
	defer c.wg.Done()

	for {
		now := time.Now().In(c.location)
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, c.location)
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-timer.C:
			c.sendScheduledDigest(emoji)
		case <-c.ctx.Done():
			timer.Stop()
			return
		}
	}
}

func (c *Controller) sendScheduledDigest(emoji string) {
	target := c.cfg.ChatID
	if target == 0 {
		id, ok, err := c.store.ChatID()
		if err != nil {
			log.Errorf("failed reading persisted chat id: %v", err)
			return
		}
		if !ok {
			log.Warn("chat id not configured and none persisted; skipping scheduled digest")
			return
		}
		target = id
	}

	ctx, cancel := context.WithTimeout(c.ctx, time.Minute)
	defer cancel()

	text := c.buildDigest(ctx, emoji)
	if err := c.sendHTML(target, text); err != nil {
		log.Errorf("failed to send scheduled digest: %v", err)
	}
}

// buildDigest assembles the daily message: forecast, last sauna session in
// the past 24 hours, tips.
func (c *Controller) buildDigest(ctx context.Context, emoji string) string {
	forecast, err := c.weather.Fetch(ctx, c.coords.Latitude, c.coords.Longitude)
	if err != nil {
		log.Warnf("Open-Meteo error: %v", err)
		forecast = nil
	}

	now := time.Now()
	found := c.inferWindow(ctx, now.Add(-24*time.Hour), now)

	return ComposeDigest(emoji, forecast.Summary(), found, c.location)
}

// inferWindow fetches history for the window and segments it.
func (c *Controller) inferWindow(ctx context.Context, from, to time.Time) []sessions.Session {
	samples, err := c.history.Fetch(ctx, from, to)
	if err != nil {
		log.Warnf("history fetch failed: %v", err)
		return nil
	}
	return sessions.Infer(samples, c.params)
}

func (c *Controller) handleUpdate(update tgbotapi.Update) {
	if update.Message == nil {
		return
	}
	msg := update.Message

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			c.handleStart(msg)
		case "help":
			c.handleHelp(msg)
		case "now":
			c.handleNow(msg)
		case "sauna":
			c.handleSauna(msg)
		case "mood":
			c.handleMood(msg)
		}
		return
	}

	if strings.HasPrefix(msg.Text, "Mood ") {
		c.handleMoodReply(msg)
	}
}

func (c *Controller) handleStart(msg *tgbotapi.Message) {
	if err := c.store.SetChatID(msg.Chat.ID); err != nil {
		log.Warnf("could not persist chat id: %v", err)
	} else {
		log.Infof("persisted chat id %d", msg.Chat.ID)
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID,
		"Bot is ready. Digests go out at "+c.cfg.MorningTime+" and "+c.cfg.EveningTime+".\n"+
			"Commands: /now /sauna /mood")
	reply.ReplyMarkup = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/now"),
			tgbotapi.NewKeyboardButton("/sauna"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/mood"),
		),
	)
	c.send(reply)
}

func (c *Controller) handleHelp(msg *tgbotapi.Message) {
	text := "Commands:\n" +
		"/start — set this chat as the digest target\n" +
		"/now — immediate report (weather + sauna + tips)\n" +
		"/sauna — recent sauna sessions\n" +
		"/mood — mood check-in, 1-5\n" +
		"—\n" +
		"Digest times are set with MORNING_TIME and EVENING_TIME (HH:MM).\n" +
		"Disable with DISABLE_MORNING=1 or DISABLE_EVENING=1."
	c.send(tgbotapi.NewMessage(msg.Chat.ID, text))
}

func (c *Controller) handleNow(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(c.ctx, time.Minute)
	defer cancel()
	if err := c.sendHTML(msg.Chat.ID, c.buildDigest(ctx, "🔔")); err != nil {
		log.Errorf("failed to send /now digest: %v", err)
	}
}

func (c *Controller) handleSauna(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(c.ctx, time.Minute)
	defer cancel()

	now := time.Now()
	found := c.inferWindow(ctx, now.Add(-48*time.Hour), now)

	if len(found) == 0 {
		c.send(tgbotapi.NewMessage(msg.Chat.ID, "🧖 No sauna sessions found in the last 48 hours."))
		return
	}

	// Up to the five most recent sessions.
	if len(found) > 5 {
		found = found[len(found)-5:]
	}
	lines := make([]string, 0, len(found))
	for _, s := range found {
		lines = append(lines, FormatSessionLine(s, c.location))
	}
	c.send(tgbotapi.NewMessage(msg.Chat.ID, "🧖 Recent sauna sessions:\n"+strings.Join(lines, "\n")))
}

func (c *Controller) handleMood(msg *tgbotapi.Message) {
	prompt := "How are you feeling right now? (1 low · 5 high)"
	if recent, err := c.store.RecentMoods(5); err != nil {
		log.Warnf("could not read recent moods: %v", err)
	} else if len(recent) > 0 {
		scores := make([]string, 0, len(recent))
		for _, m := range recent {
			scores = append(scores, strconv.Itoa(m.Score))
		}
		prompt += "\nRecent check-ins (newest first): " + strings.Join(scores, " ")
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, prompt)
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("Mood 1️⃣"),
			tgbotapi.NewKeyboardButton("Mood 2️⃣"),
			tgbotapi.NewKeyboardButton("Mood 3️⃣"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("Mood 4️⃣"),
			tgbotapi.NewKeyboardButton("Mood 5️⃣"),
		),
	)
	keyboard.OneTimeKeyboard = true
	reply.ReplyMarkup = keyboard
	c.send(reply)
}

func (c *Controller) handleMoodReply(msg *tgbotapi.Message) {
	score, ok := ParseMoodReply(msg.Text)
	if !ok {
		c.send(tgbotapi.NewMessage(msg.Chat.ID, "Please pick a mood from 1 to 5."))
		return
	}

	if err := c.store.RecordMood(time.Now(), score); err != nil {
		log.Errorf("failed to record mood: %v", err)
		c.send(tgbotapi.NewMessage(msg.Chat.ID, "Could not save that, sorry. Try again later."))
		return
	}
	c.send(tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("Thanks! Mood saved: %d", score)))
}

// ParseMoodReply extracts the score from a "Mood N…" keyboard reply. The
// button labels carry an emoji keycap after the digit, so only the leading
// digit of the second token counts.
func ParseMoodReply(text string) (int, bool) {
	fields := strings.Fields(text)
	if len(fields) < 2 || fields[0] != "Mood" {
		return 0, false
	}
	score, err := strconv.Atoi(string([]rune(fields[1])[0]))
	if err != nil || score < 1 || score > 5 {
		return 0, false
	}
	return score, true
}

func (c *Controller) send(msg tgbotapi.MessageConfig) {
	if _, err := c.bot.Send(msg); err != nil {
		log.Errorf("failed to send Telegram message: %v", err)
	}
}

func (c *Controller) sendHTML(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := c.bot.Send(msg)
	return err
}
