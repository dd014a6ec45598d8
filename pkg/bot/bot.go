package bot

import (
	"bytes"
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"kmsctl/pkg/repl"
)

// Telegram rejects longer messages.
const messageLimit = 4096

func New(token string, session *repl.Session, logger *zap.Logger, allow []int64) (*Bot, error) {
	return newBot(tele.Settings{
		Token: token,
		Poller: &tele.LongPoller{
			Timeout: 30 * time.Second,
		},
	}, session, logger, allow)
}

func newBot(pref tele.Settings, session *repl.Session, logger *zap.Logger, allow []int64) (*Bot, error) {
	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, err
	}

	return &Bot{
		b:       b,
		session: session,
		logger:  logger,
		allow:   allow,
	}, nil
}

// Bot runs console commands sent by allowed Telegram users.
type Bot struct {
	b       *tele.Bot
	session *repl.Session
	logger  *zap.Logger
	allow   []int64
}

func (b *Bot) allowed(user *tele.User) bool {
	return user != nil && lo.Contains(b.allow, user.ID)
}

// respond runs line for user and returns the reply text.
func (b *Bot) respond(user *tele.User, line string) string {
	if !b.allowed(user) {
		log := b.logger
		if user != nil {
			log = log.With(zap.Int64("user", user.ID), zap.String("username", user.Username))
		}
		log.Info("rejected")
		return "Not allowed"
	}

	if strings.TrimSpace(line) == "" {
		return "Usage: /exec <command>"
	}

	var buf bytes.Buffer
	if !b.session.Eval(context.Background(), &buf, line) {
		return "Quit is only available on the console"
	}

	out := strings.TrimRight(buf.String(), "\n")
	if out == "" {
		return "OK"
	}
	return truncate(out)
}

func truncate(s string) string {
	if len(s) <= messageLimit {
		return s
	}
	cut := messageLimit - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func (b *Bot) handle() {
	b.b.Handle("/exec", func(context tele.Context) error {
		return context.Reply(b.respond(context.Sender(), context.Message().Payload))
	})

	b.b.Handle("/resources", func(context tele.Context) error {
		return context.Reply(b.respond(context.Sender(), "GetResources"))
	})

	b.b.Handle("/help", func(context tele.Context) error {
		return context.Reply(b.respond(context.Sender(), "Help"))
	})
}

func (b *Bot) Start() {
	b.handle()
	go b.b.Start()
}

func (b *Bot) Stop() {
	// telebot's Stop waits for the poller's in-flight request
	go b.b.Stop()
}
