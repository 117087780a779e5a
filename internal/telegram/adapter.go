// Package telegram is the chat transport: a telebot long-poll adapter plus
// the command router behind it.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"weatherbot/internal/dispatch"
	"weatherbot/pkg/logx"
)

type Config struct {
	Token          string
	PollTimeout    time.Duration
	HandleTimeout  time.Duration
	PublishCommand bool // register the bot command menu on start
}

// Adapter owns the telebot instance. Incoming text goes through the Router;
// outbound sends implement the dispatcher's Transport.
type Adapter struct {
	cfg    Config
	log    logx.Logger
	router *Router

	bot       *tele.Bot
	runCancel context.CancelFunc
	runWG     sync.WaitGroup
	runMu     sync.Mutex
	running   bool
}

func New(cfg Config, router *Router, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 10 * time.Second
	}
	if cfg.HandleTimeout <= 0 {
		cfg.HandleTimeout = 30 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: cfg.PollTimeout},
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	a := &Adapter{cfg: cfg, log: log, router: router, bot: b}
	a.registerHandlers()
	return a, nil
}

func (a *Adapter) registerHandlers() {
	a.bot.Handle(tele.OnText, func(c tele.Context) error {
		m := c.Message()
		if m == nil || m.Sender == nil {
			return nil
		}
		// Commands are accepted anywhere; bare text only in private chats.
		if m.Chat.Type != tele.ChatPrivate && !strings.HasPrefix(m.Text, "/") {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.HandleTimeout)
		defer cancel()

		from := Sender{ID: m.Sender.ID, Username: m.Sender.Username}
		reply := a.router.Handle(ctx, from, m.Text)
		if reply == "" {
			return nil
		}
		return c.Send(reply)
	})
}

var menuCommands = []tele.Command{
	{Text: "weather", Description: "Current weather for a city"},
	{Text: "subscribe", Description: "Subscribe to forecasts and alerts"},
	{Text: "unsubscribe", Description: "Remove a subscription"},
	{Text: "subscriptions", Description: "List your subscriptions"},
	{Text: "togglealert", Description: "Flip emergency alerts for a city"},
	{Text: "profile", Description: "Set age, driver flag, and hobbies"},
	{Text: "checkalerts", Description: "Run an alert check now"},
	{Text: "help", Description: "Show all commands"},
}

// Start launches the long-poll loop. Idempotent.
func (a *Adapter) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return nil
	}
	a.running = true
	rctx, cancel := context.WithCancel(ctx)
	a.runCancel = cancel
	a.runWG.Add(2)
	a.runMu.Unlock()

	if a.cfg.PublishCommand {
		if err := a.bot.SetCommands(menuCommands); err != nil {
			a.log.Warn("set command menu", logx.Err(err))
		}
	}

	go func() {
		defer a.runWG.Done()
		<-rctx.Done()
		a.bot.Stop()
	}()
	go func() {
		defer a.runWG.Done()
		a.log.Info("polling started")
		a.bot.Start()
		a.log.Info("polling stopped")
	}()
	return nil
}

// Stop halts polling. Never blocks past ctx; Telegram long-poll can be slow
// to let go.
func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	cancel := a.runCancel
	wasRunning := a.running
	a.running = false
	a.runCancel = nil
	a.runMu.Unlock()
	if !wasRunning {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		a.runWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		a.log.Warn("telegram stop timed out", logx.Err(ctx.Err()))
		return nil
	}
}

const textLimit = 4000

// SendText delivers one message, splitting text past Telegram's limit on
// newline boundaries. Permanent per-recipient failures come back wrapped in
// dispatch.ErrRecipientUnreachable.
func (a *Adapter) SendText(ctx context.Context, recipient int64, text string) error {
	chat := &tele.Chat{ID: recipient}
	for _, chunk := range splitText(text, textLimit) {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		if _, err := a.bot.Send(chat, chunk); err != nil {
			return classifySendErr(err)
		}
	}
	return nil
}

func classifySendErr(err error) error {
	var teleErr *tele.Error
	if errors.As(err, &teleErr) && teleErr.Code == http.StatusForbidden {
		return fmt.Errorf("%w: %s", dispatch.ErrRecipientUnreachable, teleErr.Description)
	}
	if errors.Is(err, tele.ErrChatNotFound) || errors.Is(err, tele.ErrNotStartedByUser) {
		return fmt.Errorf("%w: %v", dispatch.ErrRecipientUnreachable, err)
	}
	return err
}

// splitText chunks s to at most limit runes per piece, preferring newline
// boundaries so formatted messages stay readable.
func splitText(s string, limit int) []string {
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}
	out := make([]string, 0, (len(rs)+limit-1)/limit)
	start := 0
	for start < len(rs) {
		end := start + limit
		if end > len(rs) {
			end = len(rs)
		}
		if end < len(rs) {
			for i := end - 1; i > start+limit/3; i-- {
				if rs[i] == '\n' {
					end = i + 1
					break
				}
			}
		}
		chunk := strings.TrimRight(string(rs[start:end]), "\n")
		if chunk != "" {
			out = append(out, chunk)
		}
		start = end
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}
