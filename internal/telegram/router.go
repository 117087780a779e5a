package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"weatherbot/internal/domain"
	"weatherbot/internal/geocode"
	"weatherbot/internal/message"
	"weatherbot/internal/subscription"
	"weatherbot/pkg/logx"
)

// WeatherSource is the cache-fronted current-conditions read side.
type WeatherSource interface {
	Current(ctx context.Context, coord domain.Coordinate) (domain.WeatherSnapshot, error)
}

// Geocoder resolves a location name to a coordinate.
type Geocoder interface {
	Resolve(ctx context.Context, name string) (domain.Coordinate, error)
}

// AlertChecker runs an on-demand alert poll.
type AlertChecker interface {
	PollAlertsNow(ctx context.Context) int
}

// Advisor optionally appends a recommendation to weather replies.
type Advisor interface {
	Enabled() bool
	Recommend(ctx context.Context, snap domain.WeatherSnapshot, profile domain.Profile) string
}

// Sender identifies the chat user a command came from.
type Sender struct {
	ID       int64
	Username string
}

// Router maps incoming message text to command handlers. It is transport
// agnostic: the adapter feeds it text and sends back whatever it returns.
type Router struct {
	subs    *subscription.Service
	weather WeatherSource
	geo     Geocoder
	checker AlertChecker
	advisor Advisor
	log     logx.Logger
}

func NewRouter(subs *subscription.Service, weather WeatherSource, geo Geocoder, checker AlertChecker, advisor Advisor, log logx.Logger) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Router{subs: subs, weather: weather, geo: geo, checker: checker, advisor: advisor, log: log}
}

const (
	replyError   = "❌ Something went wrong. Please try again later."
	replyUnknown = "Unknown command. Try /help."

	welcomeText = "👋 Hi! I'm a weather bot.\n\n" +
		"I can show current conditions, send a daily forecast, and warn you about emergency weather alerts.\n\n" +
		"🚀 Getting started:\n" +
		"1. Fill in your profile: /profile 25 yes running\n" +
		"2. Check the weather: /weather London\n" +
		"3. Subscribe to notifications: /subscribe Berlin\n\n" +
		"Type /help for the full command list."

	helpText = "📖 Commands:\n\n" +
		"🌤 Weather:\n" +
		"/weather <city> - current conditions.\n\n" +
		"👤 Profile:\n" +
		"/profile <age> <driver: yes/no> <hobbies> - used for personalized advice.\n" +
		"Example: /profile 30 yes fishing,photo\n\n" +
		"🔔 Subscriptions:\n" +
		"/subscribe <city> - daily forecast and emergency alerts.\n" +
		"/subscribe <city> daily - daily forecast only.\n" +
		"/subscribe <city> emergency - emergency alerts only.\n" +
		"/subscriptions - list your subscriptions.\n" +
		"/unsubscribe <city> - remove a subscription.\n\n" +
		"⚙️ Settings:\n" +
		"/togglealert <city> - flip emergency alerts for one city.\n" +
		"/checkalerts - run an alert check right now."
)

// Handle processes one incoming message and returns the reply text.
// An empty return means no reply.
func (r *Router) Handle(ctx context.Context, from Sender, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	cmd, args := splitCommand(text)
	switch cmd {
	case "/start":
		return r.start(ctx, from)
	case "/help":
		return helpText
	case "/weather":
		return r.currentWeather(ctx, from, args)
	case "/profile":
		return r.setProfile(ctx, from, args)
	case "/subscribe":
		return r.subscribe(ctx, from, args)
	case "/unsubscribe":
		return r.unsubscribe(ctx, from, args)
	case "/subscriptions":
		return r.listSubscriptions(ctx, from)
	case "/togglealert":
		return r.toggleAlerts(ctx, from, args)
	case "/checkalerts":
		return r.checkAlerts(ctx)
	default:
		if strings.HasPrefix(cmd, "/") {
			return replyUnknown
		}
		// Bare text in a private chat is a weather query.
		return r.currentWeather(ctx, from, text)
	}
}

// splitCommand separates "/cmd@botname args" into the lowercase command and
// its argument string.
func splitCommand(text string) (cmd, args string) {
	cmd = text
	if i := strings.IndexAny(text, " \t"); i >= 0 {
		cmd, args = text[:i], strings.TrimSpace(text[i+1:])
	}
	cmd = strings.ToLower(cmd)
	if i := strings.IndexByte(cmd, '@'); i >= 0 && strings.HasPrefix(cmd, "/") {
		cmd = cmd[:i]
	}
	return cmd, args
}

func (r *Router) start(ctx context.Context, from Sender) string {
	if _, err := r.subs.TouchUser(ctx, from.ID, from.Username); err != nil {
		r.log.Error("start command", logx.Int64("user", from.ID), logx.Err(err))
		return replyError
	}
	return welcomeText
}

func (r *Router) currentWeather(ctx context.Context, from Sender, location string) string {
	if location == "" {
		return "Please specify location: /weather <city>"
	}
	coord, err := r.geo.Resolve(ctx, location)
	if err != nil {
		if errors.Is(err, geocode.ErrNotFound) {
			return "❌ Location '" + location + "' not found"
		}
		r.log.Error("resolve location", logx.String("location", location), logx.Err(err))
		return replyError
	}
	snap, err := r.weather.Current(ctx, coord)
	if err != nil {
		r.log.Error("fetch weather", logx.String("location", location), logx.Err(err))
		return replyError
	}

	reply := message.WeatherLine(location, snap)
	if r.advisor != nil && r.advisor.Enabled() {
		profile := domain.Profile{}
		if u, err := r.subs.GetOrCreateUser(ctx, from.ID); err == nil {
			profile = u.Profile
		}
		if advice := r.advisor.Recommend(ctx, snap, profile); advice != "" {
			reply += "\n\n💡 " + advice
		}
	}
	return reply
}

func (r *Router) setProfile(ctx context.Context, from Sender, args string) string {
	parts := strings.SplitN(args, " ", 3)
	if len(parts) < 3 || strings.TrimSpace(parts[2]) == "" {
		return "⚠️ Format: /profile <age> <driver: yes/no> <hobbies, comma separated>\nExample: /profile 30 yes fishing,photo"
	}
	age, err := strconv.Atoi(parts[0])
	if err != nil || age <= 0 || age > 150 {
		return "❌ Invalid age."
	}
	p := domain.Profile{
		Age:      age,
		Motorist: strings.HasPrefix(strings.ToLower(parts[1]), "y"),
		Hobbies:  strings.TrimSpace(parts[2]),
	}
	if err := r.subs.UpdateProfile(ctx, from.ID, p); err != nil {
		r.log.Error("update profile", logx.Int64("user", from.ID), logx.Err(err))
		return replyError
	}
	return "✅ Profile updated! Your interests will be used for personalized advice."
}

func (r *Router) subscribe(ctx context.Context, from Sender, args string) string {
	if args == "" {
		return "Usage: /subscribe <city> [daily] [emergency]"
	}
	parts := strings.Fields(args)
	daily, emergency := false, false
	kept := parts[:0]
	for _, p := range parts {
		switch strings.ToLower(p) {
		case "daily":
			daily = true
		case "emergency":
			emergency = true
		default:
			kept = append(kept, p)
		}
	}
	if !daily && !emergency {
		daily, emergency = true, true
	}
	location := strings.Join(kept, " ")
	if location == "" {
		return "❌ Could not parse city name."
	}

	coord, err := r.geo.Resolve(ctx, location)
	if err != nil {
		if errors.Is(err, geocode.ErrNotFound) {
			return "❌ Location '" + location + "' not found"
		}
		r.log.Error("resolve location", logx.String("location", location), logx.Err(err))
		return replyError
	}

	if _, err := r.subs.AddSubscription(ctx, from.ID, location, coord, daily, emergency); err != nil {
		if errors.Is(err, domain.ErrAlreadySubscribed) {
			return "❌ Already subscribed to " + location
		}
		r.log.Error("add subscription", logx.Int64("user", from.ID), logx.Err(err))
		return replyError
	}
	return message.Subscribed(location, daily, emergency)
}

func (r *Router) unsubscribe(ctx context.Context, from Sender, location string) string {
	if location == "" {
		return "Usage: /unsubscribe <city>"
	}
	removed, err := r.subs.RemoveSubscription(ctx, from.ID, location)
	if err != nil {
		r.log.Error("remove subscription", logx.Int64("user", from.ID), logx.Err(err))
		return replyError
	}
	if !removed {
		return "❌ Subscription to '" + location + "' not found"
	}
	return "✅ Unsubscribed from " + location
}

func (r *Router) listSubscriptions(ctx context.Context, from Sender) string {
	subs, err := r.subs.ListSubscriptions(ctx, from.ID)
	if err != nil {
		r.log.Error("list subscriptions", logx.Int64("user", from.ID), logx.Err(err))
		return replyError
	}
	return message.SubscriptionList(subs)
}

func (r *Router) toggleAlerts(ctx context.Context, from Sender, location string) string {
	if location == "" {
		return "Usage: /togglealert <city>"
	}
	enabled, err := r.subs.ToggleAlerts(ctx, from.ID, location)
	if err != nil {
		if errors.Is(err, domain.ErrNotSubscribed) {
			return "❌ Subscription for " + location + " not found."
		}
		r.log.Error("toggle alerts", logx.Int64("user", from.ID), logx.Err(err))
		return replyError
	}
	if enabled {
		return "🚨 Emergency alerts for " + location + ": ON"
	}
	return "🔕 Emergency alerts for " + location + ": OFF"
}

func (r *Router) checkAlerts(ctx context.Context) string {
	n := r.checker.PollAlertsNow(ctx)
	return "✅ Alert check completed: " + strconv.Itoa(n) + " new notification(s)."
}
