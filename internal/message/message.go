// Package message renders outbound chat text. Both the command router and
// the scheduler build their messages here so digests, alerts, and ad-hoc
// weather replies stay consistent.
package message

import (
	"strconv"
	"strings"

	"weatherbot/internal/domain"
)

// WeatherLine renders one location's current conditions, e.g.
// "Berlin: ☀️ Clear sky, 21.4°C | wind 3.2 m/s".
func WeatherLine(locationName string, snap domain.WeatherSnapshot) string {
	var b strings.Builder
	b.WriteString(locationName)
	b.WriteString(": ")
	b.WriteString(snap.Condition.Description)
	b.WriteString(", ")
	b.WriteString(snap.Temperature.String())
	b.WriteString(" | wind ")
	b.WriteString(strconv.FormatFloat(snap.WindSpeed, 'f', -1, 64))
	b.WriteString(" m/s")
	return b.String()
}

// Digest renders the daily forecast message. advisory is appended as an
// extra paragraph when non-empty.
func Digest(locationName string, snap domain.WeatherSnapshot, advisory string) string {
	msg := "📅 " + WeatherLine(locationName, snap)
	if advisory = strings.TrimSpace(advisory); advisory != "" {
		msg += "\n\n💡 " + advisory
	}
	return msg
}

// Alert renders an emergency alert message for one location.
func Alert(locationName string, a domain.Alert) string {
	var b strings.Builder
	b.WriteString("🚨 EMERGENCY ALERT: ")
	b.WriteString(locationName)
	b.WriteString(" 🚨\n\n")
	b.WriteString("⚠️ ")
	b.WriteString(a.Headline)
	b.WriteString("\nℹ️ ")
	b.WriteString(a.Event)
	b.WriteString("\n📝 ")
	b.WriteString(a.Description)
	if strings.TrimSpace(a.Instruction) != "" {
		b.WriteString("\n\n👮 Instruction: ")
		b.WriteString(a.Instruction)
	}
	return b.String()
}

// SubscriptionList renders the /subscriptions reply.
func SubscriptionList(subs []domain.Subscription) string {
	if len(subs) == 0 {
		return "You don't have any subscriptions yet."
	}
	var b strings.Builder
	b.WriteString("Your subscriptions:\n")
	for _, s := range subs {
		b.WriteString("\n📍 ")
		b.WriteString(s.LocationName)
		b.WriteString("\n")
		if s.DailyWeather {
			b.WriteString("   📅 Daily weather\n")
		}
		if s.EmergencyAlerts {
			b.WriteString("   🚨 Emergency alerts\n")
		}
	}
	return b.String()
}

// Subscribed renders the subscribe confirmation.
func Subscribed(locationName string, daily, emergency bool) string {
	msg := "✅ Subscribed to " + locationName
	if daily {
		msg += "\n📅 Daily weather: ON"
	}
	if emergency {
		msg += "\n🚨 Emergency alerts: ON"
	}
	return msg
}
