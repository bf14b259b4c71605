package duelroom

import "strings"

const deepLinkPrefix = "room_"

// DeepLink builds the share URL that auto-joins a room through the bot's
// /start payload.
func DeepLink(botUsername, code string) string {
	return "https://t.me/" + botUsername + "?start=" + deepLinkPrefix + NormalizeCode(code)
}

// ParseDeepLink extracts a room code from a /start payload. Returns false
// for payloads that are not room links.
func ParseDeepLink(payload string) (string, bool) {
	payload = strings.TrimSpace(payload)
	if !strings.HasPrefix(payload, deepLinkPrefix) {
		return "", false
	}
	code := NormalizeCode(strings.TrimPrefix(payload, deepLinkPrefix))
	if !ValidCode(code) {
		return "", false
	}
	return code, true
}
