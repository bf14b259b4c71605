// Package botduel adapts the duel engine to the Telegram Bot API. Each chat
// maps to one player; every game transition goes through the shared store's
// compare-and-swap, so two bot processes (or the web gateway) can serve the
// same room without stepping on each other.
package botduel

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/ethanyoon/verseduel/internal/adapter/duelpresent"
	"github.com/ethanyoon/verseduel/internal/duel"
	"github.com/ethanyoon/verseduel/internal/duelroom"
	"github.com/ethanyoon/verseduel/internal/obslog"
	"github.com/ethanyoon/verseduel/internal/tgbot"
)

const opTimeout = 10 * time.Second

type Bot struct {
	client      *tgbot.Client
	rooms       *duelroom.Manager
	games       *duel.Manager
	format      *duelpresent.Formatter
	botUsername string

	mu       sync.Mutex
	sessions map[int64]*session
}

func New(client *tgbot.Client, rooms *duelroom.Manager, games *duel.Manager, format *duelpresent.Formatter, botUsername string) *Bot {
	return &Bot{
		client:      client,
		rooms:       rooms,
		games:       games,
		format:      format,
		botUsername: botUsername,
		sessions:    make(map[int64]*session),
	}
}

// HandleUpdate is the poller entry point; main dispatches each update on its
// own goroutine so a slow store call never stalls the poll loop.
func (b *Bot) HandleUpdate(ctx context.Context, upd tgbot.Update) {
	msg := upd.Message
	if msg == nil || msg.From == nil || msg.From.IsBot || strings.TrimSpace(msg.Text) == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		b.handleAnswer(ctx, msg, text)
		return
	}
	parts := strings.Fields(text)
	cmd := strings.ToLower(parts[0])
	// commands arrive as /join@BotName in group chats
	if at := strings.Index(cmd, "@"); at >= 0 {
		cmd = cmd[:at]
	}
	args := parts[1:]

	switch cmd {
	case "/start":
		b.handleStart(ctx, msg, args)
	case "/newgame":
		b.handleNewGame(ctx, msg)
	case "/join":
		b.handleJoin(ctx, msg, args)
	case "/leave":
		b.handleLeave(ctx, msg)
	case "/ready":
		b.handleReady(ctx, msg)
	case "/next":
		b.handleNext(ctx, msg)
	case "/help":
		b.reply(ctx, msg.Chat.ID, b.format.Help())
	default:
		b.reply(ctx, msg.Chat.ID, b.format.Welcome())
	}
}

func playerID(u *tgbot.User) string { return "tg:" + strconv.FormatInt(u.ID, 10) }

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if text == "" {
		return
	}
	if err := b.client.SendMessage(ctx, chatID, text); err != nil {
		obslog.L().Warn("send_message_error", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// handleStart serves both the bare /start greeting and the deep-link payload
// (/start room_CODE), which joins the linked room directly.
func (b *Bot) handleStart(ctx context.Context, msg *tgbot.Message, args []string) {
	if len(args) > 0 {
		if code, ok := duelroom.ParseDeepLink(args[0]); ok {
			b.join(ctx, msg, code)
			return
		}
	}
	b.reply(ctx, msg.Chat.ID, b.format.Welcome())
}

func (b *Bot) handleNewGame(ctx context.Context, msg *tgbot.Message) {
	if sess := b.session(msg.Chat.ID); sess != nil {
		b.reply(ctx, msg.Chat.ID, b.format.AlreadyInGame(sess.code))
		return
	}
	room, err := b.rooms.CreateRoom(ctx, playerID(msg.From), msg.From.DisplayName())
	if err != nil {
		b.reply(ctx, msg.Chat.ID, b.format.ErrorText(err))
		return
	}
	if err := b.watch(msg.Chat.ID, playerID(msg.From), room); err != nil {
		b.reply(ctx, msg.Chat.ID, b.format.ErrorText(err))
		return
	}
	link := duelroom.DeepLink(b.botUsername, room.Code)
	b.reply(ctx, msg.Chat.ID, b.format.RoomCreated(room.Code, link))
	b.sendInviteQR(ctx, msg.Chat.ID, room.Code, link)
}

// sendInviteQR attaches a scannable invite; failures only cost the QR, the
// text link above already carries the invite.
func (b *Bot) sendInviteQR(ctx context.Context, chatID int64, code, link string) {
	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		obslog.L().Warn("qr_encode_error", zap.String("code", code), zap.Error(err))
		return
	}
	caption := fmt.Sprintf("Scan to join room %s", code)
	if err := b.client.SendPhoto(ctx, chatID, png, caption); err != nil {
		obslog.L().Warn("qr_send_error", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) handleJoin(ctx context.Context, msg *tgbot.Message, args []string) {
	if len(args) == 0 {
		b.reply(ctx, msg.Chat.ID, b.format.Help())
		return
	}
	b.join(ctx, msg, args[0])
}

func (b *Bot) join(ctx context.Context, msg *tgbot.Message, rawCode string) {
	if sess := b.session(msg.Chat.ID); sess != nil {
		b.reply(ctx, msg.Chat.ID, b.format.AlreadyInGame(sess.code))
		return
	}
	code := duelroom.NormalizeCode(rawCode)
	if !duelroom.ValidCode(code) {
		b.reply(ctx, msg.Chat.ID, b.format.ErrorText(duel.ErrNotFound))
		return
	}
	room, err := b.rooms.JoinRoom(ctx, code, playerID(msg.From), msg.From.DisplayName())
	if err != nil {
		b.reply(ctx, msg.Chat.ID, b.format.ErrorText(err))
		return
	}
	if err := b.watch(msg.Chat.ID, playerID(msg.From), room); err != nil {
		b.reply(ctx, msg.Chat.ID, b.format.ErrorText(err))
		return
	}
	b.reply(ctx, msg.Chat.ID, b.format.Joined(room))
}

func (b *Bot) handleLeave(ctx context.Context, msg *tgbot.Message) {
	sess := b.session(msg.Chat.ID)
	if sess == nil {
		b.reply(ctx, msg.Chat.ID, b.format.NotInGame())
		return
	}
	code := sess.code
	b.dropSession(msg.Chat.ID)
	if err := b.rooms.LeaveRoom(ctx, code, playerID(msg.From)); err != nil {
		b.reply(ctx, msg.Chat.ID, b.format.ErrorText(err))
		return
	}
	b.reply(ctx, msg.Chat.ID, b.format.Left(code))
}

func (b *Bot) handleReady(ctx context.Context, msg *tgbot.Message) {
	sess := b.session(msg.Chat.ID)
	if sess == nil {
		b.reply(ctx, msg.Chat.ID, b.format.NotInGame())
		return
	}
	room, err := b.games.SetReady(ctx, sess.code, sess.playerID, true)
	if err != nil {
		b.reply(ctx, msg.Chat.ID, b.format.ErrorText(err))
		return
	}
	b.reply(ctx, msg.Chat.ID, b.format.WaitingRoom(room))
	// If this ready completed the pair, kick off the countdown. When both
	// players ready up at once each client attempts it and the store keeps
	// exactly one transition.
	if room.AllReady() && sess.guard.Arm(duel.StageStart()) {
		if _, _, err := b.games.StartIfReady(ctx, sess.code); err != nil {
			obslog.L().Warn("start_if_ready_error", zap.String("code", sess.code), zap.Error(err))
		}
	}
}

func (b *Bot) handleNext(ctx context.Context, msg *tgbot.Message) {
	sess := b.session(msg.Chat.ID)
	if sess == nil {
		b.reply(ctx, msg.Chat.ID, b.format.NotInGame())
		return
	}
	if _, _, err := b.games.AdvanceRound(ctx, sess.code, sess.playerID); err != nil {
		b.reply(ctx, msg.Chat.ID, b.format.ErrorText(err))
	}
	// Success is announced through the room watcher, same as the opponent.
}

func (b *Bot) handleAnswer(ctx context.Context, msg *tgbot.Message, text string) {
	sess := b.session(msg.Chat.ID)
	if sess == nil {
		return
	}
	applied, room, res, err := b.games.SubmitAnswer(ctx, sess.code, sess.playerID, text)
	if err != nil {
		b.reply(ctx, msg.Chat.ID, b.format.ErrorText(err))
		return
	}
	if !applied {
		return
	}
	sess.stopTimer()
	b.reply(ctx, msg.Chat.ID, b.format.Submitted(res))
	// The opponent may already have finished; the submit path races the
	// watcher to reveal, and the guard plus the store CAS keep it single.
	if room != nil && room.AllFinished() && sess.guard.Arm(duel.StageReveal(room.CurrentRound)) {
		if _, _, err := b.games.FinalizeRound(ctx, sess.code); err != nil {
			obslog.L().Warn("finalize_error", zap.String("code", sess.code), zap.Error(err))
		}
	}
}
