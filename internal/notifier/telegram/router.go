package telegram

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/smartdoc/tracker-api/internal/model"
	"github.com/smartdoc/tracker-api/internal/service/binding"
	"github.com/smartdoc/tracker-api/internal/service/task"
	"github.com/smartdoc/tracker-api/pkg/logger"
)

const callbackComplete = "complete:"

var codePattern = regexp.MustCompile(`^\d{6}$`)

// BindingService is what the router needs to finish an account link.
type BindingService interface {
	SubmitCode(ctx context.Context, chatUserID, code string) (*model.Profile, error)
}

// TaskService closes tasks on behalf of a bound chat identity.
type TaskService interface {
	MarkCompleteByChat(ctx context.Context, chatUserID string, eventID uuid.UUID) (*model.DeadlineEvent, error)
}

// Router is the inbound side of the chat channel: it long-polls for
// updates and turns them into binding attempts and task completions.
type Router struct {
	bot      API
	bindings BindingService
	tasks    TaskService
	log      *logger.Logger

	// Telegram redelivers updates after restarts and timeouts; seen
	// update ids are remembered briefly so handlers run once.
	seen *cache.Cache
}

func NewRouter(bot API, bindings BindingService, tasks TaskService, log *logger.Logger) *Router {
	return &Router{
		bot:      bot,
		bindings: bindings,
		tasks:    tasks,
		log:      log,
		seen:     cache.New(10*time.Minute, 30*time.Minute),
	}
}

// Run consumes updates until ctx is cancelled.
func (r *Router) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := r.bot.GetUpdatesChan(u)
	r.log.Info("chat update loop started")

	for {
		select {
		case <-ctx.Done():
			r.bot.StopReceivingUpdates()
			r.log.Info("chat update loop stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			r.handleUpdate(ctx, update)
		}
	}
}

func (r *Router) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	key := strconv.Itoa(update.UpdateID)
	if _, dup := r.seen.Get(key); dup {
		return
	}
	r.seen.Set(key, struct{}{}, cache.DefaultExpiration)

	switch {
	case update.CallbackQuery != nil:
		r.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		r.handleMessage(ctx, update.Message)
	}
}

func (r *Router) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	chatID := msg.Chat.ID

	switch {
	case text == "/start":
		r.reply(chatID,
			"Welcome to Smart Doc Tracker.\n\n"+
				"To link this chat to your account, open the web app, "+
				"request a verification code and send the 6-digit code here.")

	case codePattern.MatchString(text):
		r.handleCode(ctx, chatID, text)

	default:
		r.reply(chatID, "Send a 6-digit verification code to link your account, or /start for help.")
	}
}

func (r *Router) handleCode(ctx context.Context, chatID int64, code string) {
	chatUserID := strconv.FormatInt(chatID, 10)

	profile, err := r.bindings.SubmitCode(ctx, chatUserID, code)
	switch {
	case err == nil:
		r.reply(chatID, fmt.Sprintf(
			"Linked to %s. You will receive deadline reminders here.", profile.DisplayName()))

	case errors.Is(err, binding.ErrCodeExpired):
		r.reply(chatID, "That code has expired. Request a new one from the web app.")

	case errors.Is(err, binding.ErrAlreadyBound):
		r.reply(chatID, "That account is already linked to another chat. Unlink it first from the web app.")

	case errors.Is(err, binding.ErrChatInUse):
		r.reply(chatID, "This chat is already linked to an account. Unlink it from the web app before entering a new code.")

	case errors.Is(err, binding.ErrCodeInvalid):
		r.reply(chatID, "That code is not valid. Check it and try again.")

	default:
		r.log.Error(err, "code submission failed", "chat_id", chatID)
		r.reply(chatID, "Something went wrong, try again in a moment.")
	}
}

func (r *Router) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	// Ack first so the client stops the spinner even if handling fails.
	if _, err := r.bot.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		r.log.Error(err, "callback ack failed")
	}

	if cq.Message == nil || !strings.HasPrefix(cq.Data, callbackComplete) {
		return
	}
	chatID := cq.Message.Chat.ID

	eventID, err := uuid.Parse(strings.TrimPrefix(cq.Data, callbackComplete))
	if err != nil {
		r.log.Warn("malformed callback payload", "data", cq.Data)
		return
	}

	chatUserID := strconv.FormatInt(chatID, 10)

	event, err := r.tasks.MarkCompleteByChat(ctx, chatUserID, eventID)
	switch {
	case err == nil:
		r.reply(chatID, fmt.Sprintf("Done: %s is marked complete.", event.Title))

	case errors.Is(err, task.ErrNotOwner):
		r.reply(chatID, "Only the project owner can mark this task complete.")

	case errors.Is(err, task.ErrEventNotFound):
		r.reply(chatID, "That task no longer exists.")

	default:
		r.log.Error(err, "mark complete failed", "chat_id", chatID, "event_id", eventID)
		r.reply(chatID, "Could not update the task, try again in a moment.")
	}
}

func (r *Router) reply(chatID int64, text string) {
	if _, err := r.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.log.Error(err, "chat reply failed", "chat_id", chatID)
	}
}
