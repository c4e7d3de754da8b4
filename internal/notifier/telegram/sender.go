package telegram

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/smartdoc/tracker-api/internal/model"
	"github.com/smartdoc/tracker-api/internal/notifier"
	"github.com/smartdoc/tracker-api/pkg/logger"
)

// API is the subset of the bot client the sender and router use.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Sender delivers deadline reminders to the user's bound chat. Each
// message carries an inline button that lets the recipient close the
// task without leaving the chat.
type Sender struct {
	bot API
	log *logger.Logger
}

func NewSender(bot API, log *logger.Logger) *Sender {
	return &Sender{bot: bot, log: log}
}

func (s *Sender) Channel() string { return model.ChannelChat }

func (s *Sender) CanSend(user *model.Profile) bool {
	return s.bot != nil && user.ChatBound()
}

func (s *Sender) Send(ctx context.Context, user *model.Profile, reminder *notifier.Reminder) notifier.Result {
	if s.bot == nil {
		return notifier.Skipped("chat channel not configured")
	}
	if !user.ChatBound() {
		return notifier.Skipped("no chat identity bound")
	}

	chatID, err := strconv.ParseInt(*user.ChatUserID, 10, 64)
	if err != nil {
		return notifier.Failed(fmt.Errorf("invalid chat id %q: %w", *user.ChatUserID, err))
	}

	msg := tgbotapi.NewMessage(chatID, renderMessage(reminder))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				"Mark complete",
				callbackComplete+reminder.Event.ID.String(),
			),
		),
	)

	err = notifier.CallWithContext(ctx, func() error {
		_, sendErr := s.bot.Send(msg)
		return sendErr
	})
	if err != nil {
		s.log.Error(err, "chat send failed", "chat_id", chatID)
		return notifier.Failed(err)
	}

	s.log.Debug("chat message sent", "chat_id", chatID, "event_id", reminder.Event.ID)
	return notifier.Sent()
}

func renderMessage(r *notifier.Reminder) string {
	var icon string
	switch notifier.Classify(r.DaysLeft) {
	case notifier.UrgencyCritical:
		icon = "🔴"
	case notifier.UrgencyWarning:
		icon = "🟡"
	default:
		icon = "🔵"
	}

	return fmt.Sprintf(
		"%s <b>%s</b>\n\n<b>%s</b>\nProject: %s\nDue: %s\n%s",
		icon,
		notifier.Headline(r.DaysLeft),
		tgbotapi.EscapeText(tgbotapi.ModeHTML, r.Event.Title),
		tgbotapi.EscapeText(tgbotapi.ModeHTML, r.Project.Name),
		r.Event.DueDate,
		notifier.StatusLine(r.DaysLeft),
	)
}
