package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"rss_sentinel/internal/model"
)

const (
	cmdCheck     = "check"
	cmdKeywords  = "keywords"
	cmdRmKeyword = "rmkw"

	cbToggleDigest = "toggle_digest"
	cbToggleImages = "toggle_images"
)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	data := cb.Data
	chatID := cb.Message.Chat.ID
	userID := cb.From.ID

	ack := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Send(ack); err != nil {
		b.log.Error("send callback ack", "error", err)
	}

	if !b.cfg.IsUserAllowed(userID) {
		return
	}

	parts := strings.SplitN(data, ":", 2)
	action := parts[0]

	b.log.Info("callback",
		"action", action,
		"chat_id", chatID,
		"user_id", userID,
		"username", cb.From.UserName,
	)

	switch action {
	case cbToggleDigest:
		b.toggleSetting(ctx, chatID, userID, func(s *model.UserSettings) {
			s.DigestMode = !s.DigestMode
		})
	case cbToggleImages:
		b.toggleSetting(ctx, chatID, userID, func(s *model.UserSettings) {
			s.NotifyWithImage = !s.NotifyWithImage
		})
	case cmdCheck:
		b.handleCheck(chatID)
	}
}

func (b *Bot) toggleSetting(ctx context.Context, chatID, userID int64, apply func(*model.UserSettings)) {
	settings, err := b.store.GetUserSettings(ctx, userID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	apply(settings)
	if err := b.store.UpdateUserSettings(ctx, settings); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.sendSettings(chatID, settings)
}

func (b *Bot) sendSettings(chatID int64, settings *model.UserSettings) {
	msg := tgbotapi.NewMessage(chatID, FormatSettings(settings))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("Digest: %s", onOff(settings.DigestMode)), cbToggleDigest+":0"),
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("Images: %s", onOff(settings.NotifyWithImage)), cbToggleImages+":0"),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send settings", "chat_id", chatID, "error", err)
	}
}
