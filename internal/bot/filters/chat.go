// Package filters содержит фильтры доступа к боту.
package filters

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// ChatFilter пропускает только личные сообщения: покупка и продажа контента —
// приватные операции, в групповых чатах боту делать нечего.
type ChatFilter struct{}

// NewChatFilter создаёт фильтр.
func NewChatFilter() *ChatFilter {
	return &ChatFilter{}
}

// CheckAccess решает, обрабатывать ли сообщение.
func (f *ChatFilter) CheckAccess(message *tgbotapi.Message) bool {
	if message == nil || message.Chat == nil {
		log.WithField("component", "ChatFilter").Warn("nil message/chat")
		return false
	}
	if message.From == nil {
		log.WithFields(log.Fields{
			"component": "ChatFilter",
			"chat_id":   message.Chat.ID,
			"chat_type": message.Chat.Type,
		}).Warn("nil message.From (service/channel message?)")
		return false
	}

	if message.Chat.IsPrivate() {
		return true
	}

	log.WithFields(log.Fields{
		"component": "ChatFilter",
		"chat_id":   message.Chat.ID,
		"chat_type": message.Chat.Type,
		"user_id":   message.From.ID,
	}).Debug("deny: not a private chat")
	return false
}
