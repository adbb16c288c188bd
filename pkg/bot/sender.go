package bot

import (
	"context"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// telegoSender 基于 telego 的 Sender 实现
type telegoSender struct {
	bot      *telego.Bot
	keyboard *telego.ReplyKeyboardMarkup
}

// NewTelegoSender 创建 telego 发送器，文本和图片回复附带主键盘
func NewTelegoSender(bot *telego.Bot) Sender {
	return &telegoSender{
		bot:      bot,
		keyboard: MainKeyboard(),
	}
}

func (s *telegoSender) SendText(ctx context.Context, chatID int64, text string, keyboard bool) error {
	params := tu.Message(tu.ID(chatID), text)
	if keyboard {
		params = params.WithReplyMarkup(s.keyboard)
	}
	_, err := s.bot.SendMessage(ctx, params)
	return err
}

func (s *telegoSender) SendPhoto(ctx context.Context, chatID int64, png []byte, filename, caption string) error {
	params := tu.Photo(tu.ID(chatID), tu.FileFromBytes(png, filename)).
		WithCaption(caption).
		WithReplyMarkup(s.keyboard)
	_, err := s.bot.SendPhoto(ctx, params)
	return err
}

func (s *telegoSender) SendDocument(ctx context.Context, chatID int64, data []byte, filename, caption string) error {
	params := tu.Document(tu.ID(chatID), tu.FileFromBytes(data, filename)).
		WithCaption(caption)
	_, err := s.bot.SendDocument(ctx, params)
	return err
}

func (s *telegoSender) SendAction(ctx context.Context, chatID int64, action string) error {
	return s.bot.SendChatAction(ctx, tu.ChatAction(tu.ID(chatID), action))
}
