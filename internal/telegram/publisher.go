package telegram

import (
	"context"

	"github.com/PoluyanbIch/QuizPollBot/internal/config"
	"github.com/PoluyanbIch/QuizPollBot/internal/service"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// sender is the part of *tgbotapi.BotAPI the handlers use.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// PollPublisher sends questions as quiz polls to one channel.
type PollPublisher struct {
	api  sender
	dest config.Destination
}

func NewPollPublisher(api sender, dest config.Destination) *PollPublisher {
	return &PollPublisher{api: api, dest: dest}
}

// Publish sends one quiz poll. The HTTP client of the bot API carries its own
// timeout, so ctx is not consulted here.
func (p *PollPublisher) Publish(_ context.Context, q service.QuizQuestion) error {
	_, err := p.api.Send(newQuizPoll(p.dest, q))
	return err
}

func newQuizPoll(dest config.Destination, q service.QuizQuestion) tgbotapi.SendPollConfig {
	poll := tgbotapi.NewPoll(dest.ChatID, q.Question, q.Options...)
	if dest.Username != "" {
		poll.ChannelUsername = dest.Username
	}
	poll.Type = "quiz"
	poll.CorrectOptionID = int64(q.Correct)
	return poll
}
