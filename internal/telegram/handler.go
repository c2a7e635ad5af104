package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/PoluyanbIch/QuizPollBot/internal/config"
	"github.com/PoluyanbIch/QuizPollBot/internal/service"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

const (
	startText        = "Quiz is being sent to the channel."
	emptyPayloadText = "Please provide at least one valid question in JSON format."
	deletedText      = "All previous questions have been deleted."
	helloText        = "Hello, Bot is Working."
	unknownText      = "Unknown command"
	noQuestionsText  = "There are no questions to send. Add some with /addquestion."

	maxListedErrors = 20
	// maxReplyBytes leaves room under Telegram's 4096 character message limit
	// for the summary line and the "...and N more" tail.
	maxReplyBytes = 3500
	maxEntryBytes = 300
)

type Bot struct {
	api         *tgbotapi.BotAPI
	sender      sender
	store       *service.Store
	dispatcher  *service.Dispatcher
	publisher   *PollPublisher
	log         *slog.Logger
	pollTimeout int
	handlers    sync.WaitGroup
}

func NewBot(cfg *config.Config, store *service.Store, log *slog.Logger) (*Bot, error) {
	dest, err := cfg.Destination()
	if err != nil {
		return nil, err
	}

	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	api.Debug = cfg.Debug

	b := newBot(api, store, dest, log)
	b.api = api
	b.pollTimeout = cfg.PollTimeout
	return b, nil
}

func newBot(s sender, store *service.Store, dest config.Destination, log *slog.Logger) *Bot {
	return &Bot{
		sender:      s,
		store:       store,
		dispatcher:  service.NewDispatcher(store),
		publisher:   NewPollPublisher(s, dest),
		log:         log,
		pollTimeout: config.DefaultPollTimeout,
	}
}

// Start receives updates until ctx is done. Each update is handled on its own
// goroutine; Start returns after the handlers still running have finished.
func (b *Bot) Start(ctx context.Context) {
	b.log.Info("authorised", "account", b.api.Self.UserName, "channel", b.publisher.dest.String())

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.pollTimeout

	updates := b.api.GetUpdatesChan(u)
	defer b.handlers.Wait()

	for {
		select {
		case <-ctx.Done():
			b.log.Info("stopping, waiting for running commands")
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handlers.Add(1)
			go func() {
				defer b.handlers.Done()
				b.handleUpdate(ctx, update)
			}()
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		b.handleStart(ctx, chatID)
	case "addquestion":
		b.handleAddQuestion(chatID, msg.CommandArguments())
	case "deletequestions":
		b.handleDeleteQuestions(chatID)
	case "":
		if msg.Text == "hello" {
			b.sendMessage(chatID, helloText)
		}
	default:
		b.sendMessage(chatID, unknownText)
	}
}

func (b *Bot) handleStart(ctx context.Context, chatID int64) {
	b.sendMessage(chatID, startText)

	log := b.log.With("run_id", uuid.NewString(), "chat_id", chatID)
	report, err := b.dispatcher.Dispatch(ctx, b.publisher.Publish)
	if err != nil {
		log.Error("dispatch failed", "error", err)
		b.sendMessage(chatID, storeErrorText(err))
		return
	}

	for _, failed := range report.Failed {
		log.Warn("poll not delivered", "question", failed.Index+1, "error", failed.Err)
	}
	log.Info("dispatch finished", "total", report.Total, "published", report.Published, "failed", len(report.Failed))
	b.sendMessage(chatID, formatDispatchReport(report))
}

func (b *Bot) handleAddQuestion(chatID int64, payload string) {
	if strings.TrimSpace(payload) == "" {
		b.sendMessage(chatID, emptyPayloadText)
		return
	}

	report, err := service.Ingest(b.store, payload)
	if err != nil {
		b.log.Error("add questions failed", "chat_id", chatID, "error", err)
		b.sendMessage(chatID, storeErrorText(err))
		return
	}

	b.log.Info("questions added", "chat_id", chatID, "added", report.Added, "rejected", len(report.Errors))
	b.sendMessage(chatID, formatIngestReport(report))
}

func (b *Bot) handleDeleteQuestions(chatID int64) {
	if err := b.store.Clear(); err != nil {
		b.log.Error("clear questions failed", "chat_id", chatID, "error", err)
		b.sendMessage(chatID, storeErrorText(err))
		return
	}
	b.log.Info("questions cleared", "chat_id", chatID)
	b.sendMessage(chatID, deletedText)
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.sender.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func formatIngestReport(r service.IngestReport) string {
	var sb strings.Builder
	if r.Empty() {
		sb.WriteString("No questions were added.")
	} else {
		fmt.Fprintf(&sb, "Added %d question(s).", r.Added)
	}
	writeItemErrors(&sb, "Skipped lines:", "line", r.Errors, 0)
	return sb.String()
}

func formatDispatchReport(r service.DispatchReport) string {
	if r.Total == 0 {
		return noQuestionsText
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Sent %d of %d question(s) to the channel.", r.Published, r.Total)
	writeItemErrors(&sb, "Not delivered:", "question", r.Failed, 1)
	return sb.String()
}

// writeItemErrors lists errs under title. offset is added to each index so
// 0-based positions print as 1-based numbers. The list stops at
// maxListedErrors entries or once the reply would pass maxReplyBytes.
func writeItemErrors(sb *strings.Builder, title, noun string, errs []service.ItemError, offset int) {
	if len(errs) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n\n%s", title)
	for i, e := range errs {
		entry := fmt.Sprintf("\n%s %d: %s", noun, e.Index+offset, truncateText(e.Err.Error(), maxEntryBytes))
		if i == maxListedErrors || sb.Len()+len(entry) > maxReplyBytes {
			fmt.Fprintf(sb, "\n...and %d more", len(errs)-i)
			break
		}
		sb.WriteString(entry)
	}
}

// truncateText cuts s to at most limit bytes without splitting a rune.
func truncateText(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit - len("...")
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func storeErrorText(err error) string {
	switch {
	case errors.Is(err, service.ErrCorruptStore):
		return "The question file is damaged and was left untouched. Fix it by hand or reset it with /deletequestions."
	case errors.Is(err, service.ErrStoreIO):
		return "Could not access the question file. Please try again later."
	default:
		return "Something went wrong, please try again."
	}
}
