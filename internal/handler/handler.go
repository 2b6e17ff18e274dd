package handler

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/set-night/tripmind/internal/config"
	"github.com/set-night/tripmind/internal/domain"
	"github.com/set-night/tripmind/internal/service"
	"github.com/set-night/tripmind/internal/telegram"
)

// Handler holds all dependencies needed by command and callback handlers.
type Handler struct {
	bot         *bot.Bot
	cfg         *config.Config
	chats       *service.ChatService
	tgLogger    *telegram.TelegramLogger
	botUsername string

	refine *refinements
	wg     sync.WaitGroup
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Bot         *bot.Bot
	Cfg         *config.Config
	Chats       *service.ChatService
	TgLogger    *telegram.TelegramLogger
	BotUsername string
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		bot:         deps.Bot,
		cfg:         deps.Cfg,
		chats:       deps.Chats,
		tgLogger:    deps.TgLogger,
		botUsername: deps.BotUsername,
		refine:      newRefinements(),
	}
}

// async runs a long engine call off the update loop so one chat waiting on
// the planning service does not hold up the others.
func (h *Handler) async(ctx context.Context, name string, fn func(ctx context.Context)) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic recovered in background handler",
					"handler", name,
					"panic", r,
					"stack", string(debug.Stack()),
				)
			}
		}()
		fn(ctx)
	}()
}

// Wait blocks until background handlers finish.
func (h *Handler) Wait() {
	h.wg.Wait()
}

// refinements remembers, per chat, the card whose refinement instructions
// the next text message carries.
type refinements struct {
	mu    sync.Mutex
	armed map[int64]domain.CardRef
}

func newRefinements() *refinements {
	return &refinements{armed: make(map[int64]domain.CardRef)}
}

func (r *refinements) Arm(chatID int64, ref domain.CardRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.armed[chatID] = ref
}

// Take returns and clears the armed card.
func (r *refinements) Take(chatID int64) (domain.CardRef, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref, ok := r.armed[chatID]
	delete(r.armed, chatID)
	return ref, ok
}

func (r *refinements) Clear(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.armed, chatID)
}
