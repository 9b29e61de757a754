package notify

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/oddsintel/oddsintel/internal/instructions"
	"github.com/oddsintel/oddsintel/pkg/types"
)

const (
	// minSendInterval spaces Telegram messages to stay under the per-chat
	// rate limit (~30 messages/minute).
	minSendInterval = 2 * time.Second

	// alertQueueSize bounds the outbound queue; alerts beyond it drop.
	alertQueueSize = 100
)

// sender is the slice of the Telegram bot API the notifier needs.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier pushes newly detected opportunities to a Telegram chat.
// It subscribes to the scan engine; sends happen on a background worker so
// a slow Telegram API never stalls a scan. Each opportunity is alerted once.
type TelegramNotifier struct {
	bot         sender
	chatID      int64
	minInterval time.Duration
	logger      *zap.Logger

	queue  chan *types.Opportunity
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	alerted  map[string]struct{}
	lastSend time.Time
}

// Config holds Telegram notifier configuration.
type Config struct {
	BotToken string
	ChatID   int64
	Logger   *zap.Logger
}

// New creates a Telegram notifier and verifies the bot credentials.
func New(cfg Config) (*TelegramNotifier, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	if cfg.ChatID == 0 {
		return nil, fmt.Errorf("chat id is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	bot.Debug = false

	self, err := bot.GetMe()
	if err != nil {
		return nil, fmt.Errorf("verify telegram bot: %w", err)
	}

	logger.Info("telegram-notifier-connected",
		zap.String("bot", self.UserName),
		zap.Int64("chat_id", cfg.ChatID))

	return newNotifier(bot, cfg.ChatID, minSendInterval, logger), nil
}

// newNotifier wires the notifier around any sender and starts its worker.
func newNotifier(bot sender, chatID int64, minInterval time.Duration, logger *zap.Logger) *TelegramNotifier {
	ctx, cancel := context.WithCancel(context.Background())

	n := &TelegramNotifier{
		bot:         bot,
		chatID:      chatID,
		minInterval: minInterval,
		logger:      logger,
		queue:       make(chan *types.Opportunity, alertQueueSize),
		done:        make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
		alerted:     make(map[string]struct{}),
	}

	go n.sendLoop()

	return n
}

// Name implements scanner.Subscriber.
func (n *TelegramNotifier) Name() string {
	return "telegram-alerts"
}

// OnScanResult implements scanner.Subscriber: opportunities not alerted
// before are queued for sending. Enqueueing never blocks; when the queue is
// full the alert is dropped and counted.
func (n *TelegramNotifier) OnScanResult(_ context.Context, result *types.ScanResult) error {
	for i := range result.Opportunities {
		opp := result.Opportunities[i]

		key := opp.Key()
		if _, seen := n.alerted[key]; seen {
			continue
		}
		n.alerted[key] = struct{}{}

		select {
		case n.queue <- &opp:
		default:
			AlertsDroppedTotal.Inc()
			n.logger.Warn("telegram-queue-full",
				zap.String("event_id", opp.EventID))
		}
	}

	return nil
}

// sendLoop delivers queued alerts with the minimum spacing. After Stop it
// drains whatever is still queued before returning.
func (n *TelegramNotifier) sendLoop() {
	defer close(n.done)

	for {
		select {
		case <-n.ctx.Done():
			for {
				select {
				case opp := <-n.queue:
					n.send(opp)
				default:
					return
				}
			}
		case opp := <-n.queue:
			n.send(opp)
		}
	}
}

func (n *TelegramNotifier) send(opp *types.Opportunity) {
	// Space out sends; once stopped, drain without the delay.
	if wait := n.minInterval - time.Since(n.lastSend); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-n.ctx.Done():
			timer.Stop()
		}
	}
	n.lastSend = time.Now()

	text := opp.FormattedText
	if text == "" {
		text = instructions.FormatOpportunity(opp)
	}

	msg := tgbotapi.NewMessage(n.chatID, text+"\n\n"+instructions.Disclaimer())

	if _, err := n.bot.Send(msg); err != nil {
		AlertsSentTotal.WithLabelValues("error").Inc()
		n.logger.Warn("telegram-send-failed",
			zap.String("event_id", opp.EventID),
			zap.Error(err))
		return
	}

	AlertsSentTotal.WithLabelValues("ok").Inc()
	n.logger.Info("telegram-alert-sent",
		zap.String("type", string(opp.Type)),
		zap.String("event_id", opp.EventID),
		zap.Float64("profit_pct", opp.ProfitPct))
}

// QueueLen returns the number of alerts waiting to be sent.
func (n *TelegramNotifier) QueueLen() int {
	return len(n.queue)
}

// Stop shuts the notifier down after draining queued alerts.
func (n *TelegramNotifier) Stop() {
	n.cancel()
	<-n.done
}
