package notify

import (
	"fmt"

	"github.com/asaskevich/EventBus"
	"github.com/ekazakov/job-matcher/internal/events"
	"github.com/ekazakov/job-matcher/internal/logger"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Notifier pushes match and approval notifications to Telegram. It is
// delivery only: chats are mapped per user in configuration and there is no
// inbound command handling.
type Notifier struct {
	api   *botApi.BotAPI
	chats map[string]int64
}

func NewNotifier(token string, chats map[string]int64, bus EventBus.Bus) (*Notifier, error) {

	api, err := botApi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	log.Infof("notifier authorized on account %s", api.Self.UserName)

	if err := botApi.SetLogger(log.StandardLogger()); err != nil {
		return nil, err
	}

	n := &Notifier{api: api, chats: chats}

	if err := bus.Subscribe(events.MatchFoundTopic, n.onMatchFound); err != nil {
		return nil, errors.Wrap(err, "subscribe to match events")
	}
	if err := bus.Subscribe(events.ApprovalQueuedTopic, n.onApprovalQueued); err != nil {
		return nil, errors.Wrap(err, "subscribe to approval events")
	}
	return n, nil
}

func (n *Notifier) onMatchFound(event events.MatchFound) {
	n.send(event.UserID, fmt.Sprintf("New match (%d%%): %v at %v\n%v",
		event.Score, event.Title, event.Company, event.URL))
}

func (n *Notifier) onApprovalQueued(event events.ApprovalQueued) {
	n.send(event.UserID, fmt.Sprintf("Action awaiting your approval: %v\nID: %v",
		event.Description, event.ActionID))
}

func (n *Notifier) send(userID string, text string) {

	chatID, known := n.chats[userID]
	if !known {
		log.Debugf("no telegram chat configured for user %v, skipping notification", userID)
		return
	}

	msg := botApi.NewMessage(chatID, text)
	if _, err := n.api.Send(msg); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeTgApi).
			Errorf("error occured while sending message: %v", err)
	}
}
