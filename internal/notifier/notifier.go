// Package notifier pushes a message to configured shoutrrr URLs when the
// countdown reaches zero.
package notifier

import (
	"fmt"
	"time"

	"github.com/containrrr/shoutrrr"

	"github.com/ryzhenkov/countd/internal/domain"
	"github.com/ryzhenkov/countd/internal/eventbus"
	"github.com/ryzhenkov/countd/internal/logger"
)

// sendFunc allows tests to stub out the actual delivery.
type sendFunc func(url, message string) error

// Notifier listens for timer expiry and fans the alert out to every
// configured provider URL. Delivery failures are isolated per URL.
type Notifier struct {
	eventBus *eventbus.EventBus
	urls     []string
	send     sendFunc
}

// New creates a Notifier. urls are shoutrrr provider URLs
// (discord://, telegram://, ntfy://, ...); an empty list disables delivery.
func New(eb *eventbus.EventBus, urls []string) *Notifier {
	return &Notifier{
		eventBus: eb,
		urls:     urls,
		send:     shoutrrr.Send,
	}
}

// Start subscribes to timer expiry events.
func (n *Notifier) Start() {
	if len(n.urls) == 0 {
		logger.Infof("Notifier disabled (no notification URLs configured)")
		return
	}

	n.eventBus.Subscribe(domain.TimerExpired, n.handleTimerExpired)
	logger.Infof("Notifier started (%d provider(s))", len(n.urls))
}

func (n *Notifier) handleTimerExpired(event domain.Event) {
	message := fmt.Sprintf("⏰ Countdown finished at %s", time.Now().Format("15:04:05"))

	for _, url := range n.urls {
		if err := n.send(url, message); err != nil {
			logger.Errorf("Failed to send expiry notification: %v", err)
			n.eventBus.Publish(domain.Event{
				EventType: domain.NotificationFailed,
				EventData: map[string]interface{}{"error": err.Error()},
			})
			continue
		}
		n.eventBus.Publish(domain.Event{
			EventType: domain.NotificationSent,
		})
	}
}
