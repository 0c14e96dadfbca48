package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/time/rate"

	"github.com/jhoicas/retail-suggestions/internal/application/suggestion"
)

var _ suggestion.Notifier = (*Notifier)(nil)

// inboxSize cantidad de avisos que se conservan por minorista.
const inboxSize = 50

// Message aviso publicado al minorista.
type Message struct {
	RetailerID string    `json:"retailer_id"`
	Text       string    `json:"text"`
	SentAt     time.Time `json:"sent_at"`
}

// ChannelKey canal pub/sub del minorista.
func ChannelKey(retailerID string) string {
	return fmt.Sprintf("retailer:%s:suggestions", retailerID)
}

// InboxKey lista con los últimos avisos del minorista.
func InboxKey(retailerID string) string {
	return fmt.Sprintf("retailer:%s:inbox", retailerID)
}

// Notifier publica avisos en Redis y los guarda en una bandeja acotada por minorista.
type Notifier struct {
	rdb     *redis.Client
	limiter *rate.Limiter
	now     func() time.Time
}

// NewNotifier construye el notificador. perSecond <= 0 deshabilita el límite de envío.
func NewNotifier(rdb *redis.Client, perSecond float64) *Notifier {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Notifier{rdb: rdb, limiter: rate.NewLimiter(limit, 20), now: time.Now}
}

func (n *Notifier) payload(retailerID, text string) ([]byte, error) {
	return json.Marshal(Message{RetailerID: retailerID, Text: text, SentAt: n.now().UTC()})
}

// Notify publica el aviso y lo agrega a la bandeja en un solo pipeline.
func (n *Notifier) Notify(ctx context.Context, retailerID, text string) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("notify rate limit: %w", err)
	}
	body, err := n.payload(retailerID, text)
	if err != nil {
		return err
	}
	_, err = n.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Publish(ctx, ChannelKey(retailerID), body)
		p.LPush(ctx, InboxKey(retailerID), body)
		p.LTrim(ctx, InboxKey(retailerID), 0, inboxSize-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("notify %s: %w", retailerID, err)
	}
	return nil
}

// Inbox devuelve los últimos avisos del minorista, el más reciente primero.
func (n *Notifier) Inbox(ctx context.Context, retailerID string, limit int64) ([]Message, error) {
	if limit <= 0 || limit > inboxSize {
		limit = inboxSize
	}
	raw, err := n.rdb.LRange(ctx, InboxKey(retailerID), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("inbox %s: %w", retailerID, err)
	}
	out := make([]Message, 0, len(raw))
	for _, r := range raw {
		var m Message
		if err := json.Unmarshal([]byte(r), &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}
