package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jhoicas/retail-suggestions/internal/application/suggestion"
)

var _ suggestion.Notifier = (*LogNotifier)(nil)

// LogNotifier registra los avisos en el log. Se usa cuando no hay Redis configurado.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier construye el notificador de log.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "notifier").Logger()}
}

// Notify nunca falla.
func (n *LogNotifier) Notify(_ context.Context, retailerID, message string) error {
	n.log.Info().Str("retailer_id", retailerID).Str("message", message).Msg("aviso a minorista")
	return nil
}
