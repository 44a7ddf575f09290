package events

import (
	"context"
	"log/slog"
)

// LogPublisher is used when no broker is configured.
type LogPublisher struct {
	log *slog.Logger
}

func NewLogPublisher(log *slog.Logger) *LogPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &LogPublisher{log: log}
}

func (p *LogPublisher) PublishRentBooked(ctx context.Context, ev RentBooked) error {
	p.log.InfoContext(ctx, "event."+TypeRentBooked,
		"rent_id", ev.RentID,
		"house_id", ev.HouseID,
		"tenant_id", ev.TenantID,
		"owner_id", ev.OwnerID,
		"days", ev.DaysNumber,
	)
	return nil
}
