package handlers

import (
	"github.com/rs/zerolog"

	domain "github.com/taskpilot/file-api/internal/domain/attachment"
)

// Provider wires HTTP handlers.
type Provider struct {
	Attachments *AttachmentHandler
	Maintenance *MaintenanceHandler
	Events      *EventHandler
}

func NewProvider(service *domain.Service, sweeper *domain.Sweeper, bus *domain.OwnerEventBus, log zerolog.Logger) *Provider {
	return &Provider{
		Attachments: NewAttachmentHandler(service, log),
		Maintenance: NewMaintenanceHandler(service, sweeper, log),
		Events:      NewEventHandler(bus, log),
	}
}
