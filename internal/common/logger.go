package common

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"
)

// ServiceLogger is a zerolog child logger scoped to one DI service.
type ServiceLogger struct {
	logger zerolog.Logger
}

func NewServiceLogger(svc container.IInstance) *ServiceLogger {
	return &ServiceLogger{
		logger: log.With().Str("service", svc.ID()).Logger(),
	}
}

func (l *ServiceLogger) Info() *zerolog.Event {
	return l.logger.Info()
}

func (l *ServiceLogger) Warn() *zerolog.Event {
	return l.logger.Warn()
}

func (l *ServiceLogger) Error() *zerolog.Event {
	return l.logger.Error()
}

func (l *ServiceLogger) Debug() *zerolog.Event {
	return l.logger.Debug()
}
