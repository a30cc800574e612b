package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/storefront/pkg/metrics"
	"github.com/example/storefront/pkg/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

const auditTimeout = 5 * time.Second

// Dispatcher hands messages to a mail actor. Dispatch never blocks on
// delivery and delivery failures never reach the caller.
type Dispatcher struct {
	system   *actor.ActorSystem
	pid      *actor.PID
	operator string
	logger   *zap.Logger
}

func NewDispatcher(mailer Mailer, operator string, auditor repository.AuditLogger, m *metrics.Metrics, logger *zap.Logger) (*Dispatcher, error) {
	system := actor.NewActorSystem()
	props := actor.PropsFromProducer(func() actor.Actor {
		return &mailActor{
			mailer:  mailer,
			auditor: auditor,
			metrics: m,
			logger:  logger.Named("mail-actor"),
		}
	})
	pid, err := system.Root.SpawnNamed(props, "mail-actor")
	if err != nil {
		return nil, fmt.Errorf("failed to spawn mail actor: %w", err)
	}
	return &Dispatcher{system: system, pid: pid, operator: operator, logger: logger}, nil
}

// Dispatch queues a copy of msg; the caller's message is never modified.
func (d *Dispatcher) Dispatch(msg *Message) {
	out := *msg
	out.To = append([]string(nil), msg.To...)
	if out.Operator {
		if d.operator == "" {
			d.logger.Warn("Dropping operator notification, no operator address", zap.String("kind", string(out.Kind)))
			return
		}
		out.To = []string{d.operator}
	}
	if len(out.To) == 0 || out.To[0] == "" {
		d.logger.Warn("Dropping notification without recipient", zap.String("kind", string(out.Kind)))
		return
	}
	d.system.Root.Send(d.pid, &out)
}

// Close stops the mail actor after it has drained queued messages.
func (d *Dispatcher) Close() error {
	return d.system.Root.PoisonFuture(d.pid).Wait()
}

type mailActor struct {
	mailer  Mailer
	auditor repository.AuditLogger
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func (a *mailActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *Message:
		a.deliver(msg)

	case *actor.Started:
		a.logger.Debug("Mail actor started")

	case *actor.Stopping:
		a.logger.Debug("Mail actor stopping")
	}
}

func (a *mailActor) deliver(msg *Message) {
	err := a.mailer.Send(msg)
	a.metrics.Notification(string(msg.Kind), err)
	if err == nil {
		a.logger.Info("Notification sent",
			zap.String("kind", string(msg.Kind)),
			zap.Strings("to", msg.To))
		return
	}

	a.logger.Error("Failed to send notification",
		zap.String("kind", string(msg.Kind)),
		zap.Strings("to", msg.To),
		zap.Error(err))

	ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
	defer cancel()
	entry := &repository.AuditLog{
		Service:  "notify",
		Action:   repository.ActionNotificationFailed,
		EntityID: msg.EntityID,
		Data: bson.M{
			"kind":    string(msg.Kind),
			"to":      msg.To,
			"subject": msg.Subject,
			"error":   err.Error(),
		},
	}
	if err := a.auditor.CreateAuditLog(ctx, entry); err != nil {
		a.logger.Warn("Failed to write audit log", zap.Error(err))
	}
}
