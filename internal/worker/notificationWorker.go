package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Emmanuelayeni3000/ELIVRA-sub000/pkg/mailer"
	"github.com/Emmanuelayeni3000/ELIVRA-sub000/pkg/queue"

	"github.com/sirupsen/logrus"
)

// QueueInspector is the part of the redis queue the worker reports on.
type QueueInspector interface {
	GetQueueStats(ctx context.Context) (*queue.QueueStats, error)
	DLQ() queue.DLQHandler
}

// NotificationWorker redelivers emails that failed on the request path.
type NotificationWorker struct {
	mailer   mailer.Mailer
	queue    QueueInspector
	interval time.Duration
}

func NewNotificationWorker(m mailer.Mailer, q QueueInspector, interval time.Duration) *NotificationWorker {
	return &NotificationWorker{
		mailer:   m,
		queue:    q,
		interval: interval,
	}
}

// HandleTask is the queue.Handler for send_email tasks.
func (w *NotificationWorker) HandleTask(ctx context.Context, task *queue.Task) error {
	if task.Type != queue.TaskTypeSendEmail {
		return fmt.Errorf("unknown task type %q: %w", task.Type, queue.ErrPermanent)
	}

	msg := &mailer.Message{
		Type:    task.GetString("type"),
		To:      task.GetString("to"),
		ToName:  task.GetString("to_name"),
		Subject: task.GetString("subject"),
		Text:    task.GetString("text"),
		Data:    task.GetStringMap("data"),
	}

	log := logrus.WithFields(logrus.Fields{
		"task_id": task.ID,
		"type":    msg.Type,
		"to":      mailer.MaskEmail(msg.To),
		"attempt": task.Attempts,
	})

	if err := w.mailer.Send(ctx, msg); err != nil {
		if errors.Is(err, mailer.ErrRejected) {
			log.WithError(err).Error("Email rejected, giving up")
			return fmt.Errorf("%w: %v", queue.ErrPermanent, err)
		}
		log.WithError(err).Warn("Email redelivery failed")
		return err
	}

	log.Info("Queued email delivered")
	return nil
}

// Start logs queue depth every interval until ctx is done.
func (w *NotificationWorker) Start(ctx context.Context) {
	if w.queue == nil || w.interval <= 0 {
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logrus.Info("Notification worker started")

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Notification worker stopped")
			return
		case <-ticker.C:
			w.reportStats(ctx)
		}
	}
}

func (w *NotificationWorker) reportStats(ctx context.Context) {
	stats, err := w.queue.GetQueueStats(ctx)
	if err != nil {
		logrus.Errorf("Failed to get queue stats: %v", err)
		return
	}

	fields := logrus.Fields{
		"ready":      stats.MainQueue,
		"delayed":    stats.DelayedQueue,
		"processing": stats.ProcessingQueue,
	}

	dlq, err := w.queue.DLQ().GetDLQStats(ctx)
	if err != nil {
		logrus.Errorf("Failed to get DLQ stats: %v", err)
	} else {
		fields["dead"] = dlq.QueueSize
	}

	entry := logrus.WithFields(fields)
	if dlq != nil && dlq.QueueSize > 0 {
		entry.Warn("Notification queue has dead letters")
		return
	}
	entry.Info("Notification queue stats")
}
