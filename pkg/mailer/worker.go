package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	mailtpl "github.com/oksasatya/go-auth-core/pkg/mailer/templates"
)

// Sender delivers a rendered email.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// Outcome tells the consumer loop what to do with a delivery.
type Outcome int

const (
	Ack Outcome = iota
	Drop
	Requeue
)

var errNoRecipient = errors.New("email job has no recipient")

// ErrRejected marks a send the provider refused for good (bad address, suppressed
// recipient). Retrying it cannot succeed.
var ErrRejected = errors.New("email rejected by provider")

// Worker turns queued EmailJobs into sent emails.
type Worker struct {
	sender      Sender
	logger      *logrus.Logger
	sendTimeout time.Duration
	retryDelay  time.Duration
}

func NewWorker(sender Sender, logger *logrus.Logger) *Worker {
	return &Worker{sender: sender, logger: logger, sendTimeout: 15 * time.Second, retryDelay: 5 * time.Second}
}

// Handle processes one message body. Malformed, unrenderable and rejected jobs are dropped;
// other send failures are requeued.
func (w *Worker) Handle(ctx context.Context, body []byte) Outcome {
	var job EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		w.logger.WithError(err).Warn("bad email message")
		return Drop
	}
	subject, text, html, err := render(job)
	if err != nil {
		w.logger.WithError(err).WithField("template", job.Template).Warn("render email failed")
		return Drop
	}

	c, cancel := context.WithTimeout(ctx, w.sendTimeout)
	defer cancel()
	if err := w.sender.Send(c, job.To, subject, text, html); err != nil {
		if errors.Is(err, ErrRejected) {
			w.logger.WithError(err).WithField("to", job.To).Warn("email rejected, dropping")
			return Drop
		}
		w.logger.WithError(err).WithField("to", job.To).Warn("send email failed")
		return Requeue
	}
	w.logger.WithFields(logrus.Fields{"to": job.To, "template": job.Template}).Info("email sent")
	return Ack
}

// Consume drains deliveries until the channel closes or ctx is done.
func (w *Worker) Consume(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			switch w.Handle(ctx, msg.Body) {
			case Ack:
				_ = msg.Ack(false)
			case Drop:
				_ = msg.Nack(false, false)
			case Requeue:
				// Back off so a provider outage does not spin the queue.
				w.wait(ctx)
				_ = msg.Nack(false, true)
			}
		}
	}
}

func (w *Worker) wait(ctx context.Context) {
	if w.retryDelay <= 0 {
		return
	}
	t := time.NewTimer(w.retryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func render(job EmailJob) (subject, text, html string, err error) {
	if strings.TrimSpace(job.To) == "" {
		return "", "", "", errNoRecipient
	}
	if job.Template == "" {
		return job.Subject, job.Text, job.HTML, nil
	}
	subject, text, html, err = mailtpl.Render(job.Template, job.Data)
	if err != nil {
		return "", "", "", err
	}
	if job.Subject != "" {
		subject = job.Subject
	}
	return subject, text, html, nil
}
