package notification

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/sirupsen/logrus"

	"hostel-management-backend/internal/logging"
	"hostel-management-backend/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Subscriptions is the slice of the store the pool needs.
type Subscriptions interface {
	StudentSubscriptions(ctx context.Context, studentID string) ([]model.PushSubscription, error)
	ExpireSubscription(ctx context.Context, endpoint string) error
}

// Notice is one message for one student, delivered by push and, when an
// address is set and mail is configured, by e-mail.
type Notice struct {
	StudentID string
	Email     string
	Subject   string
	Body      string
}

type pushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan Notice
	subs    Subscriptions
	webpush *webpush.Options
	sender  NotificationSender
	mailer  Mailer
	log     *logrus.Entry
}

// NewWorkerPool creates a new worker pool. mailer may be nil.
func NewWorkerPool(size int, subs Subscriptions, webpushOptions *webpush.Options, mailer Mailer) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Notice, size*16),
		subs:    subs,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		mailer:  mailer,
		log:     logging.WithComponent("notification"),
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log := wp.log.WithField("worker", id)
	log.Debug("Worker started")
	for {
		select {
		case n := <-wp.jobs:
			wp.deliver(ctx, n)
		case <-ctx.Done():
			log.Debug("Worker shutting down")
			return
		}
	}
}

// Dispatch queues a notice. It never blocks the caller: when the queue is
// full the notice is dropped and false is returned.
func (wp *WorkerPool) Dispatch(n Notice) bool {
	select {
	case wp.jobs <- n:
		return true
	default:
		wp.log.WithField("student_id", n.StudentID).Warn("Notification queue full, dropping notice")
		return false
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Notice {
	return wp.jobs
}

func (wp *WorkerPool) deliver(ctx context.Context, n Notice) {
	log := wp.log.WithField("student_id", n.StudentID)

	if n.StudentID != "" && wp.webpush != nil && wp.webpush.VAPIDPrivateKey != "" {
		subscriptions, err := wp.subs.StudentSubscriptions(ctx, n.StudentID)
		if err != nil {
			log.WithError(err).Error("Error fetching subscriptions")
		} else if len(subscriptions) > 0 {
			payload, err := json.Marshal(pushPayload{Title: n.Subject, Body: n.Body})
			if err != nil {
				log.WithError(err).Error("Error encoding push payload")
			} else {
				for _, sub := range subscriptions {
					wp.sendNotification(ctx, sub, payload)
				}
			}
		}
	}

	if wp.mailer != nil && n.Email != "" {
		if err := wp.mailer.Send(ctx, n.Email, n.Subject, n.Body); err != nil {
			log.WithError(err).Error("Error sending mail")
		}
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.log.WithError(err).WithField("endpoint", sub.Endpoint).Error("Error sending notification")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		wp.log.WithField("endpoint", sub.Endpoint).Info("Subscription expired, deleting")
		if err := wp.subs.ExpireSubscription(ctx, sub.Endpoint); err != nil {
			wp.log.WithError(err).WithField("endpoint", sub.Endpoint).Error("Failed to delete expired subscription")
		}
	}
}
