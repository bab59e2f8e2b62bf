package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-api/internal/email"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/scheduling"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

// Notifier consumes appointment events and emails the party that did not
// initiate the change: doctors hear about bookings, cancellations and
// reschedules, patients about decisions on their requests.
type Notifier struct {
	broker   messaging.Broker
	doctors  repository.DoctorRepository
	patients repository.PatientRepository
	sender   email.Sender
	metrics  *metrics.Metrics
}

func NewNotifier(
	broker messaging.Broker,
	doctors repository.DoctorRepository,
	patients repository.PatientRepository,
	sender email.Sender,
	m *metrics.Metrics,
) *Notifier {
	return &Notifier{
		broker:   broker,
		doctors:  doctors,
		patients: patients,
		sender:   sender,
		metrics:  m,
	}
}

// Start blocks until ctx is cancelled or the subscription closes.
func (n *Notifier) Start(ctx context.Context) error {
	msgs, err := n.broker.Subscribe(ctx, scheduling.EventChannel)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", scheduling.EventChannel, err)
	}

	log.Info().Str("channel", scheduling.EventChannel).Msg("Notification worker started")

	for msg := range msgs {
		n.handle(ctx, msg)
	}
	return nil
}

func (n *Notifier) handle(ctx context.Context, payload []byte) {
	var evt scheduling.Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		log.Error().Err(err).Msg("Failed to decode appointment event")
		return
	}

	to, err := n.recipient(ctx, evt)
	if err != nil {
		n.metrics.NotificationsFailed.Inc()
		log.Error().Err(err).
			Str("appointment_id", evt.AppointmentID.String()).
			Str("action", evt.Action).
			Msg("Failed to resolve notification recipient")
		return
	}

	subject, body := composeNotification(evt)
	if err := n.sender.Send(to, subject, body); err != nil {
		n.metrics.NotificationsFailed.Inc()
		log.Error().Err(err).
			Str("appointment_id", evt.AppointmentID.String()).
			Str("action", evt.Action).
			Msg("Failed to send notification")
		return
	}

	n.metrics.NotificationsSent.Inc()
	log.Info().
		Str("appointment_id", evt.AppointmentID.String()).
		Str("action", evt.Action).
		Msg("Notification sent")
}

func (n *Notifier) recipient(ctx context.Context, evt scheduling.Event) (string, error) {
	switch evt.Action {
	case "created", string(model.ActionCancel), string(model.ActionReschedule):
		doctor, err := n.doctors.Get(ctx, evt.DoctorID)
		if err != nil {
			return "", err
		}
		return doctor.Email, nil
	default:
		patient, err := n.patients.Get(ctx, evt.PatientID)
		if err != nil {
			return "", err
		}
		return patient.Email, nil
	}
}

func composeNotification(evt scheduling.Event) (subject, body string) {
	when := fmt.Sprintf("%s at %s", evt.Date, evt.TimeSlot)

	switch evt.Action {
	case "created":
		subject = "New appointment request"
		body = fmt.Sprintf("A patient requested an appointment on %s.", when)
	case string(model.ActionAccept):
		subject = "Appointment confirmed"
		body = fmt.Sprintf("Your appointment on %s has been confirmed.", when)
	case string(model.ActionReject):
		subject = "Appointment declined"
		body = fmt.Sprintf("Your appointment request for %s was declined. Please pick another slot.", when)
	case string(model.ActionCancel):
		subject = "Appointment cancelled"
		body = fmt.Sprintf("The appointment on %s has been cancelled.", when)
	case string(model.ActionComplete):
		subject = "Appointment completed"
		body = fmt.Sprintf("Your appointment on %s is complete. Any medical records will appear in your profile.", when)
	case string(model.ActionReschedule):
		subject = "Appointment rescheduled"
		body = fmt.Sprintf("An appointment was moved to %s and awaits your confirmation.", when)
	default:
		subject = "Appointment update"
		body = fmt.Sprintf("Your appointment on %s changed status to %s.", when, evt.Status)
	}
	return subject, body
}
