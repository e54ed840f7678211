package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskAppointmentReminder = "appointments.reminder"

const TaskNotificationOutboxDue = "notification.outbox.due"

const TaskSendEmail = "notification.email.send"

type AppointmentReminderPayload struct {
	AppointmentID string    `json:"appointmentId"`
	RemindAt      time.Time `json:"remindAt"`
}

type NotificationOutboxDuePayload struct {
	OutboxID string `json:"outboxId"`
}

type SendEmailPayload struct {
	To       string         `json:"to"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data,omitempty"`
}

func NewAppointmentReminderTask(payload AppointmentReminderPayload) (*asynq.Task, error) {
	return newTask(TaskAppointmentReminder, payload)
}

func ParseAppointmentReminderPayload(task *asynq.Task) (AppointmentReminderPayload, error) {
	var payload AppointmentReminderPayload
	err := json.Unmarshal(task.Payload(), &payload)
	return payload, err
}

func NewNotificationOutboxDueTask(payload NotificationOutboxDuePayload) (*asynq.Task, error) {
	return newTask(TaskNotificationOutboxDue, payload)
}

func ParseNotificationOutboxDuePayload(task *asynq.Task) (NotificationOutboxDuePayload, error) {
	var payload NotificationOutboxDuePayload
	err := json.Unmarshal(task.Payload(), &payload)
	return payload, err
}

func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	return newTask(TaskSendEmail, payload)
}

func ParseSendEmailPayload(task *asynq.Task) (SendEmailPayload, error) {
	var payload SendEmailPayload
	err := json.Unmarshal(task.Payload(), &payload)
	return payload, err
}

func newTask(name string, payload any) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(name, data), nil
}
