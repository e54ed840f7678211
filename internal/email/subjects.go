package email

var subjects = map[string]string{
	TemplateVisitInvite:         "Your inspection visit has been scheduled",
	TemplateVisitRejected:       "Customer rejected a visit",
	TemplateAppointmentReminder: "Reminder: upcoming inspection visit",
}
