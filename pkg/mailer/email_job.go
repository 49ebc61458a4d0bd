package mailer

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Delivery happens in a separate consumer process; this service only
// enqueues jobs.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Template string         `json:"template,omitempty"` // e.g. "welcome"
	Data     map[string]any `json:"data,omitempty"`
}

// NewWelcomeJob builds the job enqueued after a successful registration.
func NewWelcomeJob(name, email string) EmailJob {
	return EmailJob{
		To:       email,
		Subject:  "Welcome aboard",
		Template: "welcome",
		Data: map[string]any{
			"Name":  name,
			"Email": email,
		},
	}
}
