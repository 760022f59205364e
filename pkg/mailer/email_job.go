package mailer

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Either Template (with Data) or Subject plus Text/HTML is set.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // e.g. "welcome"
	Data     map[string]any `json:"data,omitempty"`
}

// MessageType names the job on the wire: "email.<template>", or "email.raw" for pre-rendered bodies.
func (j EmailJob) MessageType() string {
	if j.Template == "" {
		return "email.raw"
	}
	return "email." + j.Template
}
