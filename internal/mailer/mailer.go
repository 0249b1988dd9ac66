// Package mailer composes and sends the micro-lesson email through SESv2.
package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// DurationLabel is the fixed duration shown in every lesson email.
const DurationLabel = "5 min"

// SendEmailAPI is the SESv2 surface this package needs.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Mailer sends HTML email from a verified sender address. Fire-and-forget;
// a completed send cannot be retracted.
type Mailer struct {
	api    SendEmailAPI
	sender string
}

// New creates a Mailer sending from the given verified address.
func New(api SendEmailAPI, sender string) *Mailer {
	return &Mailer{api: api, sender: sender}
}

// ComposeLessonEmail builds the subject line and HTML body for a lesson
// email. Line breaks in the generated content become <br> markup.
func ComposeLessonEmail(topic, content string, now time.Time) (subject, html string) {
	title := "Learn: " + topic
	subject = "📚 Daily Micro-Lesson: " + title

	processed := strings.ReplaceAll(content, "\n", "<br>")
	date := now.Format("January 2, 2006")

	html = fmt.Sprintf(`<html>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: auto; padding: 20px;">
    <div style="background: #f0f7ff; padding: 15px; border-radius: 8px; margin-bottom: 20px;">
        <h2 style="color: #2c5282; margin: 0;">%s</h2>
        <p><strong>⏱️ Duration:</strong> %s</p>
    </div>
    <div style="line-height: 1.6; font-size: 16px;">
        <p>%s</p>
    </div>
    <hr style="margin: 30px 0;">
    <p style="font-size: 14px; color: #666; text-align: center;">
        Sent by Your AI Learning Assistant • %s
    </p>
</body>
</html>`, title, DurationLabel, processed, date)

	return subject, html
}

// Send delivers an HTML email to a single recipient.
func (m *Mailer) Send(ctx context.Context, to, subject, html string) error {
	_, err := m.api.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.sender),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(html)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses SendEmail: %w", err)
	}
	return nil
}
