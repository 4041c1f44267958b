package notify

import (
	"fmt"
	"strings"

	"visaflow/internal/models"
)

var emailTemplates = map[string]map[string]string{
	models.NotificationModeBatch: {
		"subject": "Payment received for your {{country}} {{visaType}} application",
		"html": "<p>Hello,</p>" +
			"<p>We have received your payment of <strong>{{amount}}</strong> for the {{country}} {{visaType}} application <strong>{{applicationId}}</strong>.</p>" +
			"<p>Applicants on this application:</p><ul>{{applicantList}}</ul>" +
			"<p>Your application is now being processed. You can follow its progress at <a href=\"{{trackingUrl}}\">{{trackingUrl}}</a>.</p>",
		"text": "Hello,\n\n" +
			"We have received your payment of {{amount}} for the {{country}} {{visaType}} application {{applicationId}}.\n\n" +
			"Applicants on this application:\n{{applicantLines}}\n" +
			"Your application is now being processed. Track it at {{trackingUrl}}.",
	},
	models.NotificationModePersonalized: {
		"subject": "Payment received for your {{country}} {{visaType}} application",
		"html": "<p>Hello {{applicantName}},</p>" +
			"<p>We have received your payment of <strong>{{amount}}</strong> for the {{country}} {{visaType}} application <strong>{{applicationId}}</strong>.</p>" +
			"{{documentSection}}" +
			"<p>Your application is now being processed. You can follow its progress at <a href=\"{{trackingUrl}}\">{{trackingUrl}}</a>.</p>",
		"text": "Hello {{applicantName}},\n\n" +
			"We have received your payment of {{amount}} for the {{country}} {{visaType}} application {{applicationId}}.\n" +
			"{{documentLine}}\n" +
			"Your application is now being processed. Track it at {{trackingUrl}}.",
	},
	models.NotificationModeAdmin: {
		"subject": "Payment settled: application {{applicationId}}",
		"html": "<p>Payment event {{eventId}} settled {{amount}} for application {{applicationId}} " +
			"({{country}} / {{visaType}}, {{applicantCount}} applicant(s)). Status advanced to processing.</p>",
		"text": "Payment event {{eventId}} settled {{amount}} for application {{applicationId}} " +
			"({{country}} / {{visaType}}, {{applicantCount}} applicant(s)). Status advanced to processing.",
	},
}

func renderBatchEmail(app *models.Application, event *models.PaymentEvent, baseURL string) (subject, html, text string) {
	data := baseTemplateData(app, event, baseURL)

	var htmlList, textLines strings.Builder
	for _, applicant := range app.Applicants {
		htmlList.WriteString("<li>" + applicant.FullName() + "</li>")
		textLines.WriteString("  - " + applicant.FullName() + "\n")
	}
	data["applicantList"] = htmlList.String()
	data["applicantLines"] = textLines.String()

	tmpl := emailTemplates[models.NotificationModeBatch]
	return renderTemplate(tmpl["subject"], data),
		renderTemplate(tmpl["html"], data),
		renderTemplate(tmpl["text"], data)
}

// renderPersonalizedEmail references only this applicant's own document link;
// other applicants never appear in the body.
func renderPersonalizedEmail(app *models.Application, applicant models.Applicant, event *models.PaymentEvent, baseURL string) (subject, html, text string) {
	data := baseTemplateData(app, event, baseURL)
	data["applicantName"] = applicant.FullName()
	if applicant.DocumentURL != "" {
		data["documentSection"] = "<p>Your document is available here: <a href=\"" + applicant.DocumentURL + "\">" + applicant.DocumentURL + "</a></p>"
		data["documentLine"] = "Your document is available here: " + applicant.DocumentURL
	}

	tmpl := emailTemplates[models.NotificationModePersonalized]
	return renderTemplate(tmpl["subject"], data),
		renderTemplate(tmpl["html"], data),
		renderTemplate(tmpl["text"], data)
}

func renderAdminEmail(app *models.Application, event *models.PaymentEvent) (subject, html, text string) {
	data := baseTemplateData(app, event, "")
	data["applicantCount"] = len(app.Applicants)

	tmpl := emailTemplates[models.NotificationModeAdmin]
	return renderTemplate(tmpl["subject"], data),
		renderTemplate(tmpl["html"], data),
		renderTemplate(tmpl["text"], data)
}

func baseTemplateData(app *models.Application, event *models.PaymentEvent, baseURL string) map[string]interface{} {
	return map[string]interface{}{
		"applicationId": app.ID,
		"country":       app.Country,
		"visaType":      app.VisaType,
		"reference":     app.Reference,
		"eventId":       event.EventID,
		"amount":        formatAmount(event.Amount, event.Currency),
		"trackingUrl":   trackingURL(baseURL, app.ID),
	}
}

// formatAmount renders a minor-unit settlement amount, e.g. "USD 125.00".
func formatAmount(amount int64, currency string) string {
	return fmt.Sprintf("%s %.2f", strings.ToUpper(currency), float64(amount)/100)
}

func trackingURL(baseURL, applicationID string) string {
	return strings.TrimRight(baseURL, "/") + "/track/" + applicationID
}

// Simplified template rendering with placeholder removal for missing values
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl

	// First, replace all known placeholders
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		value := ""
		if s, ok := v.(string); ok {
			value = s
		} else if i, ok := v.(int); ok {
			value = fmt.Sprintf("%d", i)
		} else if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, placeholder, value)
	}

	// Remove any remaining placeholders (missing values)
	// This handles {{missing}} -> empty string
	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}

	return result
}
