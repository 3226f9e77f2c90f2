package notifysvc

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sendgrid/rest"

	"github.com/ebivilapaula/backend/core"
)

const graphAPIHost = "https://graph.facebook.com"

type (
	templateLanguage struct {
		Code string `json:"code"`
	}
	templateParameter struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	templateComponent struct {
		Type       string              `json:"type"`
		Parameters []templateParameter `json:"parameters"`
	}
	messageTemplate struct {
		Name       string              `json:"name"`
		Language   templateLanguage    `json:"language"`
		Components []templateComponent `json:"components"`
	}
	messagePayload struct {
		MessagingProduct string          `json:"messaging_product"`
		To               string          `json:"to"`
		Type             string          `json:"type"`
		Template         messageTemplate `json:"template"`
	}
)

// whatsappService delivers checkout PINs to guardians through the
// WhatsApp Cloud API using a pre-approved message template.
type whatsappService struct {
	conf   core.WhatsAppConfig
	logger core.Logger
}

var _ core.PinNotifier = (*whatsappService)(nil)

func NewWhatsAppService(logger core.Logger) *whatsappService {
	return &whatsappService{conf: core.Conf.WhatsApp, logger: logger}
}

func (svc whatsappService) SendPin(guardianPhone, childName, pinCode string) {
	if !svc.conf.Enabled {
		return
	}
	if svc.conf.PhoneNumberID == "" || svc.conf.AccessToken == "" {
		svc.logger.Warn("whatsapp config missing, skipping send")
		return
	}
	if svc.conf.TemplateName == "" {
		svc.logger.Warn("whatsapp template name missing, skipping send")
		return
	}
	to := formatPhoneE164(guardianPhone, svc.conf.DefaultCountryCode)
	if to == "" {
		svc.logger.Warn(fmt.Sprintf("invalid phone for whatsapp: %s", guardianPhone))
		return
	}

	go svc.send(to, childName, pinCode)
}

func (svc whatsappService) send(to, childName, pinCode string) {
	payload := messagePayload{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "template",
		Template: messageTemplate{
			Name:     svc.conf.TemplateName,
			Language: templateLanguage{Code: svc.conf.TemplateLanguage},
			Components: []templateComponent{{
				Type: "body",
				Parameters: []templateParameter{
					{Type: "text", Text: childName},
					{Type: "text", Text: pinCode},
				},
			}},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("marshalling whatsapp payload: %v", err), err)
		return
	}

	req := rest.Request{
		Method:  rest.Post,
		BaseURL: fmt.Sprintf("%s/%s/%s/messages", graphAPIHost, svc.conf.APIVersion, svc.conf.PhoneNumberID),
		Headers: map[string]string{
			"Authorization": "Bearer " + svc.conf.AccessToken,
			"Content-Type":  "application/json",
		},
		Body: body,
	}
	res, err := rest.Send(req)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("sending whatsapp message: %v", err), err)
	} else if res.StatusCode >= http.StatusBadRequest {
		svc.logger.Warn(fmt.Sprintf("whatsapp send failed - status: %d - Body: %s", res.StatusCode, res.Body))
	}
}

// formatPhoneE164 normalizes a local number to E.164, assuming the
// default country code when none is present. Returns "" when the input
// holds no digits.
func formatPhoneE164(phone, defaultCountryCode string) string {
	digits := new(strings.Builder)
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return ""
	}
	if strings.HasPrefix(strings.TrimSpace(phone), "+") {
		return "+" + digits.String()
	}
	if digits.Len() <= 11 {
		return "+" + defaultCountryCode + digits.String()
	}
	return "+" + digits.String()
}
