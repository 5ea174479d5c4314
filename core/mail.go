package core

import (
	"bytes"
	"fmt"
	"net/mail"
	texttmpl "text/template"
)

type (
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateStr  string // inline text template; takes precedence over BodyStr
		TemplateData interface{}
		TextContent  string
	}

	ContextData struct {
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

func (m *EmailMessage) getContextData() ContextData {
	return ContextData{
		FrontendBaseURL: Conf.FrontendBaseURL,
		Data:            m.TemplateData,
	}
}

// Render resolves the final text content of the message.
func (m *EmailMessage) Render() error {
	if m.TemplateStr == "" {
		m.TextContent = m.BodyStr
		return nil
	}

	tmpl, err := texttmpl.New("email").Parse(m.TemplateStr)
	if err != nil {
		return fmt.Errorf("core.EmailMessage.Render: %v", err)
	}
	if Conf.Debug || Conf.TestMode {
		tmpl = tmpl.Option("missingkey=error")
	}

	var buff bytes.Buffer
	if err := tmpl.Execute(&buff, m.getContextData()); err != nil {
		return fmt.Errorf("core.EmailMessage.Render: %v", err)
	}
	m.TextContent = buff.String()
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return m.TextContent != "" }
