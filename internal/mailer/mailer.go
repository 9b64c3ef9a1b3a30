package mailer

import (
	"fmt"
	"net/smtp"

	"github.com/rs/zerolog"

	"eventomw/internal/model"
)

// Sender delivers order-status notifications to registrants.
type Sender interface {
	SendOrderEmail(status, recipientEmail, fullName string, total float64, timeoutMinutes int) error
}

type SMTP struct {
	host string
	port string
	from string
	pass string
	log  *zerolog.Logger
}

func NewSMTP(host, port, from, pass string, log *zerolog.Logger) *SMTP {
	return &SMTP{host: host, port: port, from: from, pass: pass, log: log}
}

func (m *SMTP) SendOrderEmail(status, recipientEmail, fullName string, total float64, timeoutMinutes int) error {
	var subject, body string
	switch status {
	case model.StatusPending:
		subject = "Inscrição recebida - Evento MW"
		body = fmt.Sprintf("Olá, %s!\n\nSua inscrição foi registrada. Valor total: R$ %.2f.\nConclua o pagamento em até %d minutos, caso contrário a inscrição será cancelada.", fullName, total, timeoutMinutes)
	case model.StatusPaid:
		subject = "Pagamento confirmado - Evento MW"
		body = fmt.Sprintf("Olá, %s!\n\nRecebemos o seu pagamento de R$ %.2f. Sua inscrição está confirmada. Até lá!", fullName, total)
	case model.StatusCanceled:
		subject = "Inscrição cancelada - Evento MW"
		body = fmt.Sprintf("Olá, %s!\n\nSua inscrição foi cancelada porque o pagamento não foi concluído. Se ainda quiser participar, faça uma nova inscrição.", fullName)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		m.from, recipientEmail, subject, body,
	)

	auth := smtp.PlainAuth("", m.from, m.pass, m.host)

	if err := smtp.SendMail(m.host+":"+m.port, auth, m.from, []string{recipientEmail}, []byte(msg)); err != nil {
		m.log.Warn().Msgf("failed to send email to %s: %v", recipientEmail, err)
		return fmt.Errorf("send email: %w", err)
	}

	m.log.Info().Msgf("email sent to %s (status: %s)", recipientEmail, status)
	return nil
}
