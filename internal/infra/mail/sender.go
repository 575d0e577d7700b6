package mail

import (
	"fmt"
	"log"

	"gopkg.in/gomail.v2"
)

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	AlertTo  string
}

func NewEmailSender(host string, port int, user, password, alertTo string) *EmailSender {
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		AlertTo:  alertTo,
	}
}

// SendUploadFailureAlert avisa o operador que um job de upload esgotou
// as retentativas e foi marcado FAILED. O CRM já recebeu o 200 dele -
// esse canal é a ÚNICA superfície dessa falha.
func (s *EmailSender) SendUploadFailureAlert(jobID, conversionID, stage, reason string, attempts int) error {
	if s.Host == "" || s.AlertTo == "" {
		log.Printf("⚠️ Mail: alerta não configurado, falha do job %s só no log", jobID)
		return nil
	}

	body := fmt.Sprintf(
		"Upload de conversão FALHOU em definitivo.\n\n"+
			"Job: %s\nConversão: %s\nEstágio: %s\nTentativas: %d\nÚltimo erro: %s\n\n"+
			"O job não será retentado automaticamente. Verifique a API de ads e "+
			"reenfileire manualmente se fizer sentido.",
		jobID, conversionID, stage, attempts, reason,
	)

	m := gomail.NewMessage()
	m.SetHeader("From", s.User)
	m.SetHeader("To", s.AlertTo)
	m.SetHeader("Subject", fmt.Sprintf("[ads-upload] Job %s FAILED", jobID))
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("erro ao enviar alerta: %w", err)
	}

	log.Printf("📧 Alerta de falha enviado para %s (job %s)", s.AlertTo, jobID)
	return nil
}
