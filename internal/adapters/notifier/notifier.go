package notifier

import "context"

// Notifier はメールと SMS の送信手段をまとめます。リマインダーと給与通知から利用されます。
type Notifier struct {
	mail *SMTPMailer
	sms  *HTTPSMSSender
}

// New は Notifier を生成します。
func New(mail *SMTPMailer, sms *HTTPSMSSender) *Notifier {
	return &Notifier{mail: mail, sms: sms}
}

// SendMail はメールを送信します。
func (n *Notifier) SendMail(ctx context.Context, to, subject, body string) error {
	if n.mail == nil {
		return nil
	}
	return n.mail.SendMail(ctx, to, subject, body)
}

// SendSMS は SMS を送信します。
func (n *Notifier) SendSMS(ctx context.Context, text string) error {
	if n.sms == nil {
		return nil
	}
	return n.sms.SendSMS(ctx, text)
}
