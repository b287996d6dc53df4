package emailsvc

import (
	"fmt"
	"net/http"
	"net/mail"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/trezcool/ecole/core"
)

type sendgridService struct {
	appName         string
	frontendBaseURL string
	sender          *sgmail.Email
	subjectPrefix   string
	deliver         func(*sgmail.SGMailV3) (*rest.Response, error)
	logger          core.Logger
}

var _ core.EmailService = (*sendgridService)(nil)

// NewSendgridService delivers emails through the SendGrid v3 API.
func NewSendgridService(conf *core.Config, logger core.Logger) core.EmailService {
	from := conf.DefaultFromEmail()
	return &sendgridService{
		appName:         conf.AppName,
		frontendBaseURL: conf.FrontendBaseURL,
		sender:          sgmail.NewEmail(from.Name, from.Address),
		subjectPrefix:   "[" + conf.AppName + "] ",
		deliver:         sendgrid.NewSendClient(conf.SendgridApiKey).Send,
		logger:          logger,
	}
}

// SendMessages delivers messages in the background, one after the other.
func (svc *sendgridService) SendMessages(messages ...*core.EmailMessage) {
	go func() {
		for _, msg := range messages {
			svc.sendMessage(msg)
		}
	}()
}

func (svc *sendgridService) sendMessage(msg *core.EmailMessage) {
	if err := msg.Render(svc.appName, svc.frontendBaseURL); err != nil {
		svc.logger.Error(fmt.Sprintf("rendering email %q: %v", msg.Subject, err), err)
		return
	}
	if !msg.HasRecipients() || !msg.HasContent() {
		return
	}

	res, err := svc.deliver(svc.buildMail(msg))
	switch {
	case err != nil:
		svc.logger.Error(fmt.Sprintf("delivering email %q: %v", msg.Subject, err), err)
	case res.StatusCode >= http.StatusBadRequest:
		svc.logger.Error(fmt.Sprintf("sendgrid rejected email %q: %d %s", msg.Subject, res.StatusCode, res.Body))
	}
}

func (svc *sendgridService) buildMail(msg *core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjectPrefix + msg.Subject
	p.AddTos(sgAddresses(msg.To)...)
	p.AddCCs(sgAddresses(msg.Cc)...)
	p.AddBCCs(sgAddresses(msg.Bcc)...)

	m := sgmail.NewV3Mail().SetFrom(svc.sender).AddPersonalizations(p)
	if msg.TextContent != "" {
		m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	}
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}
	return m
}

func sgAddresses(addrs []mail.Address) []*sgmail.Email {
	emails := make([]*sgmail.Email, 0, len(addrs))
	for _, addr := range addrs {
		emails = append(emails, sgmail.NewEmail(addr.Name, addr.Address))
	}
	return emails
}
