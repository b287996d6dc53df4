package emailsvc

import (
	"bytes"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ecole/core"
	"github.com/trezcool/ecole/tests"
)

func joinedMessage() *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: "mwalimu", Address: "mwalimu@test.cd"}},
		Subject:      "awe joined Math",
		TemplateName: "course_joined",
		TemplateData: map[string]string{"student": "awe", "subject": "Math", "grade": "10", "code": "a1b2c3d4"},
	}
}

func TestConsoleService_send(t *testing.T) {
	ClearSentMessages()
	t.Cleanup(ClearSentMessages)

	conf := testutil.NewConfig()
	out := new(bytes.Buffer)
	svc := NewConsoleService(conf, testutil.NewLogger()).(*consoleService)
	svc.out = out

	svc.sendMessage(joinedMessage())

	printed := out.String()
	assert.Contains(t, printed, "Subject: [Ecole] awe joined Math")
	assert.Contains(t, printed, `To: "mwalimu" <mwalimu@test.cd>`)
	assert.Contains(t, printed, "Content-Type: text/plain")
	assert.Contains(t, printed, "Content-Type: text/html")
	assert.Contains(t, printed, "a1b2c3d4")

	msgs := GetSentMessages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].TextContent, "awe")
}

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	ClearSentMessages()
	t.Cleanup(ClearSentMessages)

	svc := NewConsoleServiceMock(testutil.NewConfig(), testutil.NewLogger())

	noRecipient := joinedMessage()
	noRecipient.To = nil
	svc.SendMessages(joinedMessage(), noRecipient, &core.EmailMessage{To: noRecipient.To, BodyStr: "lol"})

	msgs := GetSentMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "mwalimu@test.cd", msgs[0].To[0].Address)
	assert.Contains(t, msgs[0].HTMLContent, "a1b2c3d4")

	ClearSentMessages()
	assert.Empty(t, GetSentMessages())
}
