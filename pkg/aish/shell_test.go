package aish

import (
	"context"
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ckoons/tekton-core/pkg/transport"
)

type stubSender struct {
	reply func(envelope transport.Envelope) (*transport.Envelope, error)
}

func (s stubSender) Send(ctx context.Context, envelope transport.Envelope) (*transport.Envelope, error) {
	return s.reply(envelope)
}

var _ = Describe("Shell", func() {
	var (
		reg *Registry
		sh  *Shell
	)

	BeforeEach(func() {
		reg = New(testLogger(), nil)
		reg.RegisterCI(CIEntry{CIName: "apollo", Kind: KindGreekChorus, Endpoint: "http://apollo:8000"})
		reg.RegisterTerminal("term-1", "alice", nil)

		sh = NewShell(reg, func(endpoint string) (Sender, error) {
			return stubSender{reply: func(envelope transport.Envelope) (*transport.Envelope, error) {
				body, _ := json.Marshal(map[string]string{"text": "ack"})
				return &transport.Envelope{From: envelope.To, To: envelope.From, Body: body}, nil
			}}, nil
		}, testLogger())
	})

	It("should deliver directly to an endpoint when unforwarded", func() {
		reply, err := sh.SendMessage(context.Background(), "apollo", "hello", "operator")
		Expect(err).NotTo(HaveOccurred())
		Expect(reply).To(ContainSubstring("ack"))
	})

	It("should reject an empty message as stdin-empty", func() {
		_, err := sh.SendMessage(context.Background(), "apollo", "", "operator")
		Expect(err).To(HaveOccurred())
	})

	It("should deliver to a terminal's new mailbox once forwarded", func() {
		Expect(reg.Forward(context.Background(), "apollo", "term-1", false)).NotTo(HaveOccurred())

		_, err := sh.SendMessage(context.Background(), "apollo", "hello", "operator")
		Expect(err).NotTo(HaveOccurred())

		session, _ := reg.GetTerminal("term-1")
		messages := session.Read(MailboxNew, false)
		Expect(messages).To(HaveLen(1))
		Expect(messages[0].Body).To(Equal("hello"))
	})

	It("should deliver a prompt to the prompt mailbox", func() {
		Expect(reg.Forward(context.Background(), "apollo", "term-1", false)).NotTo(HaveOccurred())

		_, err := sh.Prompt(context.Background(), "apollo", "urgent", "operator")
		Expect(err).NotTo(HaveOccurred())

		session, _ := reg.GetTerminal("term-1")
		Expect(session.Read(MailboxPrompt, false)).To(HaveLen(1))
	})

	It("should JSON-envelope a forward created with json=true", func() {
		Expect(reg.Forward(context.Background(), "apollo", "term-1", true)).NotTo(HaveOccurred())

		_, err := sh.SendMessage(context.Background(), "apollo", "hello", "operator")
		Expect(err).NotTo(HaveOccurred())

		session, _ := reg.GetTerminal("term-1")
		messages := session.Read(MailboxNew, false)
		var envelope EnvelopeBody
		Expect(json.Unmarshal([]byte(messages[0].Body), &envelope)).NotTo(HaveOccurred())
		Expect(envelope.Message).To(Equal("hello"))
		Expect(envelope.Dest).To(Equal("term-1"))
	})

	It("should broadcast to every terminal's new mailbox", func() {
		reg.RegisterTerminal("term-2", "bob", nil)
		sh.Broadcast("team update", "operator", false)

		for _, id := range []string{"term-1", "term-2"} {
			session, _ := reg.GetTerminal(id)
			Expect(session.Read(MailboxNew, false)).To(HaveLen(1))
		}
	})

	It("should fan out team-chat to greek-chorus CIs and collect replies", func() {
		reg.RegisterCI(CIEntry{CIName: "athena", Kind: KindGreekChorus, Endpoint: "http://athena:8000"})
		reg.RegisterCI(CIEntry{CIName: "term-1-ci", Kind: KindTerminal, Endpoint: "http://ignored"})

		cis := []CIEntry{
			mustGetCI(reg, "apollo"),
			mustGetCI(reg, "athena"),
			mustGetCI(reg, "term-1-ci"),
		}

		results := sh.TeamChat(context.Background(), cis, "status?", "operator")
		Expect(results).To(HaveLen(2))
		for _, r := range results {
			Expect(r.Err).NotTo(HaveOccurred())
			Expect(r.Reply).To(ContainSubstring("ack"))
		}
	})
})

func mustGetCI(reg *Registry, name string) CIEntry {
	entry, err := reg.GetCI(name)
	Expect(err).NotTo(HaveOccurred())
	return entry
}
