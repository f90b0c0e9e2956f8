package chatcmder

import (
	"bytes"
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zhouzirui/zai-studio/backend/cmd/zai/cliapp"
	"github.com/zhouzirui/zai-studio/backend/internal/app"
	"github.com/zhouzirui/zai-studio/backend/internal/model/persona"
	"github.com/zhouzirui/zai-studio/backend/internal/service/ai"
	"github.com/zhouzirui/zai-studio/backend/internal/service/ai/aitest"
	chatService "github.com/zhouzirui/zai-studio/backend/internal/service/chat"
)

var _ = Describe("Chat Command", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	newApp := func(fake *aitest.ChatModel) *app.App {
		llm, err := ai.NewService(ctx, fake, ai.Options{Stream: true})
		Expect(err).NotTo(HaveOccurred())
		personas := persona.NewMemoryStore(persona.Seed())
		return &app.App{
			Personas: personas,
			LLM:      llm,
			Chat:     chatService.NewService(personas, llm, nil),
		}
	}

	execute := func(a *app.App, input string, args ...string) (string, error) {
		cmd := NewChatCmd(cliapp.Static(a))
		var out bytes.Buffer
		cmd.SetIn(strings.NewReader(input))
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(append([]string{}, args...))
		err := cmd.ExecuteContext(ctx)
		return out.String(), err
	}

	It("prints the opening line and streamed replies", func() {
		out, err := execute(newApp(aitest.NewChatModel("Hi ", "there")), "hello\n/quit\n", "--raw")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("How can I help you be creative today?"))
		Expect(out).To(ContainSubstring("Hi there\n"))
	})

	It("renders replies as markdown by default", func() {
		out, err := execute(newApp(aitest.NewChatModel("**bold** reply")), "hello\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("reply"))
	})

	It("shows the failure message when the provider fails", func() {
		fake := aitest.NewChatModel("partial", " more")
		fake.FailAfter = 1
		out, err := execute(newApp(fake), "hello\n/quit\n", "--raw")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("partial\n"))
		Expect(out).To(ContainSubstring(chatService.FailureMessage))
	})

	It("reports that dictation is unavailable", func() {
		out, err := execute(newApp(aitest.NewChatModel("ok")), "/mic\n/quit\n", "--raw")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Speech recognition is not available"))
	})

	It("uses the requested persona", func() {
		out, err := execute(newApp(aitest.NewChatModel("ok")), "/quit\n", "--raw", "--persona", "storyboard")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Storyboard"))
	})

	It("rejects an unknown persona", func() {
		_, err := execute(newApp(aitest.NewChatModel("ok")), "", "--persona", "nobody")
		Expect(err).To(HaveOccurred())
	})

	It("fails without a text provider", func() {
		_, err := execute(&app.App{}, "")
		Expect(err).To(MatchError(ContainSubstring("chat is unavailable")))
	})
})
