package refinecmder

import (
	"bytes"
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zhouzirui/zai-studio/backend/cmd/zai/cliapp"
	"github.com/zhouzirui/zai-studio/backend/internal/app"
	"github.com/zhouzirui/zai-studio/backend/internal/service/ai"
	"github.com/zhouzirui/zai-studio/backend/internal/service/ai/aitest"
	"github.com/zhouzirui/zai-studio/backend/internal/service/refine"
)

var _ = Describe("Refine Command", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	execute := func(a *app.App, args ...string) (string, error) {
		cmd := NewRefineCmd(cliapp.Static(a))
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(append([]string{}, args...))
		err := cmd.ExecuteContext(ctx)
		return out.String(), err
	}

	It("prints the refined prompt", func() {
		fake := aitest.NewChatModel(`"A sleek black cat on a moonlit roof"`)
		llm, err := ai.NewService(ctx, fake, ai.Options{})
		Expect(err).NotTo(HaveOccurred())

		out, err := execute(&app.App{LLM: llm, Refiner: refine.NewRefiner(llm, nil)}, "a", "cat")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("A sleek black cat on a moonlit roof\n"))

		calls := fake.Calls()
		Expect(calls).To(HaveLen(1))
		Expect(calls[0][len(calls[0])-1].Content).To(Equal(`Refine this prompt: "a cat"`))
	})

	It("requires a prompt", func() {
		_, err := execute(&app.App{})
		Expect(err).To(HaveOccurred())
	})

	It("fails without a text provider", func() {
		_, err := execute(&app.App{}, "a cat")
		Expect(err).To(MatchError(ContainSubstring("refine is unavailable")))
	})
})
