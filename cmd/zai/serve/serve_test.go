package servecmder

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zhouzirui/zai-studio/backend/cmd/zai/cliapp"
	"github.com/zhouzirui/zai-studio/backend/internal/app"
	"github.com/zhouzirui/zai-studio/backend/internal/config"
)

var _ = Describe("Serve Command", func() {
	It("returns when the context is canceled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		a := &app.App{Config: &config.Config{Server: config.ServerConfig{Addr: "127.0.0.1:0"}}}
		cmd := NewServeCmd(cliapp.Static(a))
		cmd.SetArgs([]string{})
		Expect(cmd.ExecuteContext(ctx)).To(Succeed())
	})

	It("reports load failures", func() {
		boom := errors.New("boom")
		load := func(context.Context) (*app.App, func(), error) { return nil, nil, boom }

		cmd := NewServeCmd(load)
		cmd.SetArgs([]string{})
		Expect(cmd.ExecuteContext(context.Background())).To(MatchError(boom))
	})
})
