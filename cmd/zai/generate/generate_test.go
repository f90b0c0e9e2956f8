package generatecmder

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zhouzirui/zai-studio/backend/cmd/zai/cliapp"
	"github.com/zhouzirui/zai-studio/backend/internal/app"
	"github.com/zhouzirui/zai-studio/backend/internal/service/media"
	"github.com/zhouzirui/zai-studio/backend/internal/storage"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake-image")

var _ = Describe("Generate Command", func() {
	var (
		ctx      context.Context
		tmpDir   string
		provider *httptest.Server
		store    *storage.Memory
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		tmpDir, err = os.MkdirTemp("", "zai-generate-test-*")
		Expect(err).NotTo(HaveOccurred())

		provider = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(pngBytes)
		}))
		store = storage.NewMemory()
	})

	AfterEach(func() {
		provider.Close()
		os.RemoveAll(tmpDir)
	})

	newApp := func(video media.VideoBackend) *app.App {
		client, err := media.NewInferenceClient(media.InferenceOptions{BaseURL: provider.URL, Token: "hf_test"})
		Expect(err).NotTo(HaveOccurred())
		return &app.App{
			Store: store,
			Media: media.NewService(media.PipelineConfig{
				Client:         client,
				Store:          store,
				Video:          video,
				ImageModel:     "test/image",
				StatusInterval: time.Millisecond,
			}),
		}
	}

	execute := func(a *app.App, args ...string) (string, string, error) {
		cmd := NewGenerateCmd(cliapp.Static(a))
		var stdout, stderr bytes.Buffer
		cmd.SetOut(&stdout)
		cmd.SetErr(&stderr)
		cmd.SetArgs(append([]string{}, args...))
		err := cmd.ExecuteContext(ctx)
		return stdout.String(), stderr.String(), err
	}

	It("writes the generated image to --out", func() {
		path := filepath.Join(tmpDir, "cat.png")
		out, _, err := execute(newApp(nil), "--out", path, "a", "cat")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Saved " + path))

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal(pngBytes))

		// The workspace is deleted once the file is written.
		Expect(store.Len()).To(Equal(0))
	})

	It("prints status messages and fails when the video stub runs out", func() {
		_, stderr, err := execute(newApp(&media.StubVideoBackend{Ticks: 2}), "--kind", "video", "--out", filepath.Join(tmpDir, "clip.mp4"), "waves")
		Expect(err).To(HaveOccurred())
		Expect(media.IsKind(err, media.KindServiceUnavailable)).To(BeTrue())
		Expect(stderr).To(ContainSubstring(media.FlavorMessages[0]))
		Expect(stderr).To(ContainSubstring(media.FlavorMessages[1]))
	})

	It("rejects an unknown kind before loading services", func() {
		load := func(context.Context) (*app.App, func(), error) {
			Fail("loader should not be called")
			return nil, nil, nil
		}
		cmd := NewGenerateCmd(load)
		cmd.SetArgs([]string{"--kind", "audio", "a cat"})
		Expect(cmd.ExecuteContext(ctx)).To(MatchError(ContainSubstring("invalid --kind")))
	})
})

var _ = Describe("extension", func() {
	It("maps common media types", func() {
		Expect(extension("image/png")).To(Equal(".png"))
		Expect(extension("image/jpeg")).To(Equal(".jpg"))
		Expect(extension("video/mp4; codecs=avc1")).To(Equal(".mp4"))
		Expect(extension("not a type")).To(Equal(""))
	})
})
