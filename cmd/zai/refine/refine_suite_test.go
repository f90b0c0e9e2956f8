package refinecmder

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestRefineCmd(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Refine Command Suite")
}
