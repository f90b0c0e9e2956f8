package chatcmder

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestChatCmd(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Chat Command Suite")
}
