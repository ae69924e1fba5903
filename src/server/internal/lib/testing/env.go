package testing

import (
	"os"

	. "github.com/onsi/gomega"
	"github.com/veedubyou/stem-mixer-be/src/shared/lib/env"
)

func SetTestEnv() {
	err := os.Setenv(env.EnvironmentKey, string(env.Test))
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
}
