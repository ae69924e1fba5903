package testing

import (
	. "github.com/onsi/gomega"
)

func ExpectSuccess[T any](t T, err error) T {
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	return t
}

func ExpectType[T any](val any) T {
	t, ok := val.(T)
	ExpectWithOffset(1, ok).To(BeTrue())
	return t
}
