package sse

import (
	"bufio"
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Writer", func() {
	var buf *bytes.Buffer

	BeforeEach(func() {
		buf = &bytes.Buffer{}
	})

	It("frames a typed event", func() {
		w := NewWriter(buf)
		Expect(w.WriteEvent(Event{Type: "text", Data: "hello"})).To(Succeed())
		Expect(buf.String()).To(Equal("event: text\ndata: hello\n\n"))
	})

	It("splits multi-line data across data fields", func() {
		w := NewWriter(buf)
		Expect(w.WriteEvent(Event{Data: "one\ntwo", ID: "7"})).To(Succeed())
		Expect(buf.String()).To(Equal("id: 7\ndata: one\ndata: two\n\n"))
	})

	It("writes comments", func() {
		w := NewWriter(buf)
		Expect(w.Comment("keep-alive")).To(Succeed())
		Expect(buf.String()).To(Equal(": keep-alive\n\n"))
	})

	It("flushes buffered writers", func() {
		bw := bufio.NewWriter(buf)
		w := NewWriter(bw)
		Expect(w.WriteEvent(Event{Type: "finish", Data: "{}"})).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("event: finish"))
	})

	It("round-trips through the reader", func() {
		w := NewWriter(buf)
		Expect(w.WriteEvent(Event{Type: "reasoning", Data: "a\nb"})).To(Succeed())

		r := NewReader(bytes.NewReader(buf.Bytes()))
		ev, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Type).To(Equal("reasoning"))
		Expect(ev.Data).To(Equal("a\nb"))
	})
})
