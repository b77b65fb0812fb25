package rest_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/wordaddict/finance-sub001/api"
	"github.com/wordaddict/finance-sub001/internal/transport/rest"
)

var _ = Describe("LoadOpenAPI", func() {
	It("accepts the embedded API document", func() {
		doc, err := rest.LoadOpenAPI(context.Background(), api.OpenAPI)

		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Paths.Find("/api/reports/close")).NotTo(BeNil())
		Expect(doc.Paths.Find("/api/admin/wishlist/verify-code")).NotTo(BeNil())
		Expect(doc.Paths.Find("/dmv/{id}/contribute")).NotTo(BeNil())
	})

	It("rejects a document with a dangling reference", func() {
		raw := []byte(`openapi: 3.0.3
info:
  title: broken
  version: "1"
paths:
  /x:
    get:
      responses:
        '200':
          $ref: '#/components/responses/Missing'
`)
		_, err := rest.LoadOpenAPI(context.Background(), raw)
		Expect(err).To(HaveOccurred())
	})
})
