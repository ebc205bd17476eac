package paymentgateway

import "github.com/getkin/kin-openapi/openapi3"

// Response schemas checked at the boundary before a reply is trusted.
var (
	createPaymentSchema = func() *openapi3.Schema {
		s := openapi3.NewObjectSchema().
			WithProperty("success", openapi3.NewBoolSchema()).
			WithProperty("payment_url", openapi3.NewStringSchema().WithNullable()).
			WithProperty("order_id", openapi3.NewStringSchema().WithNullable()).
			WithProperty("error", openapi3.NewStringSchema().WithNullable())
		s.Required = []string{"success"}
		return s
	}()

	statusSchema = func() *openapi3.Schema {
		s := openapi3.NewObjectSchema().
			WithProperty("success", openapi3.NewBoolSchema()).
			WithProperty("order_id", openapi3.NewStringSchema()).
			WithProperty("status", openapi3.NewStringSchema().WithMinLength(1)).
			WithProperty("amount", openapi3.NewFloat64Schema()).
			WithProperty("transaction_id", openapi3.NewStringSchema().WithNullable()).
			WithProperty("message", openapi3.NewStringSchema().WithNullable())
		s.Required = []string{"success", "status"}
		return s
	}()
)
