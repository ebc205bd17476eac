package wallet

import "github.com/getkin/kin-openapi/openapi3"

// Every field of a ledger reply is optional; types are still enforced.
var ledgerSchema = openapi3.NewObjectSchema().
	WithProperty("success", openapi3.NewBoolSchema()).
	WithProperty("error", openapi3.NewStringSchema().WithNullable()).
	WithProperty("transactionId", openapi3.NewStringSchema().WithNullable()).
	WithProperty("newBalance", openapi3.NewFloat64Schema().WithNullable()).
	WithProperty("message", openapi3.NewStringSchema().WithNullable()).
	WithProperty("bankCard", openapi3.NewObjectSchema().WithNullable())
