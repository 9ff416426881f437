// Package dto holds the JSON contract of the REST API. The server binds and
// writes these types; the client decodes the same ones.
package dto

import "github.com/shopspring/decimal"

// DateTimeLayout is the wire format of dates ("YYYY-MM-DD HH:mm:ss").
const DateTimeLayout = "2006-01-02 15:04:05"

func init() {
	// Amounts travel as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}
