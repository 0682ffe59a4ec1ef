package mongo

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Decimal fields are stored as BSON Decimal128 so that arithmetic done by
// the server ($inc, $sum) is exact. These helpers convert at the
// repository boundary; the domain only ever sees decimal.Decimal.

func toDecimal128(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		// decimal.String() always renders a valid decimal literal.
		panic(fmt.Sprintf("mongo: unrepresentable decimal %q: %v", d.String(), err))
	}
	return v
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("mongo: decode decimal %q: %w", v.String(), err)
	}
	return d, nil
}
