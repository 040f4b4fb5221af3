package handlers

import (
	"reflect"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var registerOnce sync.Once

// RegisterValidators installs the ledger validation tags on gin's validator:
//
//	dgte0  decimal >= 0
//	dgt0   decimal > 0
//
// Currency codes use the built-in iso4217 tag.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		// decimals are validated through their string form
		v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
		_ = v.RegisterValidation("dgte0", decimalCompare(func(d decimal.Decimal) bool { return !d.IsNegative() }))
		_ = v.RegisterValidation("dgt0", decimalCompare(func(d decimal.Decimal) bool { return d.IsPositive() }))
	})
}

func decimalValue(field reflect.Value) any {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.String()
	}
	return nil
}

func decimalCompare(ok func(decimal.Decimal) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		return ok(d)
	}
}
