package config

import (
	"reflect"

	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
)

// decimalDecodeHook lets viper unmarshal string/number config values into
// decimal.Decimal fields so rates are never parsed through float64.
func decimalDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(decimal.Decimal{}) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return decimal.NewFromString(v)
		case int:
			return decimal.NewFromInt(int64(v)), nil
		case int64:
			return decimal.NewFromInt(v), nil
		case float64:
			return decimal.NewFromFloat(v), nil
		default:
			return data, nil
		}
	}
}
