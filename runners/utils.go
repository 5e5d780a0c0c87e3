// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package runners

import (
	"context"
	"math"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("notnan", func(fl validator.FieldLevel) bool {
		return !math.IsNaN(fl.Field().Float())
	}); err != nil {
		panic(err)
	}
	return v
}

type countable int

func pluralize(tokens ...any) []any {
	pluralized := make([]any, 0, 2*len(tokens))
	for _, token := range tokens {
		pluralized = append(pluralized, token)
		if v, ok := token.(countable); ok {
			if v == 1 {
				pluralized = append(pluralized, "")
			} else {
				pluralized = append(pluralized, "s")
			}
		}
	}
	return pluralized
}

func contextOf(t TestingT) context.Context {
	if c, ok := t.(interface{ Context() context.Context }); ok {
		return c.Context()
	}
	return context.Background()
}

func nameOf(t TestingT) string {
	if n, ok := t.(interface{ Name() string }); ok {
		return n.Name()
	}
	return ""
}
