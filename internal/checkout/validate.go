package checkout

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/tramhuong/internal/domain"
)

var (
	phonePattern = regexp.MustCompile(`^[0-9]{10,11}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// fieldRule is the validation applied to one customer field and the message
// shown for each failing tag.
type fieldRule struct {
	name     string
	value    func(domain.CustomerInfo) string
	tags     string
	messages map[string]string
}

// customerRules lists the checked fields in form order.
var customerRules = []fieldRule{
	{
		name:     "full_name",
		value:    func(c domain.CustomerInfo) string { return c.FullName },
		tags:     "notblank",
		messages: map[string]string{"notblank": "Vui lòng nhập họ tên"},
	},
	{
		name:  "phone",
		value: func(c domain.CustomerInfo) string { return c.Phone },
		tags:  "notblank,vn_phone",
		messages: map[string]string{
			"notblank": "Vui lòng nhập số điện thoại",
			"vn_phone": "Số điện thoại không hợp lệ",
		},
	},
	{
		name:  "email",
		value: func(c domain.CustomerInfo) string { return c.Email },
		tags:  "notblank,email_shape",
		messages: map[string]string{
			"notblank":    "Vui lòng nhập email",
			"email_shape": "Email không hợp lệ",
		},
	},
	{
		name:     "address",
		value:    func(c domain.CustomerInfo) string { return c.Address },
		tags:     "notblank",
		messages: map[string]string{"notblank": "Vui lòng nhập địa chỉ"},
	},
	{
		name:     "city",
		value:    func(c domain.CustomerInfo) string { return c.City },
		tags:     "notblank",
		messages: map[string]string{"notblank": "Vui lòng chọn tỉnh/thành phố"},
	},
	{
		name:     "district",
		value:    func(c domain.CustomerInfo) string { return c.District },
		tags:     "notblank",
		messages: map[string]string{"notblank": "Vui lòng chọn quận/huyện"},
	},
	{
		name:     "ward",
		value:    func(c domain.CustomerInfo) string { return c.Ward },
		tags:     "notblank",
		messages: map[string]string{"notblank": "Vui lòng chọn phường/xã"},
	},
}

// Fields lists the customer fields checked by Validate, in form order.
func Fields() []string {
	names := make([]string, len(customerRules))
	for i, r := range customerRules {
		names[i] = r.name
	}
	return names
}

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	mustRegister(v, "notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	mustRegister(v, "vn_phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(stripSpace(fl.Field().String()))
	})
	mustRegister(v, "email_shape", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// stripSpace removes every whitespace rune, so "090 123 4567" checks as
// "0901234567".
func stripSpace(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// Validate checks every customer field and returns a message per failing
// field. An empty map means the customer info is acceptable.
func (b *Builder) Validate(info domain.CustomerInfo) map[string]string {
	errs := make(map[string]string)
	for _, r := range customerRules {
		if msg := b.check(r, info); msg != "" {
			errs[r.name] = msg
		}
	}
	return errs
}

// ValidateField checks a single field, returning "" when it passes. It gives
// the same answer Validate gives for that field. Unknown fields pass.
func (b *Builder) ValidateField(info domain.CustomerInfo, field string) string {
	for _, r := range customerRules {
		if r.name == field {
			return b.check(r, info)
		}
	}
	return ""
}

func (b *Builder) check(r fieldRule, info domain.CustomerInfo) string {
	err := b.validate.Var(r.value(info), r.tags)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if msg, ok := r.messages[verrs[0].Tag()]; ok {
			return msg
		}
	}
	return r.messages["notblank"]
}
