package services

import (
	"github.com/samber/do"
)

// Provide registers every service constructor on the injector.
func Provide(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*ServiceConfig, error) {
		return NewServiceConfig(injector)
	})

	do.Provide(injector, func(i *do.Injector) (*ServiceDenomination, error) {
		return NewServiceDenomination(injector)
	})

	do.Provide(injector, func(i *do.Injector) (*ServiceMember, error) {
		return NewServiceMember(injector)
	})

	do.Provide(injector, func(i *do.Injector) (*ServiceVoucher, error) {
		return NewServiceVoucher(injector)
	})
}
