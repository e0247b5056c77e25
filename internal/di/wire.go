//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/sandeepkv93/account-verification-service/internal/app"
	"github.com/sandeepkv93/account-verification-service/internal/database"
	"github.com/sandeepkv93/account-verification-service/internal/service"
)

func InitializeApp() (*app.App, error) {
	panic(wire.Build(
		ConfigSet,
		ObservabilitySet,
		StoreSet,
		SecuritySet,
		EmailSet,
		ServiceSet,
		HTTPSet,
		AppSet,
	))
}

func InitializeEmailSender() (service.EmailSender, error) {
	panic(wire.Build(
		ToolSet,
		EmailSet,
	))
}

func InitializeAccountStore() (*database.AccountStore, error) {
	panic(wire.Build(
		ToolSet,
		provideAccountStore,
	))
}
