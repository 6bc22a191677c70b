package connect

import (
	"github.com/goliatone/go-connect/adapters/finicity"
	"github.com/goliatone/go-connect/adapters/mx"
	"github.com/goliatone/go-connect/adapters/sophtron"
	"github.com/goliatone/go-connect/adapters/testbank"
	"github.com/goliatone/go-connect/core"
)

func MXAdapter(cfg mx.Config) (core.Adapter, error) {
	return mx.New(cfg)
}

func SophtronAdapter(cfg sophtron.Config) (core.Adapter, error) {
	return sophtron.New(cfg)
}

func FinicityAdapter(cfg finicity.Config) (core.Adapter, error) {
	return finicity.New(cfg)
}

func TestBankAdapter(cfg testbank.Config) core.Adapter {
	return testbank.New(cfg)
}
