package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PricingRates holds the per-unit rates, in dollars, charged by Neon for each
// consumption metric. Network and compute rates are cost-per-base-unit
// (per second, per byte).
type PricingRates struct {
	ComputeUnitSecond         float64 `mapstructure:"computeUnitSecond"`
	RootBranchByteMonth       float64 `mapstructure:"rootBranchByteMonth"`
	ChildBranchByteMonth      float64 `mapstructure:"childBranchByteMonth"`
	InstantRestoreByteMonth   float64 `mapstructure:"instantRestoreByteMonth"`
	WrittenDataByte           float64 `mapstructure:"writtenDataByte"`
	PublicNetworkTransferByte float64 `mapstructure:"publicNetworkTransferByte"`
	PrivateNetworkTransfer    float64 `mapstructure:"privateNetworkTransferByte"`
	ExtraBranchMonth          float64 `mapstructure:"extraBranchMonth"`
}

// DefaultPricingRates mirrors Neon's published pricing (approximate, per unit).
func DefaultPricingRates() PricingRates {
	return PricingRates{
		ComputeUnitSecond:         0.0000104,      // ~$0.0375/hour for 1 CU
		RootBranchByteMonth:       0.000000000125, // ~$0.125/GiB-month
		ChildBranchByteMonth:      0.000000000125,
		InstantRestoreByteMonth:   0.000000000125,
		WrittenDataByte:           0.00000000009, // ~$0.096/GiB
		PublicNetworkTransferByte: 0.00000000009, // ~$0.09/GiB
		PrivateNetworkTransfer:    0.0,
		ExtraBranchMonth:          0.0, // included in plan
	}
}

// PricingHolder exposes the current rate table and reloads it when the
// underlying config file changes.
type PricingHolder struct {
	current atomic.Value // holds PricingRates
}

func NewPricingHolder() (*PricingHolder, error) {
	v := viper.New()

	v.SetConfigName("pricing")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/neonmeter")
	v.AddConfigPath(".")

	v.SetEnvPrefix("NEONMETER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	holder := &PricingHolder{}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		holder.current.Store(DefaultPricingRates())
		return holder, nil
	}

	var rates PricingRates
	if err := v.UnmarshalKey("pricing", &rates); err != nil {
		return nil, err
	}
	if err := validatePricingRates(rates); err != nil {
		return nil, err
	}
	holder.current.Store(rates)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PricingRates
		if err := v.UnmarshalKey("pricing", &updated); err != nil {
			log.Printf("[pricing-config] reload failed: %v", err)
			return
		}
		if err := validatePricingRates(updated); err != nil {
			log.Printf("[pricing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[pricing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticPricingHolder returns a holder pinned to the given rates. Used in tests.
func NewStaticPricingHolder(rates PricingRates) *PricingHolder {
	holder := &PricingHolder{}
	holder.current.Store(rates)
	return holder
}

func (h *PricingHolder) Get() PricingRates {
	return h.current.Load().(PricingRates)
}

func validatePricingRates(rates PricingRates) error {
	for _, r := range []float64{
		rates.ComputeUnitSecond,
		rates.RootBranchByteMonth,
		rates.ChildBranchByteMonth,
		rates.InstantRestoreByteMonth,
		rates.WrittenDataByte,
		rates.PublicNetworkTransferByte,
		rates.PrivateNetworkTransfer,
		rates.ExtraBranchMonth,
	} {
		if r < 0 {
			return errors.New("pricing rates cannot be negative")
		}
	}
	return nil
}
