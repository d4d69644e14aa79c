package testutil

import "github.com/spf13/viper"

// Viper returns a viper instance holding the given settings.
func Viper(settings map[string]any) *viper.Viper {
	v := viper.New()
	for k, val := range settings {
		v.Set(k, val)
	}
	return v
}
