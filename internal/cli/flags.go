package cli

import "github.com/spf13/pflag"

// optionalFloat returns &v only when the flag was set on the command line,
// so an explicit zero stays distinct from "not given".
func optionalFloat(fs *pflag.FlagSet, name string, v float64) *float64 {
	if !fs.Changed(name) {
		return nil
	}
	return &v
}

// optionalOrder converts a 1-based position flag into a sort order, or nil
// when the flag was not given.
func optionalOrder(fs *pflag.FlagSet, name string, position int) (*int, error) {
	if !fs.Changed(name) {
		return nil, nil
	}
	order, err := positionToOrder(position)
	if err != nil {
		return nil, err
	}
	return &order, nil
}
