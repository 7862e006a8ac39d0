// SPDX-License-Identifier: GPL-2.0-or-later

// Package config reads the optional qvis.toml.
//
//	threads = 8
//	max_distance = 2048.0
//	max_depth = 4096
//	fast = false
//	full = true
//	on_epsilon = 0.01
//	area_epsilon = 0.000001
//
//	[[zone]]
//	mins = [-1024.0, -1024.0, -512.0]
//	maxs = [0.0, 1024.0, 512.0]
package config

import (
	"os"
	"runtime"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"qvis/filter"
	"qvis/flow"
	"qvis/math/vec"
	"qvis/vis"
	"qvis/winding"
)

type Zone struct {
	Mins [3]float32 `toml:"mins"`
	Maxs [3]float32 `toml:"maxs"`
}

type Config struct {
	Threads     int     `toml:"threads"`
	MaxDistance float32 `toml:"max_distance"`
	MaxDepth    int     `toml:"max_depth"`
	Fast        bool    `toml:"fast"`
	Full        bool    `toml:"full"`
	OnEpsilon   float32 `toml:"on_epsilon"`
	AreaEpsilon float32 `toml:"area_epsilon"`
	Zones       []Zone  `toml:"zone"`
}

func Default() Config {
	return Config{
		Threads:     runtime.NumCPU(),
		MaxDepth:    flow.DefaultMaxDepth,
		OnEpsilon:   winding.OnEpsilon,
		AreaEpsilon: winding.AreaEpsilon,
	}
}

// Parse decodes data over the defaults. Unknown keys are an error.
func Parse(data string) (Config, error) {
	c := Default()
	md, err := toml.Decode(data, &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "config")
	}
	if u := md.Undecoded(); len(u) > 0 {
		keys := make([]string, len(u))
		for i, k := range u {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return Config{}, errors.Errorf("config: unknown keys %s", strings.Join(keys, ", "))
	}
	return c, c.validate()
}

// Load reads the file at path, an empty path gives the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "config")
	}
	c, err := Parse(string(b))
	return c, errors.Wrap(err, path)
}

func (c Config) validate() error {
	switch {
	case c.Threads < 1:
		return errors.Errorf("config: threads %d < 1", c.Threads)
	case c.MaxDepth < 1:
		return errors.Errorf("config: max_depth %d < 1", c.MaxDepth)
	case c.MaxDistance < 0:
		return errors.Errorf("config: negative max_distance %v", c.MaxDistance)
	case c.OnEpsilon <= 0 || c.AreaEpsilon < 0:
		return errors.Errorf("config: bad epsilon %v/%v", c.OnEpsilon, c.AreaEpsilon)
	}
	for i, z := range c.Zones {
		for j := range z.Mins {
			if z.Mins[j] > z.Maxs[j] {
				return errors.Errorf("config: zone %d: mins above maxs", i+1)
			}
		}
	}
	return nil
}

// Options converts the configuration into run options.
func (c Config) Options() vis.Options {
	o := vis.Options{
		Workers:     c.Threads,
		MaxDepth:    c.MaxDepth,
		Epsilon:     winding.Epsilon{On: c.OnEpsilon, Area: c.AreaEpsilon},
		Fast:        c.Fast,
		Full:        c.Full,
		MaxDistance: c.MaxDistance,
	}
	for _, z := range c.Zones {
		o.Zones = append(o.Zones, filter.Box{Mins: vec.VFromA(z.Mins), Maxs: vec.VFromA(z.Maxs)})
	}
	return o
}
