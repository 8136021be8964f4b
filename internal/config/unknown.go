package config

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
)

// checkUnknownKeys rejects config files containing keys this Config does
// not know about, so a typo'd field silently keeping its default doesn't
// go unnoticed. Config here is six flat sections rather than the dozens
// of per-drive variants the pattern this is adapted from handles, so a
// "did you mean?" suggestion engine is unneeded complexity; an exact
// undecoded-key list is enough to locate the mistake.
func checkUnknownKeys(md *toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}

	var errs []error
	for _, key := range undecoded {
		errs = append(errs, fmt.Errorf("config: unknown key %q", key.String()))
	}

	return errors.Join(errs...)
}
