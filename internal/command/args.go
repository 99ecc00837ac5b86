package command

import "strconv"

// Args builds the argument list for running sub under rev: the subcommand,
// then its flags in table order, then operands. A switch appears as "-name"
// when its value (set or default) is true. A valued flag appears as
// "-name=value" only when the caller set a non-empty value.
func Args(rev Revision, sub string, opts Options, operands ...string) ([]string, error) {
	p, err := Lookup(rev, sub)
	if err != nil {
		return nil, err
	}
	if err := opts.Validate(p); err != nil {
		return nil, err
	}

	set := make(map[string]string, len(opts.Flags))
	for k, v := range opts.Flags {
		set[normalizeKey(k)] = v
	}

	args := []string{sub}
	for _, f := range p.Flags {
		value, explicit := set[f.Name]
		if f.Switch {
			if !explicit {
				value = f.Default
			}
			if on, _ := strconv.ParseBool(value); on {
				args = append(args, "-"+f.Name)
			}
			continue
		}
		if explicit && value != "" {
			args = append(args, "-"+f.Name+"="+value)
		}
	}
	return append(args, operands...), nil
}
