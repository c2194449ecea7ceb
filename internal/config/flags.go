package config

// Flags carries CLI-level overrides into Parse.
type Flags struct {
	Config  string
	Service string
}
