package config

// RedactedConfig returns a copy of cfg with sensitive fields replaced by the
// redaction placeholder "***". Use this when serving or logging the active
// configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg // shallow copy of the top-level struct

	redact(&out.Redis.Password)
	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)

	// Copy slices so callers cannot mutate the original through the redacted
	// copy.
	if cfg.Main.Symbols != nil {
		out.Main.Symbols = append([]string(nil), cfg.Main.Symbols...)
	}
	if cfg.Main.AssetMappings != nil {
		out.Main.AssetMappings = append(cfg.Main.AssetMappings[:0:0], cfg.Main.AssetMappings...)
	}
	if cfg.Exchanges != nil {
		out.Exchanges = append(cfg.Exchanges[:0:0], cfg.Exchanges...)
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
